package depfetch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/tidegate/depfetch/cachedir"
)

// FileSpec names one file of a dependency's fetched footprint.
type FileSpec struct {
	// Path is the file's location relative to the cache root, slash
	// separated (e.g. "include/fmt/core.h"). It is appended verbatim to
	// the resolved base URL.
	Path string

	// Digest optionally pins the expected content digest (e.g.
	// "sha256:abc..."). When set, downloaded content is verified before
	// the file becomes visible at its final path.
	Digest digest.Digest
}

// Dependency identifies one pinned external dependency.
//
// Name and Version together determine the cache root; no two versions of
// the same dependency ever share a directory.
type Dependency struct {
	Name    string
	Version string

	// URLTemplate is the base URL with exactly one {VERSION} placeholder.
	URLTemplate string

	// Files is the manifest: every file that must exist under the cache
	// root for the dependency to be complete.
	Files []FileSpec
}

func (d Dependency) String() string {
	return d.Name + "@" + d.Version
}

// validate checks the identity and manifest before any filesystem or
// network activity.
func (d Dependency) validate() error {
	if err := validateIdentityPart("name", d.Name); err != nil {
		return err
	}
	if err := validateIdentityPart("version", d.Version); err != nil {
		return err
	}
	if len(d.Files) == 0 {
		return fmt.Errorf("%w: %s: manifest is empty", ErrInvalidManifest, d)
	}
	for _, f := range d.Files {
		if err := validateEntry(f.Path); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidManifest, d, err)
		}
		if f.Digest != "" {
			if err := f.Digest.Validate(); err != nil {
				return fmt.Errorf("%w: %s: entry %q: %v", ErrInvalidManifest, d, f.Path, err)
			}
		}
	}
	return nil
}

// validateIdentityPart rejects identity components that are empty or would
// not survive as a single directory name.
func validateIdentityPart(what, v string) error {
	if v == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidManifest, what)
	}
	if strings.ContainsAny(v, `/\`) || !filepath.IsLocal(v) {
		return fmt.Errorf("%w: %s %q is not a valid path component", ErrInvalidManifest, what, v)
	}
	return nil
}

// validateEntry rejects manifest paths that are absolute or could write
// outside the cache root.
func validateEntry(p string) error {
	if p == "" {
		return fmt.Errorf("entry is empty")
	}
	if strings.Contains(p, `\`) {
		return fmt.Errorf("entry %q: use forward slashes", p)
	}
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("entry %q is absolute", p)
	}
	if !filepath.IsLocal(filepath.FromSlash(p)) {
		return fmt.Errorf("entry %q escapes the cache root", p)
	}
	if p == cachedir.MarkerName {
		return fmt.Errorf("entry %q collides with the version marker", p)
	}
	return nil
}
