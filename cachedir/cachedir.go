// Package cachedir manages version-scoped dependency cache directories.
//
// Each (name, version) pair maps to its own root directory. A root is the
// unit of invalidation: a marker file records which version's fetch last
// completed there, and a root whose marker disagrees with the requested
// version is removed wholesale before any new file is written.
package cachedir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MarkerName is the reserved file name of the version marker at a cache
// root. Manifest entries must not use it.
const MarkerName = ".depfetch-version"

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644

	locksDirName = ".locks"
)

// ErrCorrupt is returned when on-disk state is inconsistent in a way
// invalidation cannot reconcile, such as a root or marker that is the
// wrong kind of filesystem object.
var ErrCorrupt = errors.New("cachedir: inconsistent cache state")

// Dir is a cache directory holding one root per (name, version) pair.
type Dir struct {
	base    string
	dirPerm os.FileMode
}

// Option configures a Dir.
type Option func(*Dir)

// WithDirPerm sets the permissions used for created directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(d *Dir) {
		d.dirPerm = mode
	}
}

// New creates a cache directory rooted at base, creating it if needed.
func New(base string, opts ...Option) (*Dir, error) {
	if base == "" {
		return nil, errors.New("cachedir: base dir is empty")
	}
	d := &Dir{
		base:    base,
		dirPerm: defaultDirPerm,
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := os.MkdirAll(base, d.dirPerm); err != nil {
		return nil, err
	}
	return d, nil
}

// Base returns the cache directory's base path.
func (d *Dir) Base() string {
	return d.base
}

// Root returns the deterministic root directory for a dependency version.
// It does not create the directory.
func (d *Dir) Root(name, version string) string {
	return filepath.Join(d.base, name, version)
}

// ReadMarker reports the version recorded at root. ok is false when no
// marker exists. A marker that is not a regular file, or a root path that
// is not a directory, is reported as ErrCorrupt.
func (d *Dir) ReadMarker(root string) (version string, ok bool, err error) {
	if info, statErr := os.Lstat(root); statErr == nil && !info.IsDir() {
		return "", false, fmt.Errorf("%w: %s exists but is not a directory", ErrCorrupt, root)
	}
	marker := filepath.Join(root, MarkerName)
	info, statErr := os.Lstat(marker)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return "", false, nil
		}
		return "", false, statErr
	}
	if !info.Mode().IsRegular() {
		return "", false, fmt.Errorf("%w: marker %s is not a regular file", ErrCorrupt, marker)
	}
	data, readErr := os.ReadFile(marker)
	if readErr != nil {
		return "", false, readErr
	}
	return strings.TrimSpace(string(data)), true, nil
}

// WriteMarker atomically records version at root. Only call after every
// manifest file is present: the marker is the sole durable signal of
// completeness.
func (d *Dir) WriteMarker(root, version string) error {
	w, err := d.Writer(filepath.Join(root, MarkerName))
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(version + "\n")); err != nil {
		_ = w.Discard()
		return err
	}
	return w.Commit()
}

// Invalidate removes a cache root and everything under it. Stale files
// from a prior version must never remain readable at paths a new version
// also uses.
func (d *Dir) Invalidate(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("cachedir: invalidate %s: %w", root, err)
	}
	return nil
}
