package depfetch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LibraryArtifact describes a static library compiled from cached
// dependency sources. It is a plain value: the surrounding build system is
// responsible for inserting it into its own dependency graph.
type LibraryArtifact struct {
	Name string

	// Sources are the translation units to compile, as absolute paths
	// under the cache root, in declaration order.
	Sources []string

	// PublicIncludeDirs are exposed to dependents of the library as system
	// include paths. They propagate to dependents only, never to unrelated
	// targets.
	PublicIncludeDirs []string

	// PositionIndependent is always true so the static archive can be
	// linked into shared objects.
	PositionIndependent bool

	// ExcludedFromDefault keeps the library out of "build everything"
	// aggregation; it is built only when something depends on it.
	ExcludedFromDefault bool
}

// DeclareStaticLibrary describes a static library built from sources
// already fetched under cacheRoot. sources and includeSubdir are relative,
// slash-separated paths; every source must exist under the root and
// includeSubdir must be a directory there.
//
// The call reads cache state but never mutates it, and performs no network
// activity.
func DeclareStaticLibrary(cacheRoot string, sources []string, includeSubdir, name string) (*LibraryArtifact, error) {
	if name == "" {
		return nil, errors.New("depfetch: library name is empty")
	}
	if cacheRoot == "" {
		return nil, errors.New("depfetch: cache root is empty")
	}

	abs := make([]string, 0, len(sources))
	for _, src := range sources {
		if err := validateEntry(src); err != nil {
			return nil, fmt.Errorf("%w: library %q: %v", ErrMissingSource, name, err)
		}
		p := filepath.Join(cacheRoot, filepath.FromSlash(src))
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: library %q: %s", ErrMissingSource, name, p)
		}
		abs = append(abs, p)
	}

	if err := validateEntry(includeSubdir); err != nil {
		return nil, fmt.Errorf("%w: library %q: %v", ErrMissingIncludeDir, name, err)
	}
	includeDir := filepath.Join(cacheRoot, filepath.FromSlash(includeSubdir))
	info, err := os.Stat(includeDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: library %q: %s", ErrMissingIncludeDir, name, includeDir)
	}

	return &LibraryArtifact{
		Name:                name,
		Sources:             abs,
		PublicIncludeDirs:   []string{includeDir},
		PositionIndependent: true,
		ExcludedFromDefault: true,
	}, nil
}
