package main

import (
	"fmt"
	"os"

	"github.com/opencontainers/go-digest"
	"github.com/pelletier/go-toml/v2"

	"github.com/tidegate/depfetch"
)

// depsFile is the on-disk TOML format listing pinned dependencies.
//
//	[[dependency]]
//	name = "fmt"
//	version = "10.2.1"
//	url = "https://example.com/fmt/{VERSION}"
//	files = ["include/fmt/core.h", "src/format.cc"]
//
//	[dependency.digests]
//	"src/format.cc" = "sha256:..."
//
//	[dependency.library]
//	name = "fmt"
//	sources = ["src/format.cc"]
//	include_dir = "include"
type depsFile struct {
	CacheDir     string          `toml:"cache_dir"`
	Dependencies []depsFileEntry `toml:"dependency"`
}

type depsFileEntry struct {
	Name    string            `toml:"name"`
	Version string            `toml:"version"`
	URL     string            `toml:"url"`
	Files   []string          `toml:"files"`
	Digests map[string]string `toml:"digests"`
	Library *depsFileLibrary  `toml:"library"`
}

type depsFileLibrary struct {
	Name       string   `toml:"name"`
	Sources    []string `toml:"sources"`
	IncludeDir string   `toml:"include_dir"`
}

func loadDepsFile(path string) (*depsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f depsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Dependencies) == 0 {
		return nil, fmt.Errorf("parse %s: no [[dependency]] entries", path)
	}
	return &f, nil
}

// dependency converts a file entry into the library's Dependency value.
// Unknown digest keys are rejected here so a typo fails before any fetch.
func (e depsFileEntry) dependency() (depfetch.Dependency, error) {
	files := make([]depfetch.FileSpec, 0, len(e.Files))
	known := make(map[string]bool, len(e.Files))
	for _, p := range e.Files {
		known[p] = true
		files = append(files, depfetch.FileSpec{
			Path:   p,
			Digest: digest.Digest(e.Digests[p]),
		})
	}
	for p := range e.Digests {
		if !known[p] {
			return depfetch.Dependency{}, fmt.Errorf("dependency %q: digest for unknown file %q", e.Name, p)
		}
	}
	return depfetch.Dependency{
		Name:        e.Name,
		Version:     e.Version,
		URLTemplate: e.URL,
		Files:       files,
	}, nil
}
