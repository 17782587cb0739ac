// Package depfetch acquires pinned external source files over HTTP and
// materializes them as static-library build inputs.
//
// This package provides a unified high-level API through [Client] for
// ensuring that a dependency's files exist in a version-scoped local cache.
// Each dependency is identified by a name and an exact version; files are
// downloaded from URLs resolved from a template and never re-fetched once
// cached under the right version.
//
// A cache root holds two kinds of state:
//   - The manifest files, at their relative paths, written atomically
//   - A version marker recording which version's fetch last completed
//
// # Quick Start
//
// Ensure a dependency and declare a static library from it:
//
//	c, err := depfetch.New(depfetch.WithCacheDir("/var/cache/depfetch"))
//	if err != nil {
//	    return err
//	}
//	root, err := c.Ensure(ctx, depfetch.Dependency{
//	    Name:        "fmt",
//	    Version:     "10.2.1",
//	    URLTemplate: "https://example.com/fmt/{VERSION}",
//	    Files: []depfetch.FileSpec{
//	        {Path: "include/fmt/core.h"},
//	        {Path: "src/format.cc"},
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	lib, err := depfetch.DeclareStaticLibrary(root, []string{"src/format.cc"}, "include", "fmt")
//
// # Concurrency
//
// Files within a manifest are fetched by a bounded worker pool. Concurrent
// Ensure calls for the same dependency, including calls from separate
// processes, serialize around an advisory lock on the cache root and
// converge to the same on-disk state.
package depfetch
