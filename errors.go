package depfetch

import (
	"errors"

	"github.com/tidegate/depfetch/cachedir"
	"github.com/tidegate/depfetch/httpfetch"
)

// Sentinel errors. Wrapped errors carry the dependency identity and the
// failing path or URL; match with errors.Is.
var (
	// ErrTemplate is returned when a URL template does not contain exactly
	// one version placeholder.
	ErrTemplate = errors.New("depfetch: malformed URL template")

	// ErrInvalidManifest is returned when a manifest is empty or contains
	// an entry that could escape the cache root.
	ErrInvalidManifest = errors.New("depfetch: invalid manifest")

	// ErrNetwork is returned when a file could not be downloaded after the
	// retry policy was exhausted. The existing cache is left untouched.
	ErrNetwork = errors.New("depfetch: download failed")

	// ErrMissingSource is returned when a declared library source is not
	// present under the cache root.
	ErrMissingSource = errors.New("depfetch: source file missing from cache")

	// ErrMissingIncludeDir is returned when the public include subdirectory
	// is not a directory under the cache root.
	ErrMissingIncludeDir = errors.New("depfetch: include directory missing from cache")
)

// Errors re-exported from subpackages.
var (
	// ErrCacheCorrupt is returned when on-disk state cannot be reconciled
	// by invalidation, for example a cache root that is a regular file.
	// Remove the reported path manually and rerun.
	ErrCacheCorrupt = cachedir.ErrCorrupt

	// ErrDigestMismatch is returned when downloaded content does not match
	// the digest pinned in the manifest. No file is left at the target path.
	ErrDigestMismatch = httpfetch.ErrDigestMismatch
)
