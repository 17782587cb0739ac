package depfetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tidegate/depfetch/cachedir"
	"github.com/tidegate/depfetch/httpfetch"
)

// Ensure makes every manifest file of dep present under its version-scoped
// cache root and returns that root.
//
// Files already cached under the requested version are not fetched again: a
// second call with identical arguments performs no network activity. A root
// whose version marker disagrees with the requested version is invalidated
// wholesale before fetching, so files from two versions are never mixed.
//
// Ensure is safe to call concurrently, including from separate processes
// racing on the same dependency: callers serialize around an advisory lock
// per cache root and converge to the same end state.
func (c *Client) Ensure(ctx context.Context, dep Dependency) (string, error) {
	if err := dep.validate(); err != nil {
		return "", err
	}
	baseURL, err := resolveTemplate(dep.URLTemplate, dep.Version)
	if err != nil {
		return "", err
	}

	dir, err := cachedir.New(c.cacheDir)
	if err != nil {
		return "", fmt.Errorf("depfetch: %s: %w", dep, err)
	}
	root := dir.Root(dep.Name, dep.Version)

	unlock, err := dir.Lock(ctx, dep.Name, dep.Version)
	if err != nil {
		return "", fmt.Errorf("depfetch: %s: %w", dep, err)
	}
	defer func() { _ = unlock() }()

	// Invalidation must complete before any fetch of this root begins.
	marker, ok, err := dir.ReadMarker(root)
	if err != nil {
		return "", fmt.Errorf("depfetch: %s: %w", dep, err)
	}
	if ok && marker != dep.Version {
		c.log().Info("invalidating stale cache root",
			"dependency", dep.String(), "root", root, "cached_version", marker)
		if err := dir.Invalidate(root); err != nil {
			return "", fmt.Errorf("depfetch: %s: %w", dep, err)
		}
	}

	if err := c.fetchMissing(ctx, dep, baseURL, root); err != nil {
		return "", err
	}

	// The marker is written only after every file is present; its absence
	// is the sole durable signal of an incomplete root.
	if err := dir.WriteMarker(root, dep.Version); err != nil {
		return "", fmt.Errorf("depfetch: %s: write version marker: %w", dep, err)
	}
	return root, nil
}

// fetchMissing downloads manifest files absent from root using a bounded
// worker pool. Every destination path is distinct, so per-file fetches
// need no coordination beyond the pool limit.
func (c *Client) fetchMissing(ctx context.Context, dep Dependency, baseURL, root string) error {
	fetcher := httpfetch.New(
		httpfetch.WithClient(c.httpClient),
		httpfetch.WithAttempts(c.retry.Attempts),
		httpfetch.WithBackoff(c.retry.BaseDelay, c.retry.MaxDelay),
		httpfetch.WithAttemptTimeout(c.attemptTimeout),
		httpfetch.WithLogger(c.logger),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, f := range dep.Files {
		g.Go(func() error {
			dst := filepath.Join(root, filepath.FromSlash(f.Path))
			if _, err := os.Stat(dst); err == nil {
				c.log().Debug("cache hit", "dependency", dep.String(), "path", f.Path)
				return nil
			}
			url := fileURL(baseURL, f.Path)
			c.log().Debug("fetching", "dependency", dep.String(), "url", url)
			if err := fetcher.Download(gctx, url, dst, f.Digest); err != nil {
				if errors.Is(err, httpfetch.ErrDigestMismatch) {
					return fmt.Errorf("depfetch: %s: fetch %s: %w", dep, url, err)
				}
				return fmt.Errorf("%w: %s: fetch %s: %w", ErrNetwork, dep, url, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func fileURL(baseURL, relPath string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + relPath
}
