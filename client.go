package depfetch

import (
	"log/slog"
	"net/http"
	"time"
)

// Client acquires pinned dependencies into a local cache directory.
//
// The cache directory is explicit configuration rather than process-wide
// state, so isolated roots (e.g. one per test) need no global setup. A
// zero-configured client caches under the user cache directory.
type Client struct {
	cacheDir       string
	httpClient     *http.Client
	logger         *slog.Logger
	workers        int
	retry          RetryPolicy
	attemptTimeout time.Duration
}

// RetryPolicy bounds per-file download retries. The exact curve is a
// tunable: partial downloads are never visible regardless of the values.
type RetryPolicy struct {
	// Attempts is the total number of tries per file, including the first.
	Attempts int

	// BaseDelay is the delay before the second attempt; it doubles per
	// attempt up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		httpClient: http.DefaultClient,
		workers:    DefaultWorkers,
		retry: RetryPolicy{
			Attempts:  DefaultRetryAttempts,
			BaseDelay: DefaultRetryBaseDelay,
			MaxDelay:  DefaultRetryMaxDelay,
		},
		attemptTimeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.cacheDir == "" {
		dir, err := defaultCacheDir()
		if err != nil {
			return nil, err
		}
		c.cacheDir = dir
	}
	return c, nil
}

// CacheDir returns the directory under which dependency roots are created.
func (c *Client) CacheDir() string {
	return c.cacheDir
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
