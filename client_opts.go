package depfetch

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Option configures a Client.
type Option func(*Client) error

// Defaults used when the corresponding option is not given.
const (
	DefaultWorkers        = 4
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 200 * time.Millisecond
	DefaultRetryMaxDelay  = 5 * time.Second
	DefaultAttemptTimeout = 2 * time.Minute
)

// WithCacheDir sets the directory under which per-version dependency roots
// are created. Defaults to a "depfetch" directory under the user cache dir.
func WithCacheDir(dir string) Option {
	return func(c *Client) error {
		if dir == "" {
			return errors.New("depfetch: cache dir is empty")
		}
		c.cacheDir = dir
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client == nil {
			return errors.New("depfetch: http client is nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithWorkers sets the number of files fetched concurrently within one
// manifest. Each file targets a distinct destination path, so fetches are
// independent.
func WithWorkers(n int) Option {
	return func(c *Client) error {
		if n < 1 {
			return errors.New("depfetch: workers must be >= 1")
		}
		c.workers = n
		return nil
	}
}

// WithRetry sets the per-file retry policy.
func WithRetry(policy RetryPolicy) Option {
	return func(c *Client) error {
		if policy.Attempts < 1 {
			return errors.New("depfetch: retry attempts must be >= 1")
		}
		c.retry = policy
		return nil
	}
}

// WithAttemptTimeout bounds each network attempt. Exceeding it counts as a
// transient failure subject to the retry policy. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return errors.New("depfetch: attempt timeout must be >= 0")
		}
		c.attemptTimeout = d
		return nil
	}
}

// WithLogger sets a logger for the client. The logger is propagated to the
// per-file fetchers. If nil, a discard logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

func defaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "depfetch"), nil
}
