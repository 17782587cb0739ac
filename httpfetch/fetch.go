// Package httpfetch downloads single files over HTTP with bounded retries.
//
// Downloads are staged to a temporary file in the destination directory and
// renamed into place only after the body is fully read and, when a digest
// is pinned, verified. A destination path never holds a partial download.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/opencontainers/go-digest"
)

// ErrDigestMismatch is returned when downloaded content does not match the
// expected digest. It is not retried: a pinned version's content is
// immutable, so a mismatch will not heal.
var ErrDigestMismatch = errors.New("httpfetch: digest verification failed")

const (
	defaultAttempts       = 3
	defaultBaseDelay      = 200 * time.Millisecond
	defaultMaxDelay       = 5 * time.Second
	defaultAttemptTimeout = 2 * time.Minute

	filePerm = 0o644
	dirPerm  = 0o755
)

// Fetcher downloads files over HTTP(S).
type Fetcher struct {
	client         *http.Client
	attempts       int
	baseDelay      time.Duration
	maxDelay       time.Duration
	attemptTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client used for requests.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithAttempts sets the total number of attempts per file, including the
// first. Values below 1 are treated as 1.
func WithAttempts(n int) Option {
	return func(f *Fetcher) {
		f.attempts = max(n, 1)
	}
}

// WithBackoff sets the base and maximum delay between attempts. The delay
// grows exponentially from base and is capped at maximum.
func WithBackoff(base, maximum time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = base
		f.maxDelay = maximum
	}
}

// WithAttemptTimeout bounds each individual attempt. An attempt exceeding
// the timeout counts as a transient failure.
func WithAttemptTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.attemptTimeout = d
	}
}

// WithLogger sets a logger. If nil, logging is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:         http.DefaultClient,
		attempts:       defaultAttempts,
		baseDelay:      defaultBaseDelay,
		maxDelay:       defaultMaxDelay,
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fetcher) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// Download fetches url to dst, creating intermediate directories as
// needed. Transient failures (transport errors, timeouts, 408/429/5xx)
// are retried with exponential backoff; other HTTP errors and digest
// mismatches fail immediately. expected may be empty to skip verification.
func (f *Fetcher) Download(ctx context.Context, url, dst string, expected digest.Digest) error {
	if err := os.MkdirAll(filepath.Dir(dst), dirPerm); err != nil {
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.baseDelay
	bo.MaxInterval = f.maxDelay
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0

	attempt := 0
	op := func() error {
		attempt++
		err := f.fetchOnce(ctx, url, dst, expected)
		if err != nil {
			f.log().Debug("fetch attempt failed", "url", url, "attempt", attempt, "error", err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.attempts-1)), ctx))
}

// fetchOnce performs a single GET attempt. Permanent failures are wrapped
// with backoff.Permanent so the retry loop stops early.
func (f *Fetcher) fetchOnce(ctx context.Context, url, dst string, expected digest.Digest) error {
	if f.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.attemptTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := context.Cause(ctx); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("httpfetch: get %s: unexpected status %s", url, resp.Status)
		if retryableStatus(resp.StatusCode) {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	return stage(resp.Body, dst, expected)
}

// stage writes body to a temporary file next to dst, verifies it, and
// renames it into place.
func stage(body io.Reader, dst string, expected digest.Digest) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".depfetch-tmp-*")
	if err != nil {
		return backoff.Permanent(err)
	}
	tmpPath := tmp.Name()
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	var verifier digest.Verifier
	w := io.Writer(tmp)
	if expected != "" {
		verifier = expected.Verifier()
		w = io.MultiWriter(tmp, verifier)
	}

	if _, err := io.Copy(w, body); err != nil {
		discard()
		return err
	}
	if verifier != nil && !verifier.Verified() {
		discard()
		return backoff.Permanent(fmt.Errorf("%w: want %s", ErrDigestMismatch, expected))
	}
	if err := tmp.Sync(); err != nil {
		discard()
		return backoff.Permanent(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return backoff.Permanent(err)
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath)
		return backoff.Permanent(err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return backoff.Permanent(err)
	}
	return nil
}

// retryableStatus reports whether a response status indicates a transient
// condition worth retrying.
func retryableStatus(code int) bool {
	switch {
	case code >= 500:
		return true
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}
