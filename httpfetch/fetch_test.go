package httpfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
)

func testFetcher(opts ...Option) *Fetcher {
	base := []Option{
		WithAttempts(3),
		WithBackoff(time.Millisecond, 10*time.Millisecond),
	}
	return New(append(base, opts...)...)
}

func TestDownload(t *testing.T) {
	content := []byte("file content")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	t.Cleanup(srv.Close)

	dst := filepath.Join(t.TempDir(), "a", "b", "x.h")
	if err := testFetcher().Download(context.Background(), srv.URL, dst, ""); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("Download() wrote %q, want %q", got, content)
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	dst := filepath.Join(t.TempDir(), "x.h")
	if err := testFetcher().Download(context.Background(), srv.URL, dst, ""); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n := requests.Load(); n != 3 {
		t.Fatalf("requests = %d, want 3", n)
	}
}

func TestDownloadNotFoundIsPermanent(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	dst := filepath.Join(t.TempDir(), "x.h")
	err := testFetcher().Download(context.Background(), srv.URL, dst, "")
	if err == nil {
		t.Fatal("Download() error = nil, want status error")
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("requests = %d, want 1 (no retry on 404)", n)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("destination exists after failed download")
	}
}

func TestDownloadVerifiesDigest(t *testing.T) {
	content := []byte("pinned content")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	t.Cleanup(srv.Close)

	dst := filepath.Join(t.TempDir(), "x.h")
	if err := testFetcher().Download(context.Background(), srv.URL, dst, digest.FromBytes(content)); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
}

func TestDownloadDigestMismatch(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("unexpected content"))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	dst := filepath.Join(dir, "x.h")
	err := testFetcher().Download(context.Background(), srv.URL, dst, digest.FromString("something else"))
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("Download() error = %v, want ErrDigestMismatch", err)
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("requests = %d, want 1 (no retry on mismatch)", n)
	}
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("ReadDir() error = %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("directory not empty after mismatch: %v", entries)
	}
}

func TestDownloadTruncatedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		_, _ = w.Write([]byte("short"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		panic(http.ErrAbortHandler)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	dst := filepath.Join(dir, "x.h")
	err := testFetcher(WithAttempts(1)).Download(context.Background(), srv.URL, dst, "")
	if err == nil {
		t.Fatal("Download() error = nil, want copy error")
	}
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatalf("ReadDir() error = %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("partial download left files: %v", entries)
	}
}

func TestDownloadCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	dst := filepath.Join(t.TempDir(), "x.h")
	err := New().Download(ctx, srv.URL, dst, "")
	if err == nil {
		t.Fatal("Download() error = nil, want cancellation error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Download() took %v after cancellation", elapsed)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatalf("destination exists after cancelled download")
	}
}

func TestDownloadAttemptTimeout(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			time.Sleep(500 * time.Millisecond)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	dst := filepath.Join(t.TempDir(), "x.h")
	f := testFetcher(WithAttemptTimeout(50 * time.Millisecond))
	if err := f.Download(context.Background(), srv.URL, dst, ""); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n := requests.Load(); n != 2 {
		t.Fatalf("requests = %d, want 2 (timeout then success)", n)
	}
}
