package cachedir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryInterval = 100 * time.Millisecond

// Lock acquires an exclusive advisory lock for one dependency version,
// serializing invalidation and fetches for that root across processes.
// The returned function releases the lock. Lock files live outside the
// version roots so invalidation never removes a held lock.
func (d *Dir) Lock(ctx context.Context, name, version string) (unlock func() error, err error) {
	locksDir := filepath.Join(d.base, locksDirName)
	if err := os.MkdirAll(locksDir, d.dirPerm); err != nil {
		return nil, fmt.Errorf("cachedir: create locks directory: %w", err)
	}

	fl := flock.New(filepath.Join(locksDir, lockName(name, version)))
	locked, err := fl.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("cachedir: acquire lock for %s@%s: %w", name, version, err)
	}
	if !locked {
		return nil, fmt.Errorf("cachedir: acquire lock for %s@%s: %v", name, version, ctx.Err())
	}
	return fl.Unlock, nil
}

// lockName flattens an identity into a single file name.
func lockName(name, version string) string {
	s := name + "-" + version + ".lock"
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	return s
}
