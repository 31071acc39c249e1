package local

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/placesearch/internal/errors"
)

// WriteLock serializes index rebuilds across processes with a lock file
// next to the index directory.
type WriteLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriteLock creates the lock for the index at indexPath.
// The lock file lives at <indexPath>.lock.
func NewWriteLock(indexPath string) *WriteLock {
	lockPath := filepath.Clean(indexPath) + ".lock"
	return &WriteLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock acquires the lock without blocking. It fails with
// ERR_204_INDEX_LOCKED when another process holds it.
func (l *WriteLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return errors.New(errors.ErrCodeIndexLocked,
			"another process is rebuilding the place index", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the running 'placesearch index' to finish")
	}

	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *WriteLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *WriteLock) Path() string {
	return l.path
}
