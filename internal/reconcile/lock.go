package reconcile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrPassInProgress signals that another pass holds the lock; the caller
// must exit without touching the store.
var ErrPassInProgress = errors.New("another reconciliation pass is already running")

// PassLock serializes reconciliation passes with an advisory file lock.
type PassLock struct {
	path string
	lock *flock.Flock
}

// NewPassLock prepares a lock at path. The lock is not held until Acquire.
func NewPassLock(path string) *PassLock {
	return &PassLock{path: path, lock: flock.New(path)}
}

// Acquire takes the lock without blocking. Returns ErrPassInProgress when
// another process holds it.
func (l *PassLock) Acquire() error {
	if dir := filepath.Dir(l.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lock directory: %w", err)
		}
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire pass lock: %w", err)
	}
	if !ok {
		return ErrPassInProgress
	}
	return nil
}

// Release drops the lock.
func (l *PassLock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *PassLock) Path() string {
	return l.path
}
