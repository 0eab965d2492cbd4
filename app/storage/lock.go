package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrLocked = errors.New("another run holds the lock")

// Lock is an advisory lock file guarding the persisted views against concurrent runs.
type Lock struct {
	lock *flock.Flock
}

func NewLock(path string) *Lock {
	return &Lock{lock: flock.New(path)}
}

// Acquire takes the lock without blocking and returns ErrLocked when it is held elsewhere.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.lock.Path(), err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", l.lock.Path(), ErrLocked)
	}
	return nil
}

func (l *Lock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.lock.Path(), err)
	}
	return nil
}
