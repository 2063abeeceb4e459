package organizer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"modelsort/internal/services"
)

// RunLock guarantees a single organizer run per state directory.
type RunLock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the run lock at path without blocking. A lock held by
// another process yields services.ErrBusy.
func AcquireLock(path string) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrBusy, "bootstrapping", "acquire run lock", path, nil)
	}
	return &RunLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	return l.path
}

// Release drops the lock. It is safe to call on a nil lock.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
