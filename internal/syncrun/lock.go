package syncrun

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"mdqsync/internal/config"
)

// ErrAlreadyRunning is returned when another process holds the run lock.
var ErrAlreadyRunning = errors.New("another mdqsync run is in progress")

// AcquireLock takes the exclusive run lock below the base directory without
// blocking. Callers release it with Unlock.
func AcquireLock(cfg *config.Config) (*flock.Flock, error) {
	if err := os.MkdirAll(cfg.Paths.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	return lock, nil
}
