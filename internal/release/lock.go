package release

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StaleLockThreshold is the maximum age of a lock before it's
// considered stale. It exceeds the largest publish-wait budget ever
// used (20 minutes), so a live polling run is never mistaken for a
// crashed one.
const StaleLockThreshold = 30 * time.Minute

var (
	// ErrLockExists indicates another validation or install run holds
	// the working directory.
	ErrLockExists = errors.New("working directory is locked: another run may be in progress")
)

// Lock serializes runs against one working directory. The pipeline
// shares mutable ambient state (the active keychain, same-named files
// in the working directory), so at most one validation or install run
// may use a directory at a time.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock attempts to acquire the exclusive working-directory lock.
// Uses O_CREATE|O_EXCL for atomic lock creation.
func AcquireLock(dir string) (*Lock, error) {
	lockPath := filepath.Join(dir, "validate.lock")

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if os.IsExist(err) {
			if isStale, _ := isLockStale(lockPath); isStale {
				os.Remove(lockPath)
				file, err = os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
				if err != nil {
					return nil, ErrLockExists
				}
			} else {
				return nil, ErrLockExists
			}
		} else {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		os.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}

	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(lockPath string) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false, err
	}

	return time.Since(info.ModTime()) > StaleLockThreshold, nil
}
