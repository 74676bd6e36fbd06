package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// Lock is an exclusive flock-based process lock. The agent takes one
// next to the snapshot cache so two instances never write the same
// database file.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes a non-blocking exclusive lock on lockPath. It fails
// when another agent process already holds the lock.
func Acquire(lockPath string) (*Lock, error) {
	dir := filepath.Dir(lockPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	err = syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, fmt.Errorf("another instance is already running (lock held at %s)", lockPath)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	// Record our PID for operators inspecting a stale lock.
	pid := os.Getpid()
	if err := file.Truncate(0); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to truncate lock file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to seek lock file: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write PID to lock file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to sync lock file: %w", err)
	}

	return &Lock{path: lockPath, file: file}, nil
}

// Release drops the flock and closes the file. The lock file itself is
// left in place so the next process locks the same inode; removing it
// here would let two processes hold locks on different inodes.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close lock file: %w", err)
	}
	l.file = nil

	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// ForCachePath returns the lock path derived from a cache database path.
func ForCachePath(dbPath string) string {
	return dbPath + ".lock"
}
