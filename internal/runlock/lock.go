// Package runlock keeps two zeromunge processes from running against the
// same project directory at once.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultName is the lock file created in the project directory.
const DefaultName = ".zeromunge.lock"

// ErrLocked reports that another process holds the lock.
var ErrLocked = errors.New("run lock is held by another process")

// FileLock provides cross-process mutual exclusion on a lock file.
// The zero value is not usable; create one with New.
type FileLock struct {
	path string
	file *os.File
}

// New creates a FileLock for the file name inside dir. An empty name uses
// DefaultName.
func New(dir, name string) *FileLock {
	if name == "" {
		name = DefaultName
	}
	return &FileLock{path: filepath.Join(dir, name)}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// Held reports whether this FileLock currently holds the lock.
func (fl *FileLock) Held() bool {
	return fl.file != nil
}

// Lock acquires an exclusive lock, blocking until it is available. The lock
// file is created if it does not exist. The holder's PID is written to it
// for diagnostics.
func (fl *FileLock) Lock() error {
	if fl.file != nil {
		return nil
	}
	f, err := fl.open()
	if err != nil {
		return err
	}
	if err := lockFile(f, true); err != nil {
		_ = f.Close()
		return fmt.Errorf("lock %s: %w", fl.path, err)
	}
	fl.acquired(f)
	return nil
}

// TryLock attempts to acquire the lock without blocking. It returns false,
// with no error, when another process holds it.
func (fl *FileLock) TryLock() (bool, error) {
	if fl.file != nil {
		return true, nil
	}
	f, err := fl.open()
	if err != nil {
		return false, err
	}
	if err := lockFile(f, false); err != nil {
		_ = f.Close()
		if isContended(err) {
			return false, nil
		}
		return false, fmt.Errorf("lock %s: %w", fl.path, err)
	}
	fl.acquired(f)
	return true, nil
}

// Unlock releases the lock and closes the lock file. The file itself is left
// in place. Unlock without a held lock is a no-op.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}
	f := fl.file
	fl.file = nil

	if err := unlockFile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("unlock %s: %w", fl.path, err)
	}
	return f.Close()
}

// Holder returns the PID recorded in the lock file, or 0 if none can be read.
func (fl *FileLock) Holder() int {
	data, err := os.ReadFile(fl.path)
	if err != nil {
		return 0
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0
	}
	return pid
}

func (fl *FileLock) open() (*os.File, error) {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f, nil
}

func (fl *FileLock) acquired(f *os.File) {
	fl.file = f
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(fmt.Sprintf("%d\n", os.Getpid())), 0)
	}
}
