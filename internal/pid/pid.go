// Package pid guards against a second daemon instance with a PID file.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/robotwatch/internal/errors"
)

const fileName = "robotwatch.pid"

// DefaultPath is the PID file location used when none is configured.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), fileName)
}

// Write writes the current process ID to path. It fails with
// ErrAlreadyRunning when path names a live process.
func Write(path string) error {
	errFactory := errors.New()
	if path == "" {
		path = DefaultPath()
	}

	if raw, err := os.ReadFile(path); err == nil {
		// PID file exists, check if the process is running
		pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		if err != nil {
			return errFactory.Wrap(errors.ErrInternal, err).WithData(path)
		}

		if pid != os.Getpid() {
			if process, err := os.FindProcess(pid); err == nil {
				if process.Signal(syscall.Signal(0)) == nil {
					return errFactory.New(errors.ErrAlreadyRunning).WithData(pid)
				}
			}
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file at path.
func Remove(path string) error {
	errFactory := errors.New()
	if path == "" {
		path = DefaultPath()
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
