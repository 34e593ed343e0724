//go:build !windows

package daemon

import (
	"errors"

	"golang.org/x/sys/unix"
)

// processAlive reports whether pid exists. EPERM means it exists but
// belongs to another user.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func terminateProcess(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

func killProcess(pid int) error {
	return unix.Kill(pid, unix.SIGKILL)
}
