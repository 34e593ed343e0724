//go:build !windows

package main

import "syscall"

// detachAttrs starts the child in its own session so it survives the
// terminal closing.
func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
