//go:build unix

package main

import (
	"errors"

	"golang.org/x/sys/unix"
)

// parentAlive reports whether pid still exists.
func parentAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
