//go:build unix

package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Terminate sends SIGTERM to the process group of pid, waits up to grace
// and then sends SIGKILL. A process that is already gone is not an error.
func Terminate(ctx context.Context, pid int, grace time.Duration) error {
	if pid <= 0 {
		return fmt.Errorf("invalid process pid")
	}

	if err := signal(pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	if waitGone(ctx, pid, grace) {
		return nil
	}

	if err := signal(pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	if waitGone(ctx, pid, time.Second) {
		return nil
	}
	return fmt.Errorf("process %d did not exit after SIGKILL", pid)
}

func signal(pid int, sig unix.Signal) error {
	if err := unix.Kill(-pid, sig); err == nil {
		return nil
	}
	return unix.Kill(pid, sig)
}

func waitGone(ctx context.Context, pid int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		exists, err := processExists(pid)
		if err == nil && !exists {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		time.Sleep(defaultProbeInterval)
	}
}

func processExists(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid process pid")
	}

	err := unix.Kill(pid, 0)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EPERM) {
		return true, nil
	}
	if errors.Is(err, unix.ESRCH) {
		return false, nil
	}
	return false, err
}
