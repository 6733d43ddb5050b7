//go:build windows

package registry

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Terminate kills pid; Windows offers no graceful signal to a console-less
// process.
func Terminate(ctx context.Context, pid int, grace time.Duration) error {
	if pid <= 0 {
		return fmt.Errorf("invalid process pid")
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}

func processExists(pid int) (bool, error) {
	if pid <= 0 {
		return false, fmt.Errorf("invalid process pid")
	}
	_, err := os.FindProcess(pid)
	return err == nil, nil
}
