//go:build windows

package runner

import "os"

// Windows has no process-group signals; graceful and forced termination
// both end the process.
func terminateGroup(pid int) error {
	return killGroup(pid)
}

func killGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}

func processAlive(pid int) (bool, error) {
	_, err := os.FindProcess(pid)
	return err == nil, nil
}

// killLeftovers is a no-op: there is no process group to clean up.
func killLeftovers(int) error { return nil }

func terminationSignal(*os.ProcessState) (int, bool) {
	return 0, false
}
