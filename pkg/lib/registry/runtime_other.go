//go:build !linux

package registry

import "time"

// Inspect reports whether the recorded pid exists. Without /proc there is no
// start time to detect pid reuse.
func Inspect(record Record) RuntimeState {
	state := RuntimeState{Status: StatusUnknown}
	if record.PID <= 0 {
		state.CheckError = "invalid process pid"
		return state
	}
	exists, err := processExists(record.PID)
	if err != nil {
		state.CheckError = err.Error()
		return state
	}
	if !exists {
		state.Status = StatusExited
		return state
	}
	state.Status = StatusRunning
	state.Running = true
	return state
}

// WaitForStartTimeTicks returns 0 on non-Linux targets.
func WaitForStartTimeTicks(pid int, timeout time.Duration) uint64 {
	return 0
}
