//go:build linux

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Inspect evaluates whether a recorded process is still running. A pid that
// was reused by an unrelated process is reported as stale.
func Inspect(record Record) RuntimeState {
	state := RuntimeState{
		Status:  StatusUnknown,
		Running: false,
	}
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

	startTicks, err := ReadStartTimeTicks(record.PID)
	if err != nil {
		state.CheckError = err.Error()
		return state
	}
	state.ObservedStartTimeTicks = startTicks

	if record.StartTimeTicks > 0 && startTicks > 0 && startTicks != record.StartTimeTicks {
		state.Status = StatusStale
		state.Running = false
	}

	return state
}

// WaitForStartTimeTicks waits for /proc stat start time to become available.
func WaitForStartTimeTicks(pid int, timeout time.Duration) uint64 {
	if pid <= 0 {
		return 0
	}
	if timeout <= 0 {
		timeout = defaultStartWait
	}

	deadline := time.Now().Add(timeout)
	for {
		startTicks, err := ReadStartTimeTicks(pid)
		if err == nil && startTicks > 0 {
			return startTicks
		}
		if time.Now().After(deadline) {
			return 0
		}
		time.Sleep(defaultProbeInterval)
	}
}

// ReadStartTimeTicks reads the process start time ticks from /proc/<pid>/stat.
func ReadStartTimeTicks(pid int) (uint64, error) {
	if pid <= 0 {
		return 0, fmt.Errorf("invalid process pid")
	}

	raw, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, err
	}

	line := strings.TrimSpace(string(raw))
	closing := strings.LastIndex(line, ")")
	if closing < 0 || closing+1 >= len(line) {
		return 0, fmt.Errorf("unexpected /proc stat format")
	}

	fields := strings.Fields(strings.TrimSpace(line[closing+1:]))
	if len(fields) <= 19 {
		return 0, fmt.Errorf("unexpected /proc stat field count")
	}

	return strconv.ParseUint(fields[19], 10, 64)
}
