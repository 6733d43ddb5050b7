package runner

import (
	"os"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
)

type StatusResult struct {
	Command *lib.Command
	Status  *lib.ProcessStatus
}

// Status returns the current process and status by identifier.
func (runner *Runner) Status(id string) (*StatusResult, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}

	status := pe.lockAndGetStatus()
	result := StatusResult{
		Command: &pe.command,
		Status:  &status,
	}

	return &result, nil
}

// Done returns a channel closed once the process has been reaped.
func (runner *Runner) Done(id string) (<-chan struct{}, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}
	return pe.done, nil
}

// Alive probes the OS for the process. It reports false once the process was
// reaped or the OS no longer knows the pid; an error means the probe itself
// failed and the state is unknown.
func (runner *Runner) Alive(id string) (bool, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return false, err
	}
	select {
	case <-pe.done:
		return false, nil
	default:
	}
	return processAlive(pe.pid)
}

func (runner *Runner) getProcess(id string) (*processEntry, error) {
	runner.mu.RLock()
	pe := runner.processes[id]
	runner.mu.RUnlock()
	if pe == nil {
		return nil, os.ErrNotExist
	}
	return pe, nil
}

func (processEntry *processEntry) lockAndGetStatus() lib.ProcessStatus {
	processEntry.mu.RLock()
	defer processEntry.mu.RUnlock()

	st := lib.ProcessStatus{
		State:     processEntry.state,
		PID:       processEntry.pid,
		Signaled:  processEntry.signaled,
		StartTime: processEntry.start,
	}
	if processEntry.exitCode != nil {
		st.ExitCode = new(int)
		*st.ExitCode = *processEntry.exitCode
	}
	if processEntry.end != nil {
		t := *processEntry.end
		st.EndTime = &t
	}
	return st
}
