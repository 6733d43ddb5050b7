package runner

import (
	"errors"
	"os"
	"os/exec"
	"time"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/output_storage"
)

type StartResult struct {
	ID     string
	PID    int
	Status *lib.ProcessStatus
}

// Start starts a new process in its own process group, returning its generated
// identifier and initial status. The error from exec is returned unwrapped so
// callers can classify it with errors.Is.
func (runner *Runner) Start(command lib.Command) (*StartResult, error) {
	if command.Command == "" {
		return nil, errors.New("command is required")
	}
	processId := lib.NewID()

	cmd := exec.Command(command.Command, command.Args...)
	cmd.Dir = command.Dir

	sysProcAttr, err := GetSysProcAttr(processId, runner.limits)
	if err != nil {
		return nil, err
	}
	cmd.SysProcAttr = sysProcAttr.Raw

	stdout := output_storage.RunNewOutputStorage(runner.retain)
	stderr := output_storage.RunNewOutputStorage(runner.retain)

	// cmd.Stdin is left nil, so it will use /dev/null
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// A child left behind by the process keeps the pipes open; stop copying
	// once the process itself is gone for this long.
	cmd.WaitDelay = runner.waitDelay

	entry := &processEntry{
		id:      processId,
		command: lib.Command{Command: command.Command, Args: append([]string(nil), command.Args...), Dir: command.Dir},
		cmd:     cmd,
		state:   lib.ProcessStateRunning,
		start:   time.Now(),
		done:    make(chan struct{}),
		stdout:  stdout,
		stderr:  stderr,
	}

	log := logger.With().Str("process", processId).Str("path", command.Command).Logger()
	log.Debug().Strs("args", command.Args).Msg("starting process")
	if err := cmd.Start(); err != nil {
		log.Debug().Err(err).Msg("failed to start process")
		if sysProcAttr.File != nil {
			_ = sysProcAttr.File.Close()
		}
		stdout.Stop()
		stderr.Stop()
		_ = CleanupCgroup(processId)
		return nil, err
	}

	if sysProcAttr.File != nil {
		_ = sysProcAttr.File.Close()
	}

	entry.pid = cmd.Process.Pid
	log = log.With().Int("pid", entry.pid).Logger()
	log.Info().Msg("process started")

	// Waiter
	go func() {
		err := cmd.Wait()

		stdout.Stop()
		stderr.Stop()

		// The leader is reaped; anything still in its group is a leftover.
		if err := killLeftovers(entry.pid); err != nil {
			log.Debug().Err(err).Msg("failed to kill leftover group members")
		}

		code, signaled, ok := exitStatus(cmd.ProcessState)

		entry.mu.Lock()
		if ok {
			entry.exitCode = &code
			entry.signaled = signaled
		}
		now := time.Now()
		entry.end = &now
		entry.state = lib.ProcessStateStopped
		entry.mu.Unlock()
		close(entry.done)

		if err != nil {
			log.Info().Err(err).Int("exit_code", code).Bool("signaled", signaled).Msg("process finished")
		} else {
			log.Info().Msg("process finished without error")
		}

		// Cleanup platform-specific resources
		_ = CleanupCgroup(processId)
	}()

	runner.mu.Lock()
	runner.processes[processId] = entry
	runner.mu.Unlock()

	status := entry.lockAndGetStatus()

	return &StartResult{ID: processId, PID: entry.pid, Status: &status}, nil
}

// exitStatus maps the state of the reaped process to an exit code. A process
// killed by a signal reports 128+signal, the shell convention. The state is
// used rather than the error of cmd.Wait, which may only describe the pipes.
func exitStatus(state *os.ProcessState) (code int, signaled bool, ok bool) {
	if state == nil {
		return 0, false, false
	}
	if sig, isSignal := terminationSignal(state); isSignal {
		return 128 + sig, true, true
	}
	return state.ExitCode(), false, true
}
