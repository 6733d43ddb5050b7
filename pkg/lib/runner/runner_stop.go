package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
)

// StopResult returns process info and its final status after Stop.
type StopResult struct {
	Command *lib.Command
	Status  *lib.ProcessStatus
}

// Stop asks the process group to terminate, waits up to grace for it to exit
// and then kills it. Stopping an already stopped process returns its final
// status and no error. ctx bounds the whole operation.
func (runner *Runner) Stop(ctx context.Context, id string, grace time.Duration) (*StopResult, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}
	res := StopResult{Command: &pe.command}
	select {
	case <-pe.done:
		st := pe.lockAndGetStatus()
		res.Status = &st
		return &res, nil
	default:
	}

	log := logger.With().Str("process", id).Int("pid", pe.pid).Logger()

	if grace > 0 {
		log.Debug().Dur("grace", grace).Msg("requesting graceful exit")
		if err := terminateGroup(pe.pid); err != nil {
			log.Debug().Err(err).Msg("graceful signal failed")
		}
		if waitDone(ctx, pe.done, grace) {
			st := pe.lockAndGetStatus()
			res.Status = &st
			return &res, nil
		}
		log.Warn().Msg("process did not exit gracefully, killing")
	}

	// Best-effort platform-specific kill: prefer cgroup kill on Linux, else kill process group
	succeeded, err := KillCgroup(id)
	if err != nil || !succeeded {
		if err := killGroup(pe.pid); err != nil {
			log.Debug().Err(err).Msg("kill signal failed")
		}
	}

	waitDone(ctx, pe.done, forceKillWait)

	st := pe.lockAndGetStatus()
	res.Status = &st
	if st.State != lib.ProcessStateStopped {
		return &res, fmt.Errorf("process %d still running after kill", pe.pid)
	}
	return &res, nil
}

func waitDone(ctx context.Context, done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		select {
		case <-done:
			return true
		default:
			return false
		}
	}
}
