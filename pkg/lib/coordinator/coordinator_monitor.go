package coordinator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/registry"
)

// monitor watches the companion until it exits or ctx is cancelled by
// Shutdown. It waits on the runner's exit notification and additionally
// polls the OS every PollInterval.
func (c *Coordinator) monitor(ctx context.Context, id string, pid int, path string) {
	defer close(c.monitorDone)

	grace := time.NewTimer(c.cfg.StartupGrace)
	defer grace.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	log := c.log.With().Str("process", id).Int("pid", pid).Logger()
	done, err := c.runner.Done(id)
	if err != nil {
		c.fail("companion handle lost", &lib.LivenessError{PID: pid, Err: err})
		return
	}
	go c.forwardOutput(id, pid)
	c.writeRecord(pid, path, log)

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			c.observeExit(id, pid)
			return
		case <-grace.C:
			select {
			case <-done:
				c.observeExit(id, pid)
				return
			default:
			}
			c.setState(lib.CompanionState{Phase: lib.CompanionRunning, PID: pid}, nil)
		case <-ticker.C:
			alive, err := c.runner.Alive(id)
			if err != nil {
				lerr := &lib.LivenessError{PID: pid, Err: err}
				log.Warn().Err(lerr).Msg("liveness probe failed")
				c.fail(lerr.Error(), lerr)
				return
			}
			if alive {
				continue
			}
			// the pid is gone; the waiter reports the exit status shortly
			select {
			case <-done:
				c.observeExit(id, pid)
			case <-ctx.Done():
			case <-time.After(c.cfg.PollInterval):
				lerr := &lib.LivenessError{PID: pid, Err: os.ErrProcessDone}
				c.fail("companion vanished without exit status", lerr)
			}
			return
		}
	}
}

// observeExit turns the runner's final status into Exited or Failed.
func (c *Coordinator) observeExit(id string, pid int) {
	defer c.removeRecord()

	st, err := c.runner.Status(id)
	if err != nil || st.Status.ExitCode == nil {
		c.fail("companion exited with unknown status", &lib.LivenessError{PID: pid, Err: err})
		return
	}
	code := *st.Status.ExitCode

	if c.State().Phase == lib.CompanionStarting {
		c.fail(fmt.Sprintf("exited during startup with code %d", code), nil)
		return
	}
	c.setState(lib.CompanionState{Phase: lib.CompanionExited, ExitCode: &code, PID: pid}, nil)
}

func (c *Coordinator) writeRecord(pid int, path string, log zerolog.Logger) {
	if c.cfg.RecordPath == "" {
		return
	}
	record := registry.Record{
		PID:            pid,
		HostPID:        os.Getpid(),
		Session:        c.session,
		Path:           path,
		CreatedAt:      time.Now(),
		StartTimeTicks: registry.WaitForStartTimeTicks(pid, c.cfg.StartupGrace),
	}
	if err := registry.Write(c.cfg.RecordPath, record); err != nil {
		log.Warn().Err(err).Msg("failed to write companion record")
	}
}

func (c *Coordinator) removeRecord() {
	if c.cfg.RecordPath == "" {
		return
	}
	if err := registry.Remove(c.cfg.RecordPath); err != nil {
		c.log.Debug().Err(err).Msg("failed to remove companion record")
	}
}

// forwardOutput copies companion output into the host log, one entry per
// line. It ends when the companion exits.
func (c *Coordinator) forwardOutput(id string, pid int) {
	stdout, stderr, err := c.runner.Output(context.Background(), id)
	if err != nil {
		return
	}
	log := c.base.With().Str("component", "companion").Str("session", c.session).Int("pid", pid).Logger()
	for stdout != nil || stderr != nil {
		select {
		case chunk, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			logLines(log, zerolog.DebugLevel, "stdout", chunk)
		case chunk, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			logLines(log, zerolog.InfoLevel, "stderr", chunk)
		}
	}
}

func logLines(log zerolog.Logger, level zerolog.Level, stream string, chunk []byte) {
	for _, line := range strings.Split(strings.TrimRight(string(chunk), "\n"), "\n") {
		if line == "" {
			continue
		}
		log.WithLevel(level).Str("stream", stream).Msg(line)
	}
}
