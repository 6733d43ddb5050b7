package coordinator

import (
	"context"
	"fmt"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/eventlog"
)

// Shutdown stops the companion: the monitor is abandoned, the companion's
// process group gets SIGTERM and, after GracePeriod, SIGKILL. A Start that
// has not run yet will never spawn. Calling Shutdown again does nothing and
// returns nil. A returned *lib.ShutdownError is informational; the host
// exits regardless.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.shutdownMu.Lock()
	defer c.shutdownMu.Unlock()
	if c.shutdown {
		return nil
	}
	c.shutdown = true

	// Waits for an in-flight Start; afterwards Start is a no-op.
	c.startOnce.Do(func() {
		c.setDiscovery(lib.Invalid("host shut down before discovery"))
	})

	if c.monitorCancel != nil {
		c.monitorCancel()
		<-c.monitorDone
	}

	c.mu.RLock()
	id, pid := c.procID, c.pid
	c.mu.RUnlock()

	var shutdownErr error
	if id != "" {
		c.log.Info().Int("pid", pid).Dur("grace", c.cfg.GracePeriod).Msg("stopping companion")
		res, err := c.runner.Stop(ctx, id, c.cfg.GracePeriod)
		switch {
		case err != nil:
			shutdownErr = &lib.ShutdownError{PID: pid, Err: err}
			c.log.Error().Err(shutdownErr).Msg("companion may have outlived the host")
			c.fail(shutdownErr.Error(), shutdownErr)
		case res.Status.ExitCode == nil:
			c.fail("companion stopped with unknown status", nil)
		default:
			code := *res.Status.ExitCode
			if c.State().Phase == lib.CompanionStarting {
				c.fail(fmt.Sprintf("stopped during startup with code %d", code), nil)
			} else {
				c.setState(lib.CompanionState{Phase: lib.CompanionExited, ExitCode: &code, PID: pid}, nil)
			}
		}
		if shutdownErr == nil {
			c.removeRecord()
		}
	}

	detail := c.State().String()
	c.record(eventlog.Event{Kind: eventlog.KindShutdown, Phase: c.State().Phase.String(), PID: pid, Detail: detail})
	c.notify.Stop()
	return shutdownErr
}
