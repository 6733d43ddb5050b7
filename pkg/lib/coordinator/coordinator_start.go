package coordinator

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/discovery"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/eventlog"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/registry"
)

// Start reaps a companion orphaned by a previous host, discovers the
// companion and spawns it when found. Only the first call does any work;
// later calls return the cached result. Start returns as soon as the child
// exists: the move to Running happens on the monitor goroutine.
func (c *Coordinator) Start(ctx context.Context) lib.DiscoveryResult {
	c.startOnce.Do(func() {
		c.start(ctx)
	})
	return c.Discovery()
}

func (c *Coordinator) start(ctx context.Context) {
	if c.cfg.Disabled {
		c.log.Info().Msg("companion disabled by configuration")
		c.setDiscovery(lib.NotFound())
		return
	}

	c.reapOrphan(ctx)

	result := c.discover()
	c.setDiscovery(result)
	c.record(eventlog.Event{Kind: eventlog.KindDiscovery, Detail: result.String()})

	if result.Kind != lib.DiscoveryFound {
		err := &lib.DiscoveryError{Result: result}
		c.log.Warn().Err(err).Msg("continuing without animated background")
		c.fail(err.Error(), err)
		return
	}

	c.log.Info().Str("path", result.Path).Msg("companion found")
	c.setState(lib.CompanionState{Phase: lib.CompanionStarting}, nil)

	id, pid, err := c.spawn(result.Path)
	if err != nil && c.cfg.RelaunchOnSpawnFailure && errors.Is(err, lib.ErrLaunchFailed) {
		c.log.Warn().Err(err).Msg("companion launch failed, retrying once")
		id, pid, err = c.spawn(result.Path)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("continuing without animated background")
		c.fail(err.Error(), err)
		return
	}

	c.mu.Lock()
	c.procID = id
	c.pid = pid
	c.mu.Unlock()

	monitorCtx, cancel := context.WithCancel(context.Background())
	c.monitorCancel = cancel
	c.monitorDone = make(chan struct{})
	go c.monitor(monitorCtx, id, pid, result.Path)
}

func (c *Coordinator) setDiscovery(result lib.DiscoveryResult) {
	c.mu.Lock()
	c.discovery = result
	c.mu.Unlock()
}

func (c *Coordinator) discover() lib.DiscoveryResult {
	host := c.cfg.HostExecutable
	if host == "" {
		exe, err := discovery.HostExecutable()
		if err != nil {
			return lib.Invalid("host executable: " + err.Error())
		}
		host = exe
	}
	return discovery.Discover(host, discovery.Options{
		Name:     c.cfg.CompanionName,
		DevPaths: c.cfg.DevPaths,
	})
}

// spawn starts one companion process and classifies the OS error.
func (c *Coordinator) spawn(path string) (string, int, error) {
	res, err := c.runner.Start(lib.Command{
		Command: path,
		Args:    c.cfg.Args,
		Dir:     filepath.Dir(path),
	})
	detail := path
	if err != nil {
		detail = err.Error()
	}
	event := eventlog.Event{Kind: eventlog.KindSpawn, Detail: detail}
	if res != nil {
		event.PID = res.PID
	}
	c.record(event)
	if err != nil {
		return "", 0, classifySpawnError(path, err)
	}
	return res.ID, res.PID, nil
}

func classifySpawnError(path string, err error) *lib.SpawnError {
	kind := lib.SpawnLaunchFailed
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = lib.SpawnNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = lib.SpawnPermissionDenied
	}
	return &lib.SpawnError{Kind: kind, Path: path, Err: err}
}

func (c *Coordinator) reapOrphan(ctx context.Context) {
	if c.cfg.RecordPath == "" {
		return
	}
	reaped, err := registry.Reap(ctx, c.cfg.RecordPath, c.cfg.GracePeriod, c.log)
	if err != nil {
		c.log.Warn().Err(err).Str("path", c.cfg.RecordPath).Msg("failed to reap orphaned companion")
		return
	}
	if reaped {
		c.record(eventlog.Event{Kind: eventlog.KindReaped, Detail: c.cfg.RecordPath})
	}
}
