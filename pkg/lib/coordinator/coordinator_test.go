//go:build !windows

package coordinator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/discovery"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/eventlog"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/registry"
)

const waitTimeout = 5 * time.Second

// install lays out a host and, when script is non-empty, a companion shell
// script next to it. It returns the host path.
func install(t *testing.T, script string, mode os.FileMode) string {
	t.Helper()
	dir := t.TempDir()
	host := filepath.Join(dir, "motivation")
	require.NoError(t, os.WriteFile(host, []byte("#!/bin/sh\n"), 0o755))
	if script != "" {
		companion := filepath.Join(dir, discovery.DefaultCompanionName)
		require.NoError(t, os.WriteFile(companion, []byte("#!/bin/sh\n"+script+"\n"), mode))
	}
	return host
}

func testConfig(host string) Config {
	return Config{
		HostExecutable: host,
		PollInterval:   50 * time.Millisecond,
		StartupGrace:   100 * time.Millisecond,
		GracePeriod:    2 * time.Second,
	}
}

func waitFor(t *testing.T, c *Coordinator, phase lib.CompanionPhase) lib.CompanionState {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for {
		st := c.State()
		if st.Phase == phase {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s, state is %s", phase, st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func processGone(pid int) bool {
	err := syscall.Kill(pid, 0)
	return errors.Is(err, syscall.ESRCH)
}

type memorySink struct {
	mu     sync.Mutex
	events []eventlog.Event
}

func (s *memorySink) Record(_ context.Context, event eventlog.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memorySink) count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

const longRunning = `trap 'exit 0' TERM
while :; do sleep 0.05; done`

func TestCompanionMissingDoesNotBlock(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, "", 0)))
	begin := time.Now()
	result := c.Start(context.Background())
	require.Less(t, time.Since(begin), time.Second)

	require.Equal(t, lib.DiscoveryNotFound, result.Kind)
	st := c.State()
	require.Equal(t, lib.CompanionFailed, st.Phase)
	require.False(t, st.Available())
	require.ErrorIs(t, c.LastError(), lib.ErrCompanionNotFound)

	_, _, err := c.Output(context.Background())
	require.ErrorIs(t, err, ErrNotSpawned)

	require.NoError(t, c.Shutdown(context.Background()))
	require.NoError(t, c.Shutdown(context.Background()))
	require.Equal(t, lib.CompanionFailed, c.State().Phase)
}

func TestCompanionRunsAndShutdownTerminatesIt(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, longRunning, 0o755)))
	result := c.Start(context.Background())
	require.Equal(t, lib.DiscoveryFound, result.Kind)

	st := waitFor(t, c, lib.CompanionRunning)
	require.True(t, st.Available())
	require.Greater(t, st.PID, 0)
	require.Equal(t, c.Session(), st.Session)

	require.NoError(t, c.Shutdown(context.Background()))
	final := c.State()
	require.Equal(t, lib.CompanionExited, final.Phase)
	require.NotNil(t, final.ExitCode)
	require.Equal(t, 0, *final.ExitCode)
	require.True(t, processGone(st.PID), "companion %d still exists", st.PID)

	require.NoError(t, c.Shutdown(context.Background()))
	require.Equal(t, final, c.State())
}

func TestShutdownKillsCompanionIgnoringTerm(t *testing.T) {
	t.Parallel()

	cfg := testConfig(install(t, "trap '' TERM\nwhile :; do sleep 0.05; done", 0o755))
	cfg.GracePeriod = 200 * time.Millisecond
	c := New(cfg)
	c.Start(context.Background())
	st := waitFor(t, c, lib.CompanionRunning)

	require.NoError(t, c.Shutdown(context.Background()))
	final := c.State()
	require.Equal(t, lib.CompanionExited, final.Phase)
	require.Equal(t, 128+int(syscall.SIGKILL), *final.ExitCode)
	require.True(t, processGone(st.PID))
}

func TestRepeatedStartSpawnsOnce(t *testing.T) {
	t.Parallel()

	host := install(t, `echo started >> "$(dirname "$0")/starts"
`+longRunning, 0o755)
	c := New(testConfig(host))

	var wg sync.WaitGroup
	results := make([]lib.DiscoveryResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Start(context.Background())
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		require.Equal(t, results[0], r)
	}
	waitFor(t, c, lib.CompanionRunning)
	require.Equal(t, results[0], c.Start(context.Background()))

	// give a hypothetical second spawn time to show up
	time.Sleep(200 * time.Millisecond)
	data, err := os.ReadFile(filepath.Join(filepath.Dir(host), "starts"))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), "started"))

	require.NoError(t, c.Shutdown(context.Background()))
}

// exitedSoon waits for Exited and checks it followed Running by about the
// companion's own lifetime, not by extra poll rounds.
func exitedSoon(t *testing.T, c *Coordinator, lifetime time.Duration) lib.CompanionState {
	t.Helper()
	running := waitFor(t, c, lib.CompanionRunning)
	st := waitFor(t, c, lib.CompanionExited)
	limit := lifetime + 3*c.cfg.PollInterval
	require.Less(t, st.Since.Sub(running.Since), limit, "exit observed too late")
	return st
}

func TestCrashReportedAsExited(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, "sleep 0.3\nexit 7", 0o755)))
	c.Start(context.Background())

	st := exitedSoon(t, c, 300*time.Millisecond)
	require.Equal(t, 7, *st.ExitCode)
	require.Equal(t, "exited(7)", st.String())

	require.NoError(t, c.Shutdown(context.Background()))
	require.Equal(t, lib.CompanionExited, c.State().Phase)
}

func TestCrashWithLeftoverChildReportedAsExited(t *testing.T) {
	t.Parallel()

	host := install(t, `sleep 0.3
sleep 5 &
echo $! > "$(dirname "$0")/child"
exit 7`, 0o755)
	c := New(testConfig(host))
	c.Start(context.Background())

	st := exitedSoon(t, c, 300*time.Millisecond)
	require.Equal(t, 7, *st.ExitCode)

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(host), "child"))
	require.NoError(t, err)
	child, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return processGone(child) }, 2*time.Second, 20*time.Millisecond,
		"leftover child %d still running", child)

	require.NoError(t, c.Shutdown(context.Background()))
	require.Equal(t, lib.CompanionExited, c.State().Phase)
}

func TestKilledBySignalReportsShellCode(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, "sleep 0.3\nkill -9 $$", 0o755)))
	c.Start(context.Background())
	waitFor(t, c, lib.CompanionRunning)

	st := waitFor(t, c, lib.CompanionExited)
	require.Equal(t, 137, *st.ExitCode)
	require.NoError(t, c.Shutdown(context.Background()))
}

func TestExitDuringStartupFails(t *testing.T) {
	t.Parallel()

	cfg := testConfig(install(t, "exit 2", 0o755))
	cfg.StartupGrace = time.Second
	c := New(cfg)
	c.Start(context.Background())

	st := waitFor(t, c, lib.CompanionFailed)
	require.Contains(t, st.Reason, "exited during startup")
	require.NoError(t, c.Shutdown(context.Background()))
}

func TestStateTransitionsAreMonotonic(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, "sleep 0.3\nexit 1", 0o755)))
	states, cancel := c.Subscribe(16)
	defer cancel()

	c.Start(context.Background())
	waitFor(t, c, lib.CompanionExited)
	require.NoError(t, c.Shutdown(context.Background()))

	var phases []lib.CompanionPhase
	for st := range states {
		phases = append(phases, st.Phase)
	}
	require.NotEmpty(t, phases)
	require.Equal(t, lib.CompanionNotAttempted, phases[0])
	require.Equal(t, lib.CompanionExited, phases[len(phases)-1])
	for i := 1; i < len(phases); i++ {
		require.Less(t, phases[i-1], phases[i], "phases %v", phases)
	}
}

func TestSubscribeAfterShutdownYieldsFinalState(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, "", 0)))
	c.Start(context.Background())
	require.NoError(t, c.Shutdown(context.Background()))

	states, cancel := c.Subscribe(1)
	defer cancel()
	st, ok := <-states
	require.True(t, ok)
	require.Equal(t, lib.CompanionFailed, st.Phase)
	_, ok = <-states
	require.False(t, ok)
}

func TestPermissionDenied(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, "exit 0", 0o644)))
	result := c.Start(context.Background())
	require.Equal(t, lib.DiscoveryFound, result.Kind)

	require.Equal(t, lib.CompanionFailed, c.State().Phase)
	var spawnErr *lib.SpawnError
	require.ErrorAs(t, c.LastError(), &spawnErr)
	require.Equal(t, lib.SpawnPermissionDenied, spawnErr.Kind)
	require.ErrorIs(t, c.LastError(), lib.ErrPermissionDenied)
	require.NoError(t, c.Shutdown(context.Background()))
}

func TestLaunchFailureRelaunchesOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	host := filepath.Join(dir, "motivation")
	require.NoError(t, os.WriteFile(host, []byte("#!/bin/sh\n"), 0o755))
	// executable bit but no interpreter line and no valid binary format
	require.NoError(t, os.WriteFile(filepath.Join(dir, discovery.DefaultCompanionName), []byte{0x00, 0x01, 0x02, 0x03}, 0o755))

	sink := &memorySink{}
	cfg := testConfig(host)
	cfg.RelaunchOnSpawnFailure = true
	c := New(cfg, WithEventSink(sink))
	c.Start(context.Background())

	require.Equal(t, lib.CompanionFailed, c.State().Phase)
	require.ErrorIs(t, c.LastError(), lib.ErrLaunchFailed)
	require.Equal(t, 2, sink.count(eventlog.KindSpawn))
	require.NoError(t, c.Shutdown(context.Background()))
}

func TestDisabledStaysNotAttempted(t *testing.T) {
	t.Parallel()

	cfg := testConfig(install(t, longRunning, 0o755))
	cfg.Disabled = true
	c := New(cfg)
	c.Start(context.Background())

	require.Equal(t, lib.CompanionNotAttempted, c.State().Phase)
	require.NoError(t, c.Shutdown(context.Background()))
	require.Equal(t, lib.CompanionNotAttempted, c.State().Phase)
}

func TestShutdownBeforeStartPreventsSpawn(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, longRunning, 0o755)))
	require.NoError(t, c.Shutdown(context.Background()))

	result := c.Start(context.Background())
	require.Equal(t, lib.DiscoveryInvalid, result.Kind)
	require.Equal(t, lib.CompanionNotAttempted, c.State().Phase)
}

func TestRegistryRecordFollowsCompanion(t *testing.T) {
	t.Parallel()

	cfg := testConfig(install(t, longRunning, 0o755))
	cfg.RecordPath = filepath.Join(t.TempDir(), "companion.json")
	sink := &memorySink{}
	c := New(cfg, WithEventSink(sink))
	c.Start(context.Background())
	st := waitFor(t, c, lib.CompanionRunning)

	deadline := time.Now().Add(waitTimeout)
	var record registry.Record
	for {
		var err error
		record, err = registry.Load(cfg.RecordPath)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("record not written: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, st.PID, record.PID)
	require.Equal(t, os.Getpid(), record.HostPID)
	require.Equal(t, c.Session(), record.Session)

	require.NoError(t, c.Shutdown(context.Background()))
	_, err := os.Stat(cfg.RecordPath)
	require.True(t, os.IsNotExist(err))

	require.Equal(t, 1, sink.count(eventlog.KindDiscovery))
	require.Equal(t, 1, sink.count(eventlog.KindShutdown))
	require.GreaterOrEqual(t, sink.count(eventlog.KindTransition), 3)
}

func TestOutputIsCaptured(t *testing.T) {
	t.Parallel()

	c := New(testConfig(install(t, "echo hello from companion\n"+longRunning, 0o755)))
	c.Start(context.Background())
	waitFor(t, c, lib.CompanionRunning)

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	stdout, _, err := c.Output(ctx)
	require.NoError(t, err)

	var got strings.Builder
	for !strings.Contains(got.String(), "hello from companion") {
		select {
		case chunk, ok := <-stdout:
			require.True(t, ok, "stdout closed early: %q", got.String())
			got.Write(chunk)
		case <-ctx.Done():
			t.Fatalf("no output: %q", got.String())
		}
	}
	require.NoError(t, c.Shutdown(context.Background()))
}
