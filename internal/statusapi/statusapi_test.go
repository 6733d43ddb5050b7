package statusapi

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/coordinator"
)

type fakeSource struct {
	mu      sync.Mutex
	state   lib.CompanionState
	subs    []chan lib.CompanionState
	stdout  chan []byte
	stderr  chan []byte
	spawned bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		state: lib.CompanionState{Phase: lib.CompanionStarting, Session: "session-1"},
	}
}

func (f *fakeSource) State() lib.CompanionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSource) Discovery() lib.DiscoveryResult {
	return lib.Found("/opt/motivation/motivation-background")
}

func (f *fakeSource) Subscribe(capacity int) (<-chan lib.CompanionState, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan lib.CompanionState, 8)
	ch <- f.state
	f.subs = append(f.subs, ch)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			for i, s := range f.subs {
				if s == ch {
					f.subs = append(f.subs[:i], f.subs[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
}

func (f *fakeSource) Output(ctx context.Context) (<-chan []byte, <-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.spawned {
		return nil, nil, coordinator.ErrNotSpawned
	}
	return f.stdout, f.stderr, nil
}

func (f *fakeSource) set(st lib.CompanionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = st
	for _, s := range f.subs {
		s <- st
	}
}

func socketPath(t *testing.T) string {
	t.Helper()
	// unix socket paths are limited to about 100 bytes
	dir, err := os.MkdirTemp("", "mstat")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "status.sock")
}

func startServer(t *testing.T, src Source) (*Server, *Client, string) {
	t.Helper()
	socket := socketPath(t)
	srv, err := NewServer(socket, src, zerolog.Nop())
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()

	client, err := Dial(socket)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
	})
	return srv, client, socket
}

func waitHealth(t *testing.T, client *Client, service string, want healthpb.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		got, err := client.Health(ctx, service)
		cancel()
		if err == nil && got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("health %q: want %s, got %s (err %v)", service, want, got, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	_, client, _ := startServer(t, src)

	code := 3
	src.set(lib.CompanionState{Phase: lib.CompanionExited, ExitCode: &code, PID: 42, Session: "session-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	resp, err := client.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, lib.CompanionExited, resp.State.Phase)
	require.Equal(t, 3, *resp.State.ExitCode)
	require.Equal(t, 42, resp.State.PID)
	require.Equal(t, "session-1", resp.State.Session)
	require.Equal(t, lib.DiscoveryFound, resp.Discovery.Kind)
	require.Equal(t, os.Getpid(), resp.HostPID)
}

func TestHealthFollowsCompanion(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	_, client, _ := startServer(t, src)

	waitHealth(t, client, "", healthpb.HealthCheckResponse_SERVING)
	waitHealth(t, client, HealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	src.set(lib.CompanionState{Phase: lib.CompanionRunning, PID: 7})
	waitHealth(t, client, HealthService, healthpb.HealthCheckResponse_SERVING)

	src.set(lib.CompanionState{Phase: lib.CompanionFailed, Reason: "gone"})
	waitHealth(t, client, HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	waitHealth(t, client, "", healthpb.HealthCheckResponse_SERVING)
}

func TestLogsStreamsBothOutputs(t *testing.T) {
	t.Parallel()

	src := newFakeSource()
	src.spawned = true
	src.stdout = make(chan []byte, 2)
	src.stderr = make(chan []byte, 2)
	src.stdout <- []byte("frame 1\n")
	src.stderr <- []byte("warning\n")
	close(src.stdout)
	close(src.stderr)

	_, client, _ := startServer(t, src)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	got := map[string]string{}
	err := client.Logs(ctx, func(chunk LogChunk) error {
		got[chunk.Stream] += string(chunk.Data)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{StreamStdout: "frame 1\n", StreamStderr: "warning\n"}, got)
}

func TestLogsWithoutCompanion(t *testing.T) {
	t.Parallel()

	_, client, _ := startServer(t, newFakeSource())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := client.Logs(ctx, func(LogChunk) error { return nil })
	require.Error(t, err)
	require.Equal(t, codes.FailedPrecondition, Code(err))
}

func TestStaleSocketIsReplacedAndLiveSocketRejected(t *testing.T) {
	t.Parallel()

	socket := socketPath(t)
	require.NoError(t, os.WriteFile(socket, nil, 0o600))

	srv, err := NewServer(socket, newFakeSource(), zerolog.Nop())
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	defer srv.Stop()

	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	_ = conn.Close()

	_, err = NewServer(socket, newFakeSource(), zerolog.Nop())
	require.Error(t, err)
}

func TestStopRemovesSocket(t *testing.T) {
	t.Parallel()

	socket := socketPath(t)
	srv, err := NewServer(socket, newFakeSource(), zerolog.Nop())
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	srv.Stop()

	_, err = os.Stat(socket)
	require.True(t, os.IsNotExist(err))
}
