package statusapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
	"github.com/SanjoDeundiak/daily-motivation/pkg/lib/coordinator"
)

// stopTimeout bounds GracefulStop; open Logs streams are cut after it.
const stopTimeout = 2 * time.Second

// Source is the companion view served by the API. *coordinator.Coordinator
// implements it.
type Source interface {
	State() lib.CompanionState
	Discovery() lib.DiscoveryResult
	Subscribe(capacity int) (<-chan lib.CompanionState, func())
	Output(ctx context.Context) (<-chan []byte, <-chan []byte, error)
}

// Server serves the status API on a Unix socket.
type Server struct {
	lis    net.Listener
	s      *grpc.Server
	health *health.Server
	src    Source
	log    zerolog.Logger
	socket string

	unsubscribe func()
	watchDone   chan struct{}
}

// NewServer listens on socket and registers the health and Companion
// services. A leftover socket file from a dead host is replaced; a socket
// that still accepts connections is an error.
func NewServer(socket string, src Source, log zerolog.Logger) (*Server, error) {
	log = log.With().Str("component", "statusapi").Logger()

	if err := os.MkdirAll(filepath.Dir(socket), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := removeStaleSocket(socket); err != nil {
		return nil, err
	}

	lis, err := net.Listen("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	if err := os.Chmod(socket, 0o600); err != nil {
		_ = lis.Close()
		return nil, fmt.Errorf("failed to restrict socket: %w", err)
	}

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(logUnary(log)),
		grpc.ChainStreamInterceptor(logStream(log)),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	server := &Server{
		lis:       lis,
		s:         s,
		health:    hs,
		src:       src,
		log:       log,
		socket:    socket,
		watchDone: make(chan struct{}),
	}
	registerCompanionServer(s, &companionService{src: src})

	states, unsubscribe := src.Subscribe(1)
	server.unsubscribe = unsubscribe
	go server.watch(states)

	return server, nil
}

func removeStaleSocket(socket string) error {
	if _, err := os.Stat(socket); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	conn, err := net.DialTimeout("unix", socket, 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("status socket %s is in use by another host", socket)
	}
	if err := os.Remove(socket); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}
	return nil
}

// watch mirrors the companion state into the health service.
func (server *Server) watch(states <-chan lib.CompanionState) {
	defer close(server.watchDone)
	for st := range states {
		server.health.SetServingStatus(HealthService, servingStatus(st))
	}
	server.health.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
}

func servingStatus(st lib.CompanionState) healthpb.HealthCheckResponse_ServingStatus {
	if st.Available() {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}

// Serve blocks serving requests until Stop.
func (server *Server) Serve() error {
	err := server.s.Serve(server.lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Addr returns the address the server is bound to.
func (server *Server) Addr() net.Addr { return server.lis.Addr() }

// Stop marks every service NOT_SERVING, stops the server and removes the
// socket file.
func (server *Server) Stop() {
	server.health.Shutdown()
	server.unsubscribe()
	<-server.watchDone

	stopped := make(chan struct{})
	go func() {
		server.s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(stopTimeout):
		server.log.Debug().Msg("forcing status server stop")
		server.s.Stop()
		<-stopped
	}
	_ = os.Remove(server.socket)
}

type companionService struct {
	src Source
}

func (c *companionService) Status(ctx context.Context, _ *StatusRequest) (*StatusResponse, error) {
	return &StatusResponse{
		State:     c.src.State(),
		Discovery: c.src.Discovery(),
		HostPID:   os.Getpid(),
	}, nil
}

func (c *companionService) Logs(_ *LogsRequest, streaming grpc.ServerStreamingServer[LogChunk]) error {
	ctx := streaming.Context()
	stdout, stderr, err := c.src.Output(ctx)
	if err != nil {
		if errors.Is(err, coordinator.ErrNotSpawned) {
			return status.Error(codes.FailedPrecondition, "companion is not running in this session")
		}
		return status.Errorf(codes.Internal, "error subscribing to output: %v", err)
	}

	for {
		if stdout == nil && stderr == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-stdout:
			if !ok {
				stdout = nil
				continue
			}
			if err := streaming.Send(&LogChunk{Stream: StreamStdout, Data: chunk}); err != nil {
				return err
			}
		case chunk, ok := <-stderr:
			if !ok {
				stderr = nil
				continue
			}
			if err := streaming.Send(&LogChunk{Stream: StreamStderr, Data: chunk}); err != nil {
				return err
			}
		}
	}
}
