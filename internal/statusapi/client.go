package statusapi

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Client talks to a running host over its status socket.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// Dial creates a client for socket. The connection is established lazily
// by the first call.
func Dial(socket string) (*Client, error) {
	conn, err := grpc.NewClient("unix://"+socket, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, health: healthpb.NewHealthClient(conn)}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Status returns the host's companion state.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.conn.Invoke(ctx, statusMethod, &StatusRequest{}, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// Logs streams captured companion output to fn until the companion exits,
// ctx is cancelled or fn returns an error.
func (c *Client) Logs(ctx context.Context, fn func(LogChunk) error) error {
	stream, err := c.conn.NewStream(ctx, &companionServiceDesc.Streams[0], logsMethod, grpc.CallContentSubtype(codecName))
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&LogsRequest{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		var chunk LogChunk
		err := stream.RecvMsg(&chunk)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(chunk); err != nil {
			return err
		}
	}
}

// Health returns the serving status of service ("" for the host itself,
// HealthService for the companion).
func (c *Client) Health(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Code returns the gRPC status code of err.
func Code(err error) codes.Code {
	st, ok := status.FromError(err)
	if !ok {
		return codes.Unknown
	}
	return st.Code()
}
