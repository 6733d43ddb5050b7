// Package statusapi exposes the host's companion state over gRPC on a Unix
// socket: the standard health service plus a small Companion service whose
// messages are JSON encoded.
package statusapi

import (
	"context"

	"google.golang.org/grpc"

	"github.com/SanjoDeundiak/daily-motivation/pkg/lib"
)

const (
	ServiceName = "motivation.v1.Companion"
	// HealthService is the health service name that reports SERVING only
	// while the companion runs.
	HealthService = "companion"

	statusMethod = "/" + ServiceName + "/Status"
	logsMethod   = "/" + ServiceName + "/Logs"
)

type StatusRequest struct{}

type StatusResponse struct {
	State     lib.CompanionState  `json:"state"`
	Discovery lib.DiscoveryResult `json:"discovery"`
	HostPID   int                 `json:"host_pid"`
}

type LogsRequest struct{}

// Stream names used in LogChunk.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

type LogChunk struct {
	Stream string `json:"stream"`
	Data   []byte `json:"data"`
}

// CompanionServer is the server API of the Companion service.
type CompanionServer interface {
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Logs(*LogsRequest, grpc.ServerStreamingServer[LogChunk]) error
}

func registerCompanionServer(s grpc.ServiceRegistrar, srv CompanionServer) {
	s.RegisterService(&companionServiceDesc, srv)
}

func companionStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CompanionServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: statusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CompanionServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func companionLogsHandler(srv any, stream grpc.ServerStream) error {
	m := new(LogsRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(CompanionServer).Logs(m, &grpc.GenericServerStream[LogsRequest, LogChunk]{ServerStream: stream})
}

var companionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CompanionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: companionStatusHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Logs", Handler: companionLogsHandler, ServerStreams: true},
	},
	Metadata: "motivation/v1/companion",
}
