package simd

import (
	"context"
	"time"

	"github.com/nqrduck/quacksim/internal/engine"
	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "quacksim.engine.v1.EngineService"

// Full method names.
const (
	SimulateMethod = "/" + ServiceName + "/Simulate"
	StatusMethod   = "/" + ServiceName + "/Status"
)

// StatusRequest is the (empty) input of Status.
type StatusRequest struct{}

// StatusResponse describes a running daemon.
type StatusResponse struct {
	Version     string        `json:"version"`
	Hostname    string        `json:"hostname"`
	StartedAt   time.Time     `json:"started_at"`
	Uptime      time.Duration `json:"uptime"`
	Simulations int64         `json:"simulations"`
	Failures    int64         `json:"failures"`
	Rejected    int64         `json:"rejected"`
	Gates       []GateStats   `json:"gates,omitempty"`
}

// EngineServiceServer is the server API of the engine service.
type EngineServiceServer interface {
	Simulate(ctx context.Context, req *engine.Request) (*engine.WireResult, error)
	Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error)
}

// RegisterEngineServiceServer registers srv on s.
func RegisterEngineServiceServer(s grpc.ServiceRegistrar, srv EngineServiceServer) {
	s.RegisterService(&engineServiceDesc, srv)
}

var engineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Simulate", Handler: simulateHandler},
		{MethodName: "Status", Handler: statusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quacksim/engine/v1/engine.json",
}

func simulateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(engine.Request)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServiceServer).Simulate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SimulateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServiceServer).Simulate(ctx, req.(*engine.Request))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServiceServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServiceServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}
