package simd

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"time"

	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server implements EngineServiceServer on top of a local engine.
type Server struct {
	engine    engine.Engine
	logger    zerolog.Logger
	admission *Admission
	startedAt time.Time
	hostname  string
	version   string

	simulations atomic.Int64
	failures    atomic.Int64
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithVersion sets the daemon version.
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithAdmission reports admission counters in Status.
func WithAdmission(a *Admission) ServerOption {
	return func(s *Server) {
		s.admission = a
	}
}

// NewServer creates the gRPC service implementation.
func NewServer(eng engine.Engine, logger zerolog.Logger, opts ...ServerOption) *Server {
	hostname, _ := os.Hostname()

	s := &Server{
		engine:    eng,
		logger:    logger,
		startedAt: time.Now(),
		hostname:  hostname,
		version:   "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate runs one engine invocation.
func (s *Server) Simulate(ctx context.Context, req *engine.Request) (*engine.WireResult, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	start := time.Now()
	res, err := s.engine.Simulate(ctx, req)
	if err != nil {
		s.failures.Add(1)
		s.logger.Warn().Err(err).Int("samples", req.Pulse.Len()).Msg("simulation failed")
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, status.Error(codes.DeadlineExceeded, err.Error())
		case errors.Is(err, context.Canceled):
			return nil, status.Error(codes.Canceled, err.Error())
		default:
			return nil, status.Errorf(codes.Internal, "simulation failed: %v", err)
		}
	}
	if res == nil {
		s.failures.Add(1)
		s.logger.Warn().Int("samples", req.Pulse.Len()).Msg("engine returned no result")
		return nil, status.Error(codes.Internal, "simulation failed: engine returned no result")
	}

	s.simulations.Add(1)
	s.logger.Info().
		Int("samples", req.Pulse.Len()).
		Int("averages", res.Averages).
		Dur("elapsed", time.Since(start)).
		Msg("simulation served")

	wire := engine.ToWire(res)
	return &wire, nil
}

// Status reports daemon health and counters.
func (s *Server) Status(_ context.Context, _ *StatusRequest) (*StatusResponse, error) {
	resp := &StatusResponse{
		Version:     s.version,
		Hostname:    s.hostname,
		StartedAt:   s.startedAt,
		Uptime:      time.Since(s.startedAt),
		Simulations: s.simulations.Load(),
		Failures:    s.failures.Load(),
	}
	if s.admission != nil {
		resp.Rejected = s.admission.Rejected()
		resp.Gates = s.admission.Stats()
	}
	return resp, nil
}
