package simd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
)

// DefaultPort is the daemon's default listen port.
const DefaultPort = 50151

// Options configure the daemon runtime.
type Options struct {
	Hostname string
	Port     int
	Version  string

	// SimulateLimits overrides the Simulate limits; nil keeps DefaultLimits.
	SimulateLimits *Limits

	// DisableLimits admits every call.
	DisableLimits bool
}

// Daemon serves a local engine to remote clients.
type Daemon struct {
	logger zerolog.Logger
	opts   Options

	server     *Server
	admission  *Admission
	grpcServer *grpc.Server
}

// NewDaemon constructs a daemon around eng.
func NewDaemon(eng engine.Engine, logger zerolog.Logger, opts Options) (*Daemon, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if opts.Hostname == "" {
		opts.Hostname = "127.0.0.1"
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}

	admissionOpts := []AdmissionOption{WithEnabled(!opts.DisableLimits)}
	if opts.SimulateLimits != nil {
		admissionOpts = append(admissionOpts, WithLimits(SimulateMethod, *opts.SimulateLimits))
	}
	admission := NewAdmission(admissionOpts...)

	server := NewServer(eng, logger, WithVersion(opts.Version), WithAdmission(admission))
	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.UnaryInterceptor(admission.UnaryServerInterceptor()),
	)
	RegisterEngineServiceServer(grpcServer, server)

	return &Daemon{
		logger:     logger,
		opts:       opts,
		server:     server,
		admission:  admission,
		grpcServer: grpcServer,
	}, nil
}

// Run listens on the configured address and blocks until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	bindAddr := d.bindAddr()
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", bindAddr, err)
	}
	return d.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is canceled.
func (d *Daemon) Serve(ctx context.Context, listener net.Listener) error {
	d.logger.Info().
		Str("bind", listener.Addr().String()).
		Str("version", d.opts.Version).
		Msg("engine daemon starting")

	errCh := make(chan error, 1)
	go func() {
		if err := d.grpcServer.Serve(listener); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		d.logger.Info().Msg("engine daemon shutting down...")
		d.grpcServer.GracefulStop()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
	}

	d.logger.Info().Msg("engine daemon shutdown complete")
	return nil
}

func (d *Daemon) bindAddr() string {
	return net.JoinHostPort(d.opts.Hostname, strconv.Itoa(d.opts.Port))
}

// Server returns the underlying service implementation.
func (d *Daemon) Server() *Server {
	return d.server
}
