package simd

import (
	"context"
	"errors"
	"fmt"

	"github.com/nqrduck/quacksim/internal/engine"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is an engine.Engine backed by a remote daemon.
type Client struct {
	conn *grpc.ClientConn
}

var _ engine.Engine = (*Client)(nil)

// NewClient connects to the daemon at target. Extra dial options are applied
// after the defaults.
func NewClient(target string, opts ...grpc.DialOption) (*Client, error) {
	if target == "" {
		return nil, errors.New("engine daemon address is required")
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, opts...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to engine daemon %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Simulate implements engine.Engine.
func (c *Client) Simulate(ctx context.Context, req *engine.Request) (*engine.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var wire engine.WireResult
	if err := c.conn.Invoke(ctx, SimulateMethod, req, &wire); err != nil {
		return nil, fmt.Errorf("remote simulate: %w", err)
	}
	return engine.FromWire(wire)
}

// Status queries daemon health.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.conn.Invoke(ctx, StatusMethod, &StatusRequest{}, &resp); err != nil {
		return nil, fmt.Errorf("remote status: %w", err)
	}
	return &resp, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
