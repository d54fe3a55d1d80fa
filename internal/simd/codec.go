// Package simd serves a simulation engine over gRPC and provides the matching
// remote client.
package simd

import (
	"encoding/json"
	"fmt"
)

// codecName is the content-subtype negotiated on the wire
// (application/grpc+json).
const codecName = "json"

// jsonCodec carries the engine's JSON request and result shapes as gRPC
// messages.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }
