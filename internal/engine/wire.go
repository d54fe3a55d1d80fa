package engine

import (
	"encoding/json"
	"fmt"
)

// WireResult is the JSON shape of a Result.
type WireResult struct {
	Real     []float64 `json:"real"`
	Imag     []float64 `json:"imag"`
	Averages int       `json:"averages"`
}

// EncodeRequest renders a request as engine input.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

// DecodeRequest parses engine input.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// ToWire converts a result to its JSON shape.
func ToWire(res *Result) WireResult {
	w := WireResult{
		Real:     make([]float64, len(res.Signal)),
		Imag:     make([]float64, len(res.Signal)),
		Averages: res.Averages,
	}
	for i, v := range res.Signal {
		w.Real[i] = real(v)
		w.Imag[i] = imag(v)
	}
	return w
}

// FromWire converts a decoded JSON result.
func FromWire(w WireResult) (*Result, error) {
	if len(w.Real) != len(w.Imag) {
		return nil, fmt.Errorf("%w: real has %d samples, imag has %d", ErrBadResponse, len(w.Real), len(w.Imag))
	}
	if w.Averages <= 0 {
		return nil, fmt.Errorf("%w: averages must be > 0, got %d", ErrBadResponse, w.Averages)
	}
	signal := make([]complex128, len(w.Real))
	for i := range signal {
		signal[i] = complex(w.Real[i], w.Imag[i])
	}
	return &Result{Signal: signal, Averages: w.Averages}, nil
}

// EncodeResult renders a result as engine output.
func EncodeResult(res *Result) ([]byte, error) {
	return json.Marshal(ToWire(res))
}

// DecodeResult parses engine output.
func DecodeResult(data []byte) (*Result, error) {
	var w WireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return FromWire(w)
}
