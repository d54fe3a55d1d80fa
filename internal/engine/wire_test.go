package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"mismatched arrays", func(r *Request) { r.Pulse.Phase = nil }},
		{"zero dwell", func(r *Request) { r.Pulse.DwellTime = 0 }},
		{"zero averages", func(r *Request) { r.Params.Averages = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			tt.mutate(req)
			require.ErrorIs(t, req.Validate(), ErrInvalidRequest)
		})
	}

	var nilReq *Request
	require.ErrorIs(t, nilReq.Validate(), ErrInvalidRequest)
}

func TestResultWireConversion(t *testing.T) {
	res := &Result{Signal: []complex128{complex(1, 2), complex(-3, 0)}, Averages: 7}
	data, err := EncodeResult(res)
	require.NoError(t, err)
	require.JSONEq(t, `{"real":[1,-3],"imag":[2,0],"averages":7}`, string(data))

	back, err := DecodeResult(data)
	require.NoError(t, err)
	require.Equal(t, res, back)
}

func TestFromWireRejectsInconsistentResults(t *testing.T) {
	_, err := FromWire(WireResult{Real: []float64{1}, Imag: nil, Averages: 1})
	require.ErrorIs(t, err, ErrBadResponse)

	_, err = FromWire(WireResult{Real: []float64{1}, Imag: []float64{1}, Averages: 0})
	require.ErrorIs(t, err, ErrBadResponse)
}
