package simulator

import (
	"context"
	"sync"
	"testing"

	"github.com/nqrduck/quacksim/internal/config"
	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/stretchr/testify/require"
)

// fakeEngine returns a constant per-sample signal scaled by the requested
// averages and records every request it receives.
type fakeEngine struct {
	mu       sync.Mutex
	requests []*engine.Request

	value    complex128
	averages int // reported averages; 0 echoes the request
	short    int // drop this many samples from every run after the first
	err      error
}

func (f *fakeEngine) Simulate(_ context.Context, req *engine.Request) (*engine.Result, error) {
	f.mu.Lock()
	call := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	averages := f.averages
	if averages == 0 {
		averages = req.Params.Averages
	}
	n := req.Pulse.Len()
	if call > 0 {
		n -= f.short
	}
	signal := make([]complex128, n)
	for i := range signal {
		signal[i] = f.value * complex(float64(averages), 0)
	}
	return &engine.Result{Signal: signal, Averages: averages}, nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Simulation.NumberPoints = 1000
	return cfg
}

func fidSequence(t *testing.T) *sequence.Sequence {
	t.Helper()
	seq := sequence.New("FID")
	require.NoError(t, seq.AddPulseEvent("tx", "3u", 100, 0, sequence.RectFunction{}))
	require.NoError(t, seq.AddBlankEvent("blank", "5u"))
	require.NoError(t, seq.AddReadoutEvent("rx", "100u", 0))
	return seq
}
