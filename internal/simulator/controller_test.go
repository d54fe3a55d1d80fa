package simulator

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"
	"time"

	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestController(t *testing.T, eng engine.Engine, mutate ...func(*Controller)) *Controller {
	t.Helper()
	c, err := New(testConfig(), eng, WithClock(fixedClock), WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	for _, m := range mutate {
		m(c)
	}
	return c
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, &fakeEngine{})
	require.True(t, errors.Is(err, ErrConfiguration))
}

func TestRunWithoutEngine(t *testing.T) {
	c, err := New(testConfig(), nil, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = c.Prepare(fidSequence(t))
	require.NoError(t, err)

	_, err = c.Run(context.Background(), fidSequence(t))
	require.True(t, errors.Is(err, ErrConfiguration))
}

func TestRunFID(t *testing.T) {
	eng := &fakeEngine{value: complex(2, 1)}
	c := newTestController(t, eng)
	seq := fidSequence(t)

	m, err := c.Run(context.Background(), seq)
	require.NoError(t, err)
	require.Equal(t, 1, eng.calls())

	req := eng.requests[0]
	require.Equal(t, 1000, req.Pulse.Len())
	require.Equal(t, 100, req.Params.Averages)
	require.Equal(t, "BiPh3", req.Sample.Name)
	require.Equal(t, 83.56e6, req.Sample.ResonantFrequency)

	axis := TimeAxis(seq.Length(), 1000)
	window, ok := LocateWindow(seq)
	require.True(t, ok)
	want := 0
	for _, v := range axis {
		if window.Contains(v) {
			want++
		}
	}
	require.Equal(t, want, m.Len())
	require.InDelta(t, 925, m.Len(), 2)

	for _, v := range m.TimeAxis() {
		require.Greater(t, v, window.Begin)
		require.Less(t, v, window.Stop)
	}
	for _, v := range m.Signal() {
		require.InDelta(t, 0, cmplx.Abs(v-complex(2, 1)), 1e-12)
	}

	require.Equal(t, "2024-05-01 12:00:00 - Simulator - 83.56 MHz - 100 averages - FID", m.Name())
	require.Equal(t, 83.56e6, m.ResonantFrequency())
	require.Equal(t, 83.56e6, m.TargetFrequency())
}

func TestRunNormalizesByReportedAverages(t *testing.T) {
	eng := &fakeEngine{value: 3, averages: 40}
	c := newTestController(t, eng)

	m, err := c.Run(context.Background(), fidSequence(t))
	require.NoError(t, err)
	for _, v := range m.Signal() {
		require.InDelta(t, 3, real(v), 1e-12)
	}
}

func TestRunWithoutWindowKeepsFullSignal(t *testing.T) {
	seq := sequence.New("tx only")
	require.NoError(t, seq.AddPulseEvent("tx", "10u", 1, 0, sequence.RectFunction{}))

	eng := &fakeEngine{value: 1}
	c := newTestController(t, eng)

	m, err := c.Run(context.Background(), seq)
	require.NoError(t, err)
	require.Equal(t, 1000, m.Len())
	axis := m.TimeAxis()
	require.Zero(t, axis[0])
	require.InDelta(t, 10, axis[len(axis)-1], 1e-9)
}

func TestRunAbandonsUntranslatableSequence(t *testing.T) {
	seq := sequence.New("broken")
	require.NoError(t, seq.AddEvent(&sequence.Event{
		Name:       "gate",
		Duration:   1e-6,
		Parameters: []sequence.Parameter{&sequence.ReceiveGate{Enabled: true}},
	}))

	eng := &fakeEngine{value: 1}
	c := newTestController(t, eng)

	m, err := c.Run(context.Background(), seq)
	require.Nil(t, m)
	require.True(t, errors.Is(err, ErrSequenceTranslation))
	require.Zero(t, eng.calls())
}

func TestRunRejectsNonFiniteSequenceLength(t *testing.T) {
	seq := fidSequence(t)
	seq.Events = append(seq.Events, &sequence.Event{Name: "forever", Duration: math.Inf(1)})

	eng := &fakeEngine{value: 1}
	c := newTestController(t, eng)

	m, err := c.Run(context.Background(), seq)
	require.Nil(t, m)
	require.True(t, errors.Is(err, ErrConfiguration))
	require.Zero(t, eng.calls())
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	eng := &fakeEngine{value: 1}
	c := newTestController(t, eng, func(c *Controller) {
		c.cfg.Simulation.Averages = 0
	})

	_, err := c.Run(context.Background(), fidSequence(t))
	require.True(t, errors.Is(err, ErrConfiguration))
	require.Zero(t, eng.calls())
}

func TestRunWrapsEngineErrors(t *testing.T) {
	boom := errors.New("boom")
	c := newTestController(t, &fakeEngine{err: boom})

	_, err := c.Run(context.Background(), fidSequence(t))
	require.True(t, errors.Is(err, ErrEngineInvocation))
	require.True(t, errors.Is(err, boom))
}

func TestRunRejectsBadEngineAverages(t *testing.T) {
	c := newTestController(t, &fakeEngine{value: 1, averages: -1})

	_, err := c.Run(context.Background(), fidSequence(t))
	require.True(t, errors.Is(err, ErrEngineInvocation))
}

func cycledSequence(t *testing.T) *sequence.Sequence {
	t.Helper()
	seq := sequence.New("cycled")
	require.NoError(t, seq.AddPulseEvent("tx", "3u", 1, 0, sequence.RectFunction{}))
	require.NoError(t, seq.AddBlankEvent("blank", "5u"))
	require.NoError(t, seq.AddReadoutEvent("rx", "100u", 0))
	require.NoError(t, seq.SetTxPhaseCycles("tx", 4))
	return seq
}

func TestRunOneEngineCallPerPhaseCycle(t *testing.T) {
	for _, parallel := range []int{1, 3} {
		eng := &fakeEngine{value: complex(1, -1)}
		c := newTestController(t, eng, func(c *Controller) {
			c.cfg.Simulation.MaxParallelRuns = parallel
		})

		m, err := c.Run(context.Background(), cycledSequence(t))
		require.NoError(t, err)
		require.Equal(t, 4, eng.calls(), "parallel %d", parallel)

		// Without phase application the runs are summed and divided by the
		// total averages, so identical runs leave the per-run value.
		for _, v := range m.Signal() {
			require.InDelta(t, 0, cmplx.Abs(v-complex(1, -1)), 1e-12)
		}
	}
}

func TestRunRejectsMismatchedRunLengths(t *testing.T) {
	c := newTestController(t, &fakeEngine{value: 1, short: 1})

	_, err := c.Run(context.Background(), cycledSequence(t))
	require.True(t, errors.Is(err, ErrEngineInvocation))
}

func TestRunAppliesReadoutSchemeWhenPhaseAware(t *testing.T) {
	seq := cycledSequence(t)
	require.NoError(t, seq.SetReadoutScheme("rx", []sequence.ReadoutStep{
		{Weight: 1, Phase: 0},
		{Weight: 1, Phase: 90},
		{Weight: 1, Phase: 180},
		{Weight: 1, Phase: 270},
	}))

	eng := &fakeEngine{value: 1}
	c := newTestController(t, eng, func(c *Controller) {
		c.cfg.Simulation.ApplyTxPhase = true
		c.translator = NewTranslator(true)
	})

	m, err := c.Run(context.Background(), seq)
	require.NoError(t, err)
	require.Equal(t, 4, eng.calls())

	// The fake ignores the pulse phase, so rotating the four runs by the
	// receiver phases cancels the sum.
	for _, v := range m.Signal() {
		require.InDelta(t, 0, cmplx.Abs(v), 1e-12)
	}

	for run, req := range eng.requests {
		require.InDelta(t, float64(run)*math.Pi/2, req.Pulse.Phase[0], 1e-12)
	}
}

func TestPrepareDoesNotCallEngine(t *testing.T) {
	eng := &fakeEngine{value: 1}
	c := newTestController(t, eng)

	plan, err := c.Prepare(cycledSequence(t))
	require.NoError(t, err)
	require.Len(t, plan.Pulses, 4)
	require.Len(t, plan.Cycles, 4)
	require.True(t, plan.HasWindow)
	require.InDelta(t, 108e-9, plan.DwellTime, 1e-15)
	require.Zero(t, eng.calls())
}

func TestExecuteRunsPreparedPlan(t *testing.T) {
	eng := &fakeEngine{value: 1}
	c := newTestController(t, eng)

	_, err := c.Execute(context.Background(), nil)
	require.True(t, errors.Is(err, ErrSequenceTranslation))
	require.Zero(t, eng.calls())

	plan, err := c.Prepare(fidSequence(t))
	require.NoError(t, err)

	m, err := c.Execute(context.Background(), plan)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, len(plan.Pulses), eng.calls())
}
