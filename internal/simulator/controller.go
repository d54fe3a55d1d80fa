package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"github.com/nqrduck/quacksim/internal/config"
	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/measurement"
	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const measurementTimeLayout = "2006-01-02 15:04:05"

// Controller runs pulse sequences against a simulation engine.
type Controller struct {
	cfg        *config.Config
	engine     engine.Engine
	translator *Translator
	logger     zerolog.Logger
	now        func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the clock used for measurement names.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// New creates a controller bound to cfg and eng. eng may be nil for a
// controller that only prepares plans.
func New(cfg *config.Config, eng engine.Engine, opts ...Option) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrConfiguration)
	}
	c := &Controller{
		cfg:        cfg,
		engine:     eng,
		translator: NewTranslator(cfg.Simulation.ApplyTxPhase),
		logger:     logging.Component("simulator"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.Simulation.ApplyTxPhase {
		c.logger.Info().Msg("apply_tx_phase enabled: pulse phase array follows per-event transmit phases")
	}
	return c, nil
}

// Plan is a translated sequence ready to be sent to the engine.
type Plan struct {
	Sequence  *sequence.Sequence
	DwellTime float64
	Cycles    []sequence.Cycle
	Pulses    []*engine.PulseArray
	Window    Window
	HasWindow bool
}

// Prepare validates the configuration and translates seq once per
// phase-cycle run without invoking the engine.
func (c *Controller) Prepare(seq *sequence.Sequence) (*Plan, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	dwell, err := DwellTime(seq, c.cfg.Simulation.NumberPoints)
	if err != nil {
		return nil, err
	}

	table, err := sequence.NewPhaseTable(seq)
	if err != nil {
		c.logger.Warn().Err(err).Str("sequence", seq.Name).Msg("could not translate pulse sequence")
		return nil, fmt.Errorf("%w: %w", ErrSequenceTranslation, err)
	}
	if table.Runs() > 1 && !c.cfg.Simulation.ApplyTxPhase {
		c.logger.Warn().
			Int("runs", table.Runs()).
			Msg("phase cycles declared but transmit phase is not applied; runs differ only in noise")
	}

	plan := &Plan{
		Sequence:  seq,
		DwellTime: dwell,
		Cycles:    table.Cycles(),
	}
	for _, cycle := range plan.Cycles {
		pulse, err := c.translator.Translate(seq, dwell, cycle)
		if err != nil {
			c.logger.Warn().Err(err).Str("sequence", seq.Name).Int("run", cycle.Run).Msg("could not translate pulse sequence")
			if !errors.Is(err, ErrSequenceTranslation) {
				err = fmt.Errorf("%w: %w", ErrSequenceTranslation, err)
			}
			return nil, err
		}
		plan.Pulses = append(plan.Pulses, pulse)
	}
	plan.Window, plan.HasWindow = LocateWindow(seq)

	c.logger.Debug().
		Str("sequence", seq.Name).
		Float64("dwell_time", dwell).
		Int("samples", plan.Pulses[0].Len()).
		Int("runs", len(plan.Pulses)).
		Msg("sequence translated")
	return plan, nil
}

// Run executes one simulation of seq and returns the windowed, normalized
// measurement.
func (c *Controller) Run(ctx context.Context, seq *sequence.Sequence) (*measurement.Measurement, error) {
	if c.engine == nil {
		return nil, fmt.Errorf("%w: no simulation engine configured", ErrConfiguration)
	}
	plan, err := c.Prepare(seq)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, plan)
}

// Execute sends a prepared plan to the engine and returns the windowed,
// normalized measurement.
func (c *Controller) Execute(ctx context.Context, plan *Plan) (*measurement.Measurement, error) {
	if c.engine == nil {
		return nil, fmt.Errorf("%w: no simulation engine configured", ErrConfiguration)
	}
	if plan == nil || plan.Sequence == nil || len(plan.Pulses) == 0 {
		return nil, fmt.Errorf("%w: empty simulation plan", ErrSequenceTranslation)
	}
	seq := plan.Sequence

	sample := SampleFromConfig(c.cfg.Sample)
	params := ParamsFromConfig(c.cfg)
	c.logger.Info().
		Str("sequence", seq.Name).
		Str("sample", sample.Name).
		Int("averages", params.Averages).
		Int("runs", len(plan.Pulses)).
		Msg("starting simulation")

	results, err := c.simulate(ctx, sample, params, plan.Pulses)
	if err != nil {
		return nil, err
	}

	signal, averages, err := c.accumulate(plan.Cycles, results)
	if err != nil {
		return nil, err
	}

	tdx := TimeAxis(seq.Length(), len(signal))
	if plan.HasWindow {
		tdx, signal = plan.Window.Crop(tdx, signal)
	}

	scale := complex(float64(averages), 0)
	for i := range signal {
		signal[i] /= scale
	}

	name := c.measurementName(seq)
	m, err := measurement.New(name, tdx, signal, sample.ResonantFrequency,
		measurement.WithTargetFrequency(c.cfg.Simulation.TargetFrequency))
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("measurement", name).
		Int("points", m.Len()).
		Msg("simulation finished")
	return m, nil
}

func (c *Controller) simulate(ctx context.Context, sample engine.Sample, params engine.Params, pulses []*engine.PulseArray) ([]*engine.Result, error) {
	results := make([]*engine.Result, len(pulses))
	limit := c.cfg.Simulation.MaxParallelRuns

	call := func(ctx context.Context, run int) error {
		req := &engine.Request{Sample: sample, Pulse: *pulses[run], Params: params}
		res, err := c.engine.Simulate(ctx, req)
		if err != nil {
			return fmt.Errorf("%w: run %d: %w", ErrEngineInvocation, run, err)
		}
		if res == nil {
			return fmt.Errorf("%w: run %d: engine returned no result", ErrEngineInvocation, run)
		}
		if res.Averages <= 0 {
			return fmt.Errorf("%w: run %d: engine reported %d averages", ErrEngineInvocation, run, res.Averages)
		}
		results[run] = res
		return nil
	}

	if limit <= 1 || len(pulses) == 1 {
		for run := range pulses {
			if err := call(ctx, run); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for run := range pulses {
		g.Go(func() error {
			return call(gctx, run)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// accumulate sums run signals in index order and returns the total engine
// averages.
func (c *Controller) accumulate(cycles []sequence.Cycle, results []*engine.Result) ([]complex128, int, error) {
	n := len(results[0].Signal)
	sum := make([]complex128, n)
	averages := 0
	for run, res := range results {
		if len(res.Signal) != n {
			return nil, 0, fmt.Errorf("%w: run %d returned %d samples, run 0 returned %d",
				ErrEngineInvocation, run, len(res.Signal), n)
		}
		weight := c.readoutWeight(cycles[run])
		for i, v := range res.Signal {
			sum[i] += v * weight
		}
		averages += res.Averages
	}
	return sum, averages, nil
}

func (c *Controller) readoutWeight(cycle sequence.Cycle) complex128 {
	if !c.cfg.Simulation.ApplyTxPhase {
		return 1
	}
	step := cycle.Readout()
	return complex(step.Weight, 0) * cmplx.Exp(complex(0, -step.Phase*math.Pi/180))
}

func (c *Controller) measurementName(seq *sequence.Sequence) string {
	return fmt.Sprintf("%s - Simulator - %g MHz - %d averages - %s",
		c.now().Format(measurementTimeLayout),
		c.cfg.Simulation.TargetFrequency/1e6,
		c.cfg.Simulation.Averages,
		seq.Name)
}

// TimeAxis spreads n points evenly over [0, length] seconds and returns the
// axis in microseconds.
func TimeAxis(length float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{0}
	}
	axis := make([]float64, n)
	floats.Span(axis, 0, length*1e6)
	return axis
}
