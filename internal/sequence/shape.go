package sequence

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Shape is a pulse envelope. Amplitude samples the envelope over a pulse of
// the given duration at the given resolution (both in seconds) and returns
// SampleCount(duration, resolution) values.
type Shape interface {
	Name() string
	Amplitude(duration, resolution float64) []float64
}

// SampleCount is the number of samples an event of the given duration
// occupies at the given resolution.
func SampleCount(duration, resolution float64) int {
	if resolution <= 0 || duration <= 0 {
		return 0
	}
	return int(math.Round(duration / resolution))
}

// RectFunction is a constant envelope.
type RectFunction struct{}

// Name implements Shape.
func (RectFunction) Name() string { return "rect" }

// Amplitude implements Shape.
func (RectFunction) Amplitude(duration, resolution float64) []float64 {
	n := SampleCount(duration, resolution)
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// SincFunction is sin(l·x)/(l·x) evaluated over x in [-π, π].
type SincFunction struct {
	L float64
}

// DefaultSinc returns the sinc envelope used by the builtin sequences.
func DefaultSinc() SincFunction { return SincFunction{L: 3} }

// Name implements Shape.
func (f SincFunction) Name() string { return fmt.Sprintf("sinc(l=%g)", f.L) }

// Amplitude implements Shape.
func (f SincFunction) Amplitude(duration, resolution float64) []float64 {
	x := axis(SampleCount(duration, resolution), -math.Pi, math.Pi)
	for i, v := range x {
		arg := f.L * v
		if arg == 0 {
			x[i] = 1
			continue
		}
		x[i] = math.Sin(arg) / arg
	}
	return x
}

// GaussianFunction is exp(-0.5·((x-mu)/sigma)²) evaluated over x in [-π, π].
type GaussianFunction struct {
	Mu    float64
	Sigma float64
}

// DefaultGaussian returns the unit gaussian envelope.
func DefaultGaussian() GaussianFunction { return GaussianFunction{Mu: 0, Sigma: 1} }

// Name implements Shape.
func (f GaussianFunction) Name() string {
	return fmt.Sprintf("gaussian(mu=%g,sigma=%g)", f.Mu, f.Sigma)
}

// Amplitude implements Shape.
func (f GaussianFunction) Amplitude(duration, resolution float64) []float64 {
	x := axis(SampleCount(duration, resolution), -math.Pi, math.Pi)
	sigma := f.Sigma
	if sigma == 0 {
		sigma = 1
	}
	for i, v := range x {
		z := (v - f.Mu) / sigma
		x[i] = math.Exp(-0.5 * z * z)
	}
	return x
}

// ShapeByName resolves a shape from its configuration name.
func ShapeByName(name string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rect", "rectangular":
		return RectFunction{}, nil
	case "sinc":
		return DefaultSinc(), nil
	case "gaussian", "gauss":
		return DefaultGaussian(), nil
	default:
		return nil, fmt.Errorf("unknown pulse shape %q", name)
	}
}

// axis returns n evenly spaced points over [lo, hi].
func axis(n int, lo, hi float64) []float64 {
	switch {
	case n <= 0:
		return []float64{}
	case n == 1:
		return []float64{(lo + hi) / 2}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
