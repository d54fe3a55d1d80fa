// Package engine defines the contract with the magnetization-simulation
// engine and adapters that reach engines running as separate processes.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Engine errors.
var (
	ErrNoCommand      = errors.New("engine command is required")
	ErrInvalidRequest = errors.New("invalid engine request")
	ErrBadResponse    = errors.New("invalid engine response")
)

// Engine runs one simulation. The returned signal is the sum over
// Result.Averages repetitions.
type Engine interface {
	Simulate(ctx context.Context, req *Request) (*Result, error)
}

// Sample carries the physical constants of the sample. Optional fields are
// zero when unset.
type Sample struct {
	Name              string  `json:"name"`
	Density           float64 `json:"density"`
	MolarMass         float64 `json:"molar_mass"`
	ResonantFrequency float64 `json:"resonant_frequency"`
	Gamma             float64 `json:"gamma"`
	NuclearSpin       float64 `json:"nuclear_spin"`
	SpinFactor        float64 `json:"spin_factor"`
	PowderFactor      float64 `json:"powder_factor"`
	FillingFactor     float64 `json:"filling_factor"`
	T1                float64 `json:"t1"`
	T2                float64 `json:"t2"`
	T2Star            float64 `json:"t2_star"`
	AtomDensity       float64 `json:"atom_density,omitempty"`
	SampleVolume      float64 `json:"sample_volume,omitempty"`
	SampleLength      float64 `json:"sample_length,omitempty"`
	SampleDiameter    float64 `json:"sample_diameter,omitempty"`
}

// PulseArray is the discretized excitation waveform.
type PulseArray struct {
	Amplitude []float64 `json:"amplitude"`
	Phase     []float64 `json:"phase"`

	// DwellTime is the sample interval in seconds.
	DwellTime float64 `json:"dwell_time"`
}

// Len returns the number of samples.
func (p *PulseArray) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Amplitude)
}

// Params are the hardware and noise settings passed through to the engine.
type Params struct {
	NumberIsochromats    int     `json:"number_isochromats"`
	InitialMagnetization float64 `json:"initial_magnetization"`
	Gradient             float64 `json:"gradient"`
	Noise                float64 `json:"noise"`
	LengthCoil           float64 `json:"length_coil"`
	DiameterCoil         float64 `json:"diameter_coil"`
	NumberTurns          float64 `json:"number_turns"`
	QFactorTransmit      float64 `json:"q_factor_transmit"`
	QFactorReceive       float64 `json:"q_factor_receive"`
	PowerAmplifierPower  float64 `json:"power_amplifier_power"`
	Gain                 float64 `json:"gain"`
	Temperature          float64 `json:"temperature"`
	Averages             int     `json:"averages"`
	LossTX               float64 `json:"loss_tx"`
	LossRX               float64 `json:"loss_rx"`
	ConversionFactor     float64 `json:"conversion_factor"`
}

// Request is a single engine invocation.
type Request struct {
	Sample Sample     `json:"sample"`
	Pulse  PulseArray `json:"pulse"`
	Params Params     `json:"params"`
}

// Validate checks structural consistency of the request.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}
	if len(r.Pulse.Amplitude) != len(r.Pulse.Phase) {
		return fmt.Errorf("%w: amplitude has %d samples, phase has %d",
			ErrInvalidRequest, len(r.Pulse.Amplitude), len(r.Pulse.Phase))
	}
	if r.Pulse.DwellTime <= 0 {
		return fmt.Errorf("%w: dwell time must be > 0", ErrInvalidRequest)
	}
	if r.Params.Averages <= 0 {
		return fmt.Errorf("%w: averages must be > 0", ErrInvalidRequest)
	}
	return nil
}

// Result is the accumulated engine output.
type Result struct {
	Signal   []complex128
	Averages int
}
