// Package measurement holds the immutable result of a simulation run.
package measurement

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrLengthMismatch is returned when the time axis and signal differ in length.
var ErrLengthMismatch = errors.New("time axis and signal length differ")

// Measurement is a windowed, normalized time-domain signal. All accessors
// return copies; a Measurement never changes after New.
type Measurement struct {
	name              string
	timeAxis          []float64 // microseconds, ascending
	signal            []complex128
	resonantFrequency float64
	targetFrequency   float64
	frequencyShift    float64
	hasShift          bool
}

// Option configures optional measurement fields.
type Option func(*Measurement)

// WithFrequencyShift sets the frequency shift in Hz applied to the spectrum axis.
func WithFrequencyShift(hz float64) Option {
	return func(m *Measurement) {
		m.frequencyShift = hz
		m.hasShift = true
	}
}

// WithTargetFrequency records the spectrometer target frequency in Hz.
func WithTargetFrequency(hz float64) Option {
	return func(m *Measurement) {
		m.targetFrequency = hz
	}
}

// New builds a measurement from a time axis in microseconds and a matching signal.
func New(name string, timeAxis []float64, signal []complex128, resonantFrequency float64, opts ...Option) (*Measurement, error) {
	if len(timeAxis) != len(signal) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(timeAxis), len(signal))
	}
	m := &Measurement{
		name:              name,
		timeAxis:          append([]float64(nil), timeAxis...),
		signal:            append([]complex128(nil), signal...),
		resonantFrequency: resonantFrequency,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Name returns the human-readable identifier.
func (m *Measurement) Name() string { return m.name }

// Len returns the number of samples.
func (m *Measurement) Len() int { return len(m.signal) }

// TimeAxis returns sample times in microseconds.
func (m *Measurement) TimeAxis() []float64 { return append([]float64(nil), m.timeAxis...) }

// Signal returns the complex time-domain samples.
func (m *Measurement) Signal() []complex128 { return append([]complex128(nil), m.signal...) }

// ResonantFrequency returns the sample's resonant frequency in Hz.
func (m *Measurement) ResonantFrequency() float64 { return m.resonantFrequency }

// TargetFrequency returns the spectrometer target frequency in Hz, or 0.
func (m *Measurement) TargetFrequency() float64 { return m.targetFrequency }

// FrequencyShift returns the optional frequency shift in Hz.
func (m *Measurement) FrequencyShift() (float64, bool) { return m.frequencyShift, m.hasShift }

// FrequencyDomain returns the centred spectrum and its axis in kHz.
func (m *Measurement) FrequencyDomain() (freqKHz []float64, spectrum []complex128) {
	n := len(m.signal)
	switch n {
	case 0:
		return []float64{}, []complex128{}
	case 1:
		return []float64{m.frequencyShift / 1e3}, []complex128{m.signal[0]}
	}

	fft := fourier.NewCmplxFFT(n)
	coeffs := fft.Coefficients(nil, m.signal)

	// Sample spacing in seconds.
	d := (m.timeAxis[1] - m.timeAxis[0]) * 1e-6

	freqKHz = make([]float64, n)
	spectrum = make([]complex128, n)
	half := n / 2
	for i := 0; i < n; i++ {
		src := (i + n - half) % n // fftshift
		k := src
		if src >= (n+1)/2 {
			k = src - n
		}
		spectrum[i] = coeffs[src]
		if d != 0 {
			freqKHz[i] = float64(k)/(float64(n)*d)/1e3 + m.frequencyShift/1e3
		}
	}
	return freqKHz, spectrum
}

type measurementJSON struct {
	Name              string    `json:"name"`
	TimeAxis          []float64 `json:"time_axis_us"`
	Real              []float64 `json:"real"`
	Imag              []float64 `json:"imag"`
	ResonantFrequency float64   `json:"resonant_frequency"`
	TargetFrequency   float64   `json:"target_frequency,omitempty"`
	FrequencyShift    *float64  `json:"frequency_shift,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (m *Measurement) MarshalJSON() ([]byte, error) {
	out := measurementJSON{
		Name:              m.name,
		TimeAxis:          m.timeAxis,
		Real:              make([]float64, len(m.signal)),
		Imag:              make([]float64, len(m.signal)),
		ResonantFrequency: m.resonantFrequency,
		TargetFrequency:   m.targetFrequency,
	}
	for i, v := range m.signal {
		out.Real[i] = real(v)
		out.Imag[i] = imag(v)
	}
	if m.hasShift {
		shift := m.frequencyShift
		out.FrequencyShift = &shift
	}
	return json.Marshal(out)
}

// Decode parses the JSON form produced by MarshalJSON.
func Decode(data []byte) (*Measurement, error) {
	var in measurementJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, err
	}
	if len(in.Real) != len(in.Imag) {
		return nil, fmt.Errorf("%w: real %d vs imag %d", ErrLengthMismatch, len(in.Real), len(in.Imag))
	}
	signal := make([]complex128, len(in.Real))
	for i := range signal {
		signal[i] = complex(in.Real[i], in.Imag[i])
	}
	opts := []Option{WithTargetFrequency(in.TargetFrequency)}
	if in.FrequencyShift != nil {
		opts = append(opts, WithFrequencyShift(*in.FrequencyShift))
	}
	return New(in.Name, in.TimeAxis, signal, in.ResonantFrequency, opts...)
}
