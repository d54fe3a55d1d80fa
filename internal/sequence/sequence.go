// Package sequence models NQR pulse sequences: ordered, timed events carrying
// transmit and receive parameters.
package sequence

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Sequence errors.
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrDuplicateEvent = errors.New("duplicate event name")
	ErrInvalidEvent   = errors.New("invalid event")
)

// Sequence is an ordered list of events executed back to back from t = 0.
type Sequence struct {
	Name        string
	Description string
	Tags        []string
	Events      []*Event
	Source      string // file path or "builtin"
}

// Event is a single timed step of a sequence.
type Event struct {
	Name string

	// Duration in seconds.
	Duration float64

	Parameters []Parameter
}

// Parameter is the closed set of event parameters: *TransmitPulse or *ReceiveGate.
type Parameter interface {
	parameterKind() string
}

// TransmitPulse describes the transmitter during an event. A zero Amplitude
// marks a blank (wait) interval.
type TransmitPulse struct {
	// Amplitude is the relative amplitude in percent.
	Amplitude float64

	// Phase in degrees.
	Phase float64

	Shape Shape

	// PhaseCycles is the number of phase-cycle steps; values <= 1 disable cycling.
	PhaseCycles int

	// PhaseCycleGroup co-varies events that share the same id.
	PhaseCycleGroup int
}

// ReceiveGate describes the receiver during an event.
type ReceiveGate struct {
	Enabled bool

	// Phase in degrees.
	Phase float64

	// ReadoutScheme weights each phase-cycle run; empty means weight 1, phase 0.
	ReadoutScheme []ReadoutStep
}

// ReadoutStep is the receiver weight and phase applied to one phase-cycle run.
type ReadoutStep struct {
	Weight float64 `yaml:"weight" json:"weight"`
	Phase  float64 `yaml:"phase" json:"phase"`
}

func (*TransmitPulse) parameterKind() string { return "tx" }
func (*ReceiveGate) parameterKind() string   { return "rx" }

// New creates an empty sequence.
func New(name string) *Sequence {
	return &Sequence{Name: strings.TrimSpace(name)}
}

// Length returns the total sequence duration in seconds.
func (s *Sequence) Length() float64 {
	if s == nil {
		return 0
	}
	total := 0.0
	for _, event := range s.Events {
		total += event.Duration
	}
	return total
}

// Event returns the event with the given name.
func (s *Sequence) Event(name string) (*Event, error) {
	for _, event := range s.Events {
		if event.Name == name {
			return event, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrEventNotFound, name)
}

// AddEvent appends an event.
func (s *Sequence) AddEvent(event *Event) error {
	if event == nil {
		return fmt.Errorf("%w: event is nil", ErrInvalidEvent)
	}
	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalidEvent)
	}
	if math.IsNaN(event.Duration) || math.IsInf(event.Duration, 0) {
		return fmt.Errorf("%w: event %q has non-finite duration", ErrInvalidEvent, event.Name)
	}
	if event.Duration < 0 {
		return fmt.Errorf("%w: event %q has negative duration", ErrInvalidEvent, event.Name)
	}
	if _, err := s.Event(event.Name); err == nil {
		return fmt.Errorf("%w: %q", ErrDuplicateEvent, event.Name)
	}
	s.Events = append(s.Events, event)
	return nil
}

// AddPulseEvent appends a transmit pulse.
func (s *Sequence) AddPulseEvent(name, duration string, amplitude, phase float64, shape Shape) error {
	seconds, err := ParseDuration(duration)
	if err != nil {
		return err
	}
	return s.AddEvent(&Event{
		Name:     name,
		Duration: seconds,
		Parameters: []Parameter{
			&TransmitPulse{Amplitude: amplitude, Phase: phase, Shape: shape},
			&ReceiveGate{},
		},
	})
}

// AddBlankEvent appends a wait interval with the transmitter off.
func (s *Sequence) AddBlankEvent(name, duration string) error {
	seconds, err := ParseDuration(duration)
	if err != nil {
		return err
	}
	return s.AddEvent(&Event{
		Name:       name,
		Duration:   seconds,
		Parameters: []Parameter{&TransmitPulse{}, &ReceiveGate{}},
	})
}

// AddReadoutEvent appends a receive window.
func (s *Sequence) AddReadoutEvent(name, duration string, phase float64) error {
	seconds, err := ParseDuration(duration)
	if err != nil {
		return err
	}
	return s.AddEvent(&Event{
		Name:       name,
		Duration:   seconds,
		Parameters: []Parameter{&TransmitPulse{}, &ReceiveGate{Enabled: true, Phase: phase}},
	})
}

// SetTxPhaseCycles sets the number of phase-cycle steps for an event's pulse.
func (s *Sequence) SetTxPhaseCycles(name string, cycles int) error {
	if cycles < 0 {
		return fmt.Errorf("%w: phase cycles must be >= 0", ErrInvalidEvent)
	}
	tx, err := s.transmit(name)
	if err != nil {
		return err
	}
	tx.PhaseCycles = cycles
	return nil
}

// SetTxPhaseCycleGroup assigns an event's pulse to a phase-cycle group.
func (s *Sequence) SetTxPhaseCycleGroup(name string, group int) error {
	tx, err := s.transmit(name)
	if err != nil {
		return err
	}
	tx.PhaseCycleGroup = group
	return nil
}

// SetReadoutScheme sets per-run receiver weights on a readout event.
func (s *Sequence) SetReadoutScheme(name string, scheme []ReadoutStep) error {
	event, err := s.Event(name)
	if err != nil {
		return err
	}
	rx := event.Receive()
	if rx == nil {
		return fmt.Errorf("%w: event %q has no receive parameter", ErrInvalidEvent, name)
	}
	rx.ReadoutScheme = append([]ReadoutStep(nil), scheme...)
	return nil
}

func (s *Sequence) transmit(name string) (*TransmitPulse, error) {
	event, err := s.Event(name)
	if err != nil {
		return nil, err
	}
	tx := event.Transmit()
	if tx == nil {
		return nil, fmt.Errorf("%w: event %q has no transmit parameter", ErrInvalidEvent, name)
	}
	return tx, nil
}

// Transmit returns the event's transmit parameter, or nil.
func (e *Event) Transmit() *TransmitPulse {
	for _, p := range e.Parameters {
		if tx, ok := p.(*TransmitPulse); ok {
			return tx
		}
	}
	return nil
}

// Receive returns the event's receive parameter, or nil.
func (e *Event) Receive() *ReceiveGate {
	for _, p := range e.Parameters {
		if rx, ok := p.(*ReceiveGate); ok {
			return rx
		}
	}
	return nil
}

// IsReadout reports whether the receiver is enabled during the event.
func (e *Event) IsReadout() bool {
	rx := e.Receive()
	return rx != nil && rx.Enabled
}
