package simulator

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nqrduck/quacksim/internal/engine"
	"github.com/nqrduck/quacksim/internal/logging"
	"github.com/nqrduck/quacksim/internal/sequence"
	"github.com/rs/zerolog"
)

const envelopeCacheSize = 256

type envelopeKey struct {
	shape      string
	duration   float64
	resolution float64
}

// Translator turns a sequence into a discretized pulse waveform.
type Translator struct {
	applyPhase bool
	envelopes  *lru.Cache[envelopeKey, []float64]
	logger     zerolog.Logger
}

// NewTranslator creates a translator. When applyPhase is false the phase
// array is all zeros regardless of the declared transmit phases.
func NewTranslator(applyPhase bool) *Translator {
	cache, _ := lru.New[envelopeKey, []float64](envelopeCacheSize)
	return &Translator{
		applyPhase: applyPhase,
		envelopes:  cache,
		logger:     logging.Component("translator"),
	}
}

// Translate discretizes seq at the given dwell time for one phase-cycle run.
// Every event must carry a transmit parameter; an event of duration d
// contributes round(d/dwell) samples.
func (t *Translator) Translate(seq *sequence.Sequence, dwell float64, cycle sequence.Cycle) (*engine.PulseArray, error) {
	if !(dwell > 0) || math.IsInf(dwell, 0) {
		return nil, fmt.Errorf("%w: dwell time must be finite and > 0, got %g", ErrConfiguration, dwell)
	}

	total := 0
	for _, event := range seq.Events {
		total += sequence.SampleCount(event.Duration, dwell)
	}
	amplitude := make([]float64, 0, total)
	phase := make([]float64, 0, total)

	for i, event := range seq.Events {
		tx := event.Transmit()
		if tx == nil {
			return nil, fmt.Errorf("%w: event %q has no transmit parameter", ErrSequenceTranslation, event.Name)
		}
		n := sequence.SampleCount(event.Duration, dwell)

		if tx.Amplitude != 0 {
			if tx.Shape == nil {
				return nil, fmt.Errorf("%w: pulse %q has no shape", ErrSequenceTranslation, event.Name)
			}
			envelope := t.envelope(tx.Shape, event.Duration, dwell)
			if len(envelope) != n {
				return nil, fmt.Errorf("%w: shape %s returned %d samples for %q, want %d",
					ErrSequenceTranslation, tx.Shape.Name(), len(envelope), event.Name, n)
			}
			t.logger.Debug().
				Str("event", event.Name).
				Float64("duration", event.Duration).
				Int("samples", n).
				Msg("adding pulse")
			for _, v := range envelope {
				amplitude = append(amplitude, math.Abs(v))
			}
		} else {
			amplitude = append(amplitude, make([]float64, n)...)
		}

		value := 0.0
		if t.applyPhase {
			value = cycle.TxPhase(i, tx) * math.Pi / 180
		}
		for j := 0; j < n; j++ {
			phase = append(phase, value)
		}
	}

	if !t.applyPhase {
		t.logger.Debug().Str("sequence", seq.Name).Msg("phase array is all zeros; per-event transmit phase not applied")
	}

	return &engine.PulseArray{
		Amplitude: amplitude,
		Phase:     phase,
		DwellTime: dwell,
	}, nil
}

func (t *Translator) envelope(shape sequence.Shape, duration, resolution float64) []float64 {
	key := envelopeKey{shape: shape.Name(), duration: duration, resolution: resolution}
	if cached, ok := t.envelopes.Get(key); ok {
		return cached
	}
	samples := shape.Amplitude(duration, resolution)
	t.envelopes.Add(key, samples)
	return samples
}
