package simulator

import (
	"fmt"
	"math"

	"github.com/nqrduck/quacksim/internal/sequence"
)

// DwellTime returns the sample interval in seconds that spreads points
// samples over the full sequence length.
func DwellTime(seq *sequence.Sequence, points int) (float64, error) {
	if points <= 0 {
		return 0, fmt.Errorf("%w: number of points must be > 0, got %d", ErrConfiguration, points)
	}
	if seq == nil || len(seq.Events) == 0 {
		return 0, fmt.Errorf("%w: sequence has no events", ErrConfiguration)
	}
	length := seq.Length()
	if math.IsNaN(length) || math.IsInf(length, 0) {
		return 0, fmt.Errorf("%w: sequence %q has non-finite length %g s", ErrConfiguration, seq.Name, length)
	}
	if length <= 0 {
		return 0, fmt.Errorf("%w: sequence %q has non-positive length %g s", ErrConfiguration, seq.Name, length)
	}
	return length / float64(points), nil
}
