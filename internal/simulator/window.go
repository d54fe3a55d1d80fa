package simulator

import "github.com/nqrduck/quacksim/internal/sequence"

// Window is the receive interval in microseconds of sequence time.
type Window struct {
	Begin float64
	Stop  float64
}

// LocateWindow returns the span of the first receive-enabled event. ok is
// false when the sequence never enables the receiver.
func LocateWindow(seq *sequence.Sequence) (w Window, ok bool) {
	if seq == nil {
		return Window{}, false
	}
	elapsed := 0.0
	for _, event := range seq.Events {
		if event.IsReadout() {
			return Window{
				Begin: elapsed * 1e6,
				Stop:  (elapsed + event.Duration) * 1e6,
			}, true
		}
		elapsed += event.Duration
	}
	return Window{}, false
}

// Contains reports whether t lies strictly inside the window.
func (w Window) Contains(t float64) bool {
	return t > w.Begin && t < w.Stop
}

// Crop keeps the samples whose time lies strictly inside the window.
func (w Window) Crop(timeAxis []float64, signal []complex128) ([]float64, []complex128) {
	n := min(len(timeAxis), len(signal))
	tdx := make([]float64, 0, n)
	tdy := make([]complex128, 0, n)
	for i := 0; i < n; i++ {
		if w.Contains(timeAxis[i]) {
			tdx = append(tdx, timeAxis[i])
			tdy = append(tdy, signal[i])
		}
	}
	return tdx, tdy
}
