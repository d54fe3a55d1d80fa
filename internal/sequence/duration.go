package sequence

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Divisors keep "3u" bit-identical to 3e-6.
var durationSuffixes = map[string]float64{
	"n": 1e9,
	"u": 1e6,
	"µ": 1e6,
	"m": 1e3,
	"s": 1,
}

// ParseDuration converts a duration string to seconds.
//
// Accepted forms: plain seconds ("0.001"), a single SI suffix ("3u", "150u",
// "1m", "20n"), or a Go duration ("3us", "1.5ms").
func ParseDuration(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("duration is required")
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		return checkDuration(value, seconds)
	}

	for suffix, divisor := range durationSuffixes {
		number, ok := strings.CutSuffix(value, suffix)
		if !ok {
			continue
		}
		if n, err := strconv.ParseFloat(strings.TrimSpace(number), 64); err == nil {
			return checkDuration(value, n/divisor)
		}
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return checkDuration(value, d.Seconds())
}

func checkDuration(raw string, seconds float64) (float64, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("duration %q must be finite", raw)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", raw)
	}
	return seconds, nil
}

// FormatDuration renders seconds with the most readable SI suffix.
func FormatDuration(seconds float64) string {
	switch {
	case seconds == 0:
		return "0"
	case seconds < 1e-6:
		return strconv.FormatFloat(seconds*1e9, 'g', -1, 64) + "n"
	case seconds < 1e-3:
		return strconv.FormatFloat(seconds*1e6, 'g', -1, 64) + "u"
	case seconds < 1:
		return strconv.FormatFloat(seconds*1e3, 'g', -1, 64) + "m"
	default:
		return strconv.FormatFloat(seconds, 'g', -1, 64)
	}
}
