package models

import (
	"strings"
	"time"

	"github.com/nqrduck/quacksim/internal/measurement"
)

// MeasurementRecord is a stored simulation result.
type MeasurementRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sequence  string    `json:"sequence"`
	Engine    string    `json:"engine"`
	Averages  int       `json:"averages"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`

	// Measurement is nil in list results.
	Measurement *measurement.Measurement `json:"measurement,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks required fields.
func (r *MeasurementRecord) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(r.Sequence) == "" {
		validation.AddMessage("sequence", "sequence is required")
	}
	if r.Measurement == nil {
		validation.AddMessage("measurement", "measurement data is required")
	}
	if r.Averages <= 0 {
		validation.AddMessage("averages", "averages must be > 0")
	}
	return validation.Err()
}
