// Package simulator translates pulse sequences into engine input, runs the
// simulation engine, and windows and normalizes its output into a measurement.
package simulator

import "errors"

// Run errors. Callers distinguish them with errors.Is.
var (
	// ErrConfiguration marks missing or invalid numeric configuration.
	ErrConfiguration = errors.New("invalid simulation configuration")

	// ErrSequenceTranslation marks a sequence the translator cannot interpret.
	// The run is abandoned and no measurement is produced.
	ErrSequenceTranslation = errors.New("pulse sequence could not be translated")

	// ErrEngineInvocation marks a failure inside the simulation engine.
	ErrEngineInvocation = errors.New("simulation engine failed")
)
