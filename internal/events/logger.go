// Package events records simulation runs in the history ledger.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nqrduck/quacksim/internal/models"
	"github.com/nqrduck/quacksim/internal/simulator"
)

// Repository is the minimal interface needed to write events.
type Repository interface {
	Create(ctx context.Context, event *models.Event) error
}

// RunCompleted describes a successful run.
type RunCompleted struct {
	Sequence      string
	MeasurementID string // empty when the measurement was not saved
	Measurement   string
	Engine        string
	Runs          int
	Points        int
	Duration      time.Duration
}

// LogRunCompleted records a successful simulation of a sequence.
func LogRunCompleted(ctx context.Context, repo Repository, run RunCompleted) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if run.Sequence == "" {
		return fmt.Errorf("sequence name is required")
	}

	payload, err := json.Marshal(models.RunCompletedPayload{
		MeasurementID: run.MeasurementID,
		Measurement:   run.Measurement,
		Engine:        run.Engine,
		Runs:          run.Runs,
		Points:        run.Points,
		Duration:      run.Duration.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal run payload: %w", err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       models.EventTypeRunCompleted,
		EntityType: models.EntityTypeSequence,
		EntityID:   run.Sequence,
		Payload:    payload,
	})
}

// LogRunAbandoned records a run that produced no measurement.
func LogRunAbandoned(ctx context.Context, repo Repository, sequence, engine string, runErr error) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if sequence == "" {
		return fmt.Errorf("sequence name is required")
	}
	if runErr == nil {
		return fmt.Errorf("run error is required")
	}

	payload, err := json.Marshal(models.RunAbandonedPayload{
		Engine: engine,
		Reason: AbandonReason(runErr),
		Error:  runErr.Error(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal abandon payload: %w", err)
	}

	return repo.Create(ctx, &models.Event{
		Type:       models.EventTypeRunAbandoned,
		EntityType: models.EntityTypeSequence,
		EntityID:   sequence,
		Payload:    payload,
	})
}

// AbandonReason classifies a run error for the ledger.
func AbandonReason(err error) string {
	switch {
	case errors.Is(err, simulator.ErrConfiguration):
		return "configuration"
	case errors.Is(err, simulator.ErrSequenceTranslation):
		return "translation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, simulator.ErrEngineInvocation):
		return "engine"
	default:
		return "unknown"
	}
}

// LogMeasurementDeleted records removal of a stored measurement.
func LogMeasurementDeleted(ctx context.Context, repo Repository, measurementID string) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if measurementID == "" {
		return fmt.Errorf("measurement id is required")
	}
	return repo.Create(ctx, &models.Event{
		Type:       models.EventTypeMeasurementDeleted,
		EntityType: models.EntityTypeMeasurement,
		EntityID:   measurementID,
	})
}

// LogMeasurementExported records an export of a stored measurement.
func LogMeasurementExported(ctx context.Context, repo Repository, measurementID, domain, path string) error {
	if repo == nil {
		return fmt.Errorf("event repository is required")
	}
	if measurementID == "" {
		return fmt.Errorf("measurement id is required")
	}
	return repo.Create(ctx, &models.Event{
		Type:       models.EventTypeMeasurementExported,
		EntityType: models.EntityTypeMeasurement,
		EntityID:   measurementID,
		Metadata:   map[string]string{"domain": domain, "path": path},
	})
}
