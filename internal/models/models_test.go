package models

import (
	"errors"
	"testing"

	"github.com/nqrduck/quacksim/internal/measurement"
)

func TestEventValidate(t *testing.T) {
	event := &Event{Type: EventTypeRunCompleted, EntityType: EntityTypeSequence}
	err := event.Validate()
	if err == nil {
		t.Fatal("expected validation error for missing entity id")
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error %v does not wrap ErrValidation", err)
	}

	event.EntityID = "FID"
	if err := event.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestMeasurementRecordValidate(t *testing.T) {
	m, err := measurement.New("m", []float64{0, 1}, []complex128{1, 2}, 83.56e6)
	if err != nil {
		t.Fatalf("measurement.New() error = %v", err)
	}

	rec := &MeasurementRecord{}
	verr := rec.Validate()
	var ve *ValidationErrors
	if !errors.As(verr, &ve) {
		t.Fatalf("expected ValidationErrors, got %v", verr)
	}
	if len(ve.Errors) != 3 {
		t.Fatalf("got %d field errors, want 3: %v", len(ve.Errors), verr)
	}

	rec = &MeasurementRecord{Sequence: "FID", Averages: 100, Measurement: m}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
