package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nqrduck/quacksim/internal/models"
	"github.com/nqrduck/quacksim/internal/simulator"
)

type fakeRepo struct {
	last *models.Event
}

func (r *fakeRepo) Create(ctx context.Context, event *models.Event) error {
	r.last = event
	return nil
}

func TestLogRunCompleted(t *testing.T) {
	repo := &fakeRepo{}

	err := LogRunCompleted(context.Background(), repo, RunCompleted{
		Sequence:      "SEPC",
		MeasurementID: "m-1",
		Measurement:   "2024-05-01 12:00:00 - Simulator - 83.56 MHz - 100 averages - SEPC",
		Engine:        "exec",
		Runs:          4,
		Points:        925,
		Duration:      1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("LogRunCompleted failed: %v", err)
	}

	if repo.last == nil {
		t.Fatal("expected event to be created")
	}
	if repo.last.Type != models.EventTypeRunCompleted {
		t.Fatalf("unexpected event type: %q", repo.last.Type)
	}
	if repo.last.EntityID != "SEPC" {
		t.Fatalf("unexpected entity id: %q", repo.last.EntityID)
	}

	var payload models.RunCompletedPayload
	if err := json.Unmarshal(repo.last.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Runs != 4 || payload.Duration != "1.5s" || payload.MeasurementID != "m-1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestLogRunAbandoned(t *testing.T) {
	repo := &fakeRepo{}
	runErr := fmt.Errorf("%w: event %q has no transmit parameter", simulator.ErrSequenceTranslation, "gate")

	if err := LogRunAbandoned(context.Background(), repo, "broken", "exec", runErr); err != nil {
		t.Fatalf("LogRunAbandoned failed: %v", err)
	}
	if repo.last.Type != models.EventTypeRunAbandoned {
		t.Fatalf("unexpected event type: %q", repo.last.Type)
	}

	var payload models.RunAbandonedPayload
	if err := json.Unmarshal(repo.last.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Reason != "translation" {
		t.Fatalf("Reason = %q, want translation", payload.Reason)
	}
}

func TestAbandonReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", simulator.ErrConfiguration), "configuration"},
		{fmt.Errorf("x: %w", simulator.ErrSequenceTranslation), "translation"},
		{fmt.Errorf("%w: %w", simulator.ErrEngineInvocation, context.DeadlineExceeded), "canceled"},
		{fmt.Errorf("%w: exit 1", simulator.ErrEngineInvocation), "engine"},
		{errors.New("other"), "unknown"},
	}
	for _, tt := range tests {
		if got := AbandonReason(tt.err); got != tt.want {
			t.Errorf("AbandonReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestLogHelpersRequireRepository(t *testing.T) {
	ctx := context.Background()
	if err := LogRunCompleted(ctx, nil, RunCompleted{Sequence: "FID"}); err == nil {
		t.Error("LogRunCompleted should require a repository")
	}
	if err := LogRunAbandoned(ctx, nil, "FID", "exec", errors.New("x")); err == nil {
		t.Error("LogRunAbandoned should require a repository")
	}
	if err := LogMeasurementDeleted(ctx, &fakeRepo{}, ""); err == nil {
		t.Error("LogMeasurementDeleted should require an id")
	}
}

func TestLogMeasurementExported(t *testing.T) {
	repo := &fakeRepo{}
	if err := LogMeasurementExported(context.Background(), repo, "m-1", "frequency", "/tmp/out.csv"); err != nil {
		t.Fatalf("LogMeasurementExported failed: %v", err)
	}
	if repo.last.EntityType != models.EntityTypeMeasurement || repo.last.Metadata["domain"] != "frequency" {
		t.Fatalf("unexpected event: %+v", repo.last)
	}
}
