// Package models defines the records persisted in the measurement history.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType categorizes ledger events.
type EventType string

const (
	// Run events
	EventTypeRunCompleted EventType = "run.completed"
	EventTypeRunAbandoned EventType = "run.abandoned"

	// Measurement events
	EventTypeMeasurementDeleted  EventType = "measurement.deleted"
	EventTypeMeasurementExported EventType = "measurement.exported"
)

// EntityType identifies the type of entity an event relates to.
type EntityType string

const (
	EntityTypeSequence    EntityType = "sequence"
	EntityTypeMeasurement EntityType = "measurement"
)

// Event represents an append-only ledger entry.
type Event struct {
	// ID is the unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// EntityType identifies what kind of entity this event relates to.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the ID (or name, for sequences) of the related entity.
	EntityID string `json:"entity_id"`

	// Payload contains event-specific data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Metadata contains additional context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks if the event is valid.
func (e *Event) Validate() error {
	validation := &ValidationErrors{}
	if strings.TrimSpace(string(e.Type)) == "" {
		validation.AddMessage("type", "event type is required")
	}
	if strings.TrimSpace(string(e.EntityType)) == "" {
		validation.AddMessage("entity_type", "entity_type is required")
	}
	if strings.TrimSpace(e.EntityID) == "" {
		validation.AddMessage("entity_id", "entity_id is required")
	}
	return validation.Err()
}

// RunCompletedPayload is the payload for run.completed events.
type RunCompletedPayload struct {
	MeasurementID string `json:"measurement_id,omitempty"`
	Measurement   string `json:"measurement"`
	Engine        string `json:"engine"`
	Runs          int    `json:"runs"`
	Points        int    `json:"points"`
	Duration      string `json:"duration"`
}

// RunAbandonedPayload is the payload for run.abandoned events.
type RunAbandonedPayload struct {
	Engine string `json:"engine"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}
