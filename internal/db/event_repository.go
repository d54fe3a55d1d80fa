package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nqrduck/quacksim/internal/models"
)

// Event repository errors.
var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
)

const (
	eventColumns      = `id, timestamp, type, entity_type, entity_id, payload_json, metadata_json`
	defaultEventLimit = 100
)

// EventRepository stores the run ledger.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// EventQuery filters ledger entries. Nil filters match everything.
type EventQuery struct {
	Type       *models.EventType
	EntityType *models.EntityType
	EntityID   *string
	Since      *time.Time // inclusive
	Until      *time.Time // exclusive
	Cursor     string     // ID of the last event of the previous page
	Limit      int
	Newest     bool // newest first
}

// EventPage is one page of query results.
type EventPage struct {
	Events     []*models.Event
	NextCursor string
}

// eventFilter accumulates WHERE conditions and their arguments.
type eventFilter struct {
	conds []string
	args  []any
}

func (f *eventFilter) add(cond string, args ...any) {
	f.conds = append(f.conds, cond)
	f.args = append(f.args, args...)
}

func (f *eventFilter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// Create appends an event, filling in ID and Timestamp when unset.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()

	var payload, metadata sql.NullString
	if len(event.Payload) > 0 {
		payload = sql.NullString{String: string(event.Payload), Valid: true}
	}
	if event.Metadata != nil {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.Format(timestampLayout), string(event.Type),
		string(event.EntityType), event.EntityID, payload, metadata,
	); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Get retrieves an event by ID.
func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	event, err := r.scan(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return event, err
}

// Query returns one page of events matching q, ordered by time.
func (r *EventRepository) Query(ctx context.Context, q EventQuery) (*EventPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultEventLimit
	}

	filter := q.filter()
	order, after := "ASC", ">"
	if q.Newest {
		order, after = "DESC", "<"
	}
	if q.Cursor != "" {
		filter.add(`(timestamp, id) `+after+` (SELECT timestamp, id FROM events WHERE id = ?)`, q.Cursor)
	}

	query := `SELECT ` + eventColumns + ` FROM events` + filter.where() +
		` ORDER BY timestamp ` + order + `, id ` + order + ` LIMIT ?`
	events, err := r.queryEvents(ctx, query, append(filter.args, limit+1)...)
	if err != nil {
		return nil, err
	}

	page := &EventPage{Events: events}
	if len(events) > limit {
		page.Events = events[:limit]
		page.NextCursor = events[limit-1].ID
	}
	return page, nil
}

// ListByEntity returns the ledger of a single entity, oldest first.
func (r *EventRepository) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string, limit int) ([]*models.Event, error) {
	page, err := r.Query(ctx, EventQuery{EntityType: &entityType, EntityID: &entityID, Limit: limit})
	if err != nil {
		return nil, err
	}
	return page.Events, nil
}

// Prune deletes events older than before and reports how many were removed.
func (r *EventRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, before.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

func (q EventQuery) filter() *eventFilter {
	f := &eventFilter{}
	if q.Type != nil {
		f.add(`type = ?`, string(*q.Type))
	}
	if q.EntityType != nil {
		f.add(`entity_type = ?`, string(*q.EntityType))
	}
	if q.EntityID != nil {
		f.add(`entity_id = ?`, *q.EntityID)
	}
	if q.Since != nil {
		f.add(`timestamp >= ?`, q.Since.UTC().Format(timestampLayout))
	}
	if q.Until != nil {
		f.add(`timestamp < ?`, q.Until.UTC().Format(timestampLayout))
	}
	return f
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := r.scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *EventRepository) scan(scan func(...any) error) (*models.Event, error) {
	var (
		event                 models.Event
		timestamp             string
		eventType, entityType string
		payload, metadata     sql.NullString
	)
	if err := scan(&event.ID, &timestamp, &eventType, &entityType, &event.EntityID, &payload, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	ts, err := time.Parse(timestampLayout, timestamp)
	if err != nil {
		return nil, fmt.Errorf("event %s: bad timestamp %q: %w", event.ID, timestamp, err)
	}
	event.Timestamp = ts
	event.Type = models.EventType(eventType)
	event.EntityType = models.EntityType(entityType)
	if payload.Valid {
		event.Payload = json.RawMessage(payload.String)
	}
	if metadata.Valid {
		if err := json.Unmarshal([]byte(metadata.String), &event.Metadata); err != nil {
			r.db.logger.Warn().Err(err).Str("event_id", event.ID).Msg("ignoring malformed event metadata")
		}
	}
	return &event, nil
}
