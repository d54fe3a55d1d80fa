package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nqrduck/quacksim/internal/measurement"
	"github.com/nqrduck/quacksim/internal/models"
)

// Measurement repository errors.
var (
	ErrMeasurementNotFound = errors.New("measurement not found")
	ErrInvalidMeasurement  = errors.New("invalid measurement")
)

// MeasurementRepository handles measurement persistence.
type MeasurementRepository struct {
	db *DB
}

// NewMeasurementRepository creates a new MeasurementRepository.
func NewMeasurementRepository(db *DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// MeasurementQuery filters List results.
type MeasurementQuery struct {
	Sequence string     // exact sequence name
	Since    *time.Time // created at or after (inclusive)
	Limit    int
}

// Create stores a measurement record. ID, CreatedAt and Points are filled
// in when unset.
func (r *MeasurementRepository) Create(ctx context.Context, rec *models.MeasurementRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMeasurement, err)
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	} else {
		rec.CreatedAt = rec.CreatedAt.UTC()
	}
	if rec.Name == "" {
		rec.Name = rec.Measurement.Name()
	}
	rec.Points = rec.Measurement.Len()

	data, err := json.Marshal(rec.Measurement)
	if err != nil {
		return fmt.Errorf("failed to marshal measurement: %w", err)
	}

	var metadataJSON *string
	if rec.Metadata != nil {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		s := string(raw)
		metadataJSON = &s
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO measurements (
			id, name, sequence, engine, averages, points,
			resonant_frequency, target_frequency, created_at, data_json, metadata_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Name,
		rec.Sequence,
		rec.Engine,
		rec.Averages,
		rec.Points,
		rec.Measurement.ResonantFrequency(),
		rec.Measurement.TargetFrequency(),
		rec.CreatedAt.Format(timestampLayout),
		string(data),
		metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert measurement: %w", err)
	}
	return nil
}

// Get retrieves a measurement including its data.
func (r *MeasurementRepository) Get(ctx context.Context, id string) (*models.MeasurementRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, sequence, engine, averages, points, created_at, metadata_json, data_json
		FROM measurements WHERE id = ?
	`, id)

	var dataJSON string
	rec, err := r.scan(row.Scan, &dataJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMeasurementNotFound
		}
		return nil, err
	}
	m, err := measurement.Decode([]byte(dataJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to decode measurement %s: %w", id, err)
	}
	rec.Measurement = m
	return rec, nil
}

// List returns matching records newest first, without measurement data.
func (r *MeasurementRepository) List(ctx context.Context, q MeasurementQuery) ([]*models.MeasurementRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, name, sequence, engine, averages, points, created_at, metadata_json FROM measurements WHERE 1=1`
	args := []any{}
	if q.Sequence != "" {
		query += ` AND sequence = ?`
		args = append(args, q.Sequence)
	}
	if q.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, q.Since.UTC().Format(timestampLayout))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var records []*models.MeasurementRecord
	for rows.Next() {
		rec, err := r.scan(rows.Scan, nil)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating measurements: %w", err)
	}
	return records, nil
}

// Delete removes a measurement.
func (r *MeasurementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete measurement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrMeasurementNotFound
	}
	return nil
}

// scan reads the shared columns; dataJSON, when non-nil, receives the
// trailing data column.
func (r *MeasurementRepository) scan(scan func(...any) error, dataJSON *string) (*models.MeasurementRecord, error) {
	var rec models.MeasurementRecord
	var createdAt string
	var metadataJSON sql.NullString

	dest := []any{
		&rec.ID,
		&rec.Name,
		&rec.Sequence,
		&rec.Engine,
		&rec.Averages,
		&rec.Points,
		&createdAt,
		&metadataJSON,
	}
	if dataJSON != nil {
		dest = append(dest, dataJSON)
	}
	if err := scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan measurement: %w", err)
	}

	if t, err := time.Parse(timestampLayout, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if metadataJSON.Valid {
		if err := json.Unmarshal([]byte(metadataJSON.String), &rec.Metadata); err != nil {
			r.db.logger.Warn().Err(err).Str("measurement_id", rec.ID).Msg("failed to parse measurement metadata")
		}
	}
	return &rec, nil
}
