package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
)

// channelEncMode writes every channel as a full float64, NaN payloads and infinities included
var channelEncMode cbor.EncMode

func init() {
	encOpts := cbor.EncOptions{
		ShortestFloat: cbor.ShortestFloatNone,
		NaNConvert:    cbor.NaNConvertNone,
		InfConvert:    cbor.InfConvertNone,
	}
	var err error
	channelEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}
}

// UpdateRepository implements domain.UpdateRepository with SQLite.
// Timestamps are stored as Unix microseconds and channel vectors as CBOR arrays.
type UpdateRepository struct {
	db *sql.DB
}

// NewUpdateRepository creates a SQLite-backed repository
func NewUpdateRepository(dbPath string) (*UpdateRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table if not exists
	schema := `
	CREATE TABLE IF NOT EXISTS analog_updates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device TEXT NOT NULL,
		timestamp_us INTEGER NOT NULL,
		channels BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_device_timestamp ON analog_updates(device, timestamp_us);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &UpdateRepository{db: db}, nil
}

// SaveUpdate stores a record in SQLite
func (r *UpdateRepository) SaveUpdate(ctx context.Context, record *domain.Record) error {
	channels, err := channelEncMode.Marshal(record.Update.Channels())
	if err != nil {
		return fmt.Errorf("failed to encode channels: %w", err)
	}

	query := `INSERT INTO analog_updates (device, timestamp_us, channels) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, record.Device, record.Update.Time.UnixMicro(), channels)
	if err != nil {
		return fmt.Errorf("failed to insert update: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetUpdate retrieves a record by ID
func (r *UpdateRepository) GetUpdate(ctx context.Context, id int64) (*domain.Record, error) {
	query := `SELECT id, device, timestamp_us, channels FROM analog_updates WHERE id = ?`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUpdateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query update: %w", err)
	}
	return record, nil
}

// GetUpdatesInRange returns a device's records in [start, end), oldest first
func (r *UpdateRepository) GetUpdatesInRange(ctx context.Context, device string, start, end time.Time) ([]*domain.Record, error) {
	query := `
		SELECT id, device, timestamp_us, channels
		FROM analog_updates
		WHERE device = ? AND timestamp_us >= ? AND timestamp_us < ?
		ORDER BY timestamp_us ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, device, start.UnixMicro(), end.UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("failed to query updates: %w", err)
	}
	defer rows.Close()

	var records []*domain.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan update: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read updates: %w", err)
	}

	return records, nil
}

// GetLatestUpdate returns the most recent record for a device
func (r *UpdateRepository) GetLatestUpdate(ctx context.Context, device string) (*domain.Record, error) {
	query := `
		SELECT id, device, timestamp_us, channels
		FROM analog_updates
		WHERE device = ?
		ORDER BY timestamp_us DESC, id DESC
		LIMIT 1
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, device))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUpdateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest update: %w", err)
	}
	return record, nil
}

// DeleteUpdatesBefore removes records stamped before cutoff
func (r *UpdateRepository) DeleteUpdatesBefore(ctx context.Context, cutoff time.Time) error {
	query := `DELETE FROM analog_updates WHERE timestamp_us < ?`

	if _, err := r.db.ExecContext(ctx, query, cutoff.UnixMicro()); err != nil {
		return fmt.Errorf("failed to delete old updates: %w", err)
	}

	return nil
}

// Close closes the database connection
func (r *UpdateRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*domain.Record, error) {
	var (
		record   domain.Record
		tsMicros int64
		blob     []byte
	)
	if err := s.Scan(&record.ID, &record.Device, &tsMicros, &blob); err != nil {
		return nil, err
	}

	var channels []float64
	if err := cbor.Unmarshal(blob, &channels); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %w", err)
	}

	update, err := domain.NewAnalogUpdate(time.UnixMicro(tsMicros), channels)
	if err != nil {
		return nil, err
	}
	record.Update = update
	return &record, nil
}
