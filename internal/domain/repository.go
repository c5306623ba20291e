package domain

import (
	"context"
	"time"
)

// UpdateRepository defines operations for storing/retrieving analog updates
// This is a PORT - adapters (SQLite, Memory) implement it
type UpdateRepository interface {
	// SaveUpdate persists a record and assigns its ID
	SaveUpdate(ctx context.Context, record *Record) error

	// GetUpdate retrieves a specific record by ID
	GetUpdate(ctx context.Context, id int64) (*Record, error)

	// GetUpdatesInRange retrieves a device's records within a time range.
	// Uses a half-open interval: inclusive start, exclusive end [start, end).
	GetUpdatesInRange(ctx context.Context, device string, start, end time.Time) ([]*Record, error)

	// GetLatestUpdate retrieves the most recent record for a device
	GetLatestUpdate(ctx context.Context, device string) (*Record, error)

	// DeleteUpdatesBefore removes records stamped strictly before cutoff
	DeleteUpdatesBefore(ctx context.Context, cutoff time.Time) error
}
