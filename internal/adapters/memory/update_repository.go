package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
)

// UpdateRepository implements domain.UpdateRepository with in-memory storage
// This is perfect for development - no database setup needed
type UpdateRepository struct {
	mu      sync.RWMutex
	records map[int64]*domain.Record
	nextID  int64
}

// NewUpdateRepository creates an empty in-memory repository
func NewUpdateRepository() *UpdateRepository {
	return &UpdateRepository{
		records: make(map[int64]*domain.Record),
		nextID:  1,
	}
}

// SaveUpdate stores a record in memory
func (r *UpdateRepository) SaveUpdate(ctx context.Context, record *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Assign ID if not set
	if record.ID == 0 {
		record.ID = r.nextID
		r.nextID++
	}

	stored := *record
	stored.Update = record.Update.Clone()
	r.records[record.ID] = &stored
	return nil
}

// GetUpdate retrieves a record by ID
func (r *UpdateRepository) GetUpdate(ctx context.Context, id int64) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[id]
	if !exists {
		return nil, domain.ErrUpdateNotFound
	}

	out := *record
	return &out, nil
}

// GetUpdatesInRange returns a device's records in [start, end), oldest first
func (r *UpdateRepository) GetUpdatesInRange(ctx context.Context, device string, start, end time.Time) ([]*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.Record
	for _, record := range r.records {
		ts := record.Update.Time
		if record.Device == device && !ts.Before(start) && ts.Before(end) {
			out := *record
			results = append(results, &out)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Update.Time.Equal(results[j].Update.Time) {
			return results[i].ID < results[j].ID
		}
		return results[i].Update.Time.Before(results[j].Update.Time)
	})

	return results, nil
}

// GetLatestUpdate returns the most recent record for a device
func (r *UpdateRepository) GetLatestUpdate(ctx context.Context, device string) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Record
	for _, record := range r.records {
		if record.Device != device {
			continue
		}
		if latest == nil || record.Update.Time.After(latest.Update.Time) ||
			(record.Update.Time.Equal(latest.Update.Time) && record.ID > latest.ID) {
			latest = record
		}
	}

	if latest == nil {
		return nil, domain.ErrUpdateNotFound
	}
	out := *latest
	return &out, nil
}

// DeleteUpdatesBefore removes records stamped before cutoff
func (r *UpdateRepository) DeleteUpdatesBefore(ctx context.Context, cutoff time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, record := range r.records {
		if record.Update.Time.Before(cutoff) {
			delete(r.records, id)
		}
	}

	return nil
}

// Len returns the number of stored records
func (r *UpdateRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
