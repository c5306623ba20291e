package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
)

func newTestRepo(t *testing.T) *UpdateRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewUpdateRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to create SQLite repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func makeRecord(t *testing.T, device string, ts time.Time, channels ...float64) *domain.Record {
	t.Helper()
	u, err := domain.NewAnalogUpdate(ts, channels)
	if err != nil {
		t.Fatalf("unexpected error creating update: %v", err)
	}
	return &domain.Record{Device: device, Update: u}
}

func TestSaveAndGetUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	channels := []float64{
		1.5,
		-2.25,
		math.Inf(-1),
		math.MaxFloat64,
		math.Copysign(0, -1),
		math.Float64frombits(0x7ff8000000000123), // NaN with payload
		math.Float64frombits(0xfff0000000000001), // signalling NaN
	}
	ts := time.Unix(1700000000, 123456000)
	record := makeRecord(t, "Analog0@localhost", ts, channels...)

	if err := repo.SaveUpdate(ctx, record); err != nil {
		t.Fatalf("SaveUpdate failed: %v", err)
	}
	if record.ID == 0 {
		t.Fatal("expected ID to be set after save")
	}

	got, err := repo.GetUpdate(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetUpdate failed: %v", err)
	}
	if got.Device != "Analog0@localhost" {
		t.Errorf("got device %q", got.Device)
	}
	if !got.Update.Time.Equal(ts) {
		t.Errorf("got time %v, want %v", got.Update.Time, ts)
	}

	// Channels survive the CBOR round trip bit for bit
	values := got.Update.Channels()
	if len(values) != len(channels) {
		t.Fatalf("got %d channels, want %d", len(values), len(channels))
	}
	for i := range channels {
		if math.Float64bits(values[i]) != math.Float64bits(channels[i]) {
			t.Errorf("channel %d: got %v, want %v", i, values[i], channels[i])
		}
	}
}

func TestSaveFullChannelVector(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	channels := make([]float64, domain.MaxChannels)
	for i := range channels {
		channels[i] = float64(i) / 3
	}
	record := makeRecord(t, "Analog0@localhost", time.Now(), channels...)
	if err := repo.SaveUpdate(ctx, record); err != nil {
		t.Fatalf("SaveUpdate failed: %v", err)
	}

	got, err := repo.GetUpdate(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetUpdate failed: %v", err)
	}
	if got.Update.NumChannels() != domain.MaxChannels {
		t.Errorf("got %d channels, want %d", got.Update.NumChannels(), domain.MaxChannels)
	}
}

func TestGetLatestUpdate_Empty(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetLatestUpdate(ctx, "Analog0@localhost")
	if err != domain.ErrUpdateNotFound {
		t.Errorf("expected ErrUpdateNotFound, got %v", err)
	}
}

func TestGetLatestUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now()
	_ = repo.SaveUpdate(ctx, makeRecord(t, "a@h", now.Add(-time.Minute), 1))
	_ = repo.SaveUpdate(ctx, makeRecord(t, "a@h", now, 2))
	_ = repo.SaveUpdate(ctx, makeRecord(t, "b@h", now.Add(time.Minute), 3))

	latest, err := repo.GetLatestUpdate(ctx, "a@h")
	if err != nil {
		t.Fatalf("GetLatestUpdate failed: %v", err)
	}
	if v, _ := latest.Update.Channel(0); v != 2 {
		t.Errorf("expected latest value 2, got %v", v)
	}
}

func TestGetUpdatesInRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_ = repo.SaveUpdate(ctx, makeRecord(t, "a@h", now.Add(-2*time.Hour), 100))
	_ = repo.SaveUpdate(ctx, makeRecord(t, "a@h", now.Add(-1*time.Hour), 200))
	_ = repo.SaveUpdate(ctx, makeRecord(t, "b@h", now.Add(-1*time.Hour), 250))
	_ = repo.SaveUpdate(ctx, makeRecord(t, "a@h", now.Add(1*time.Hour), 300))

	// [now-90m, now): only the record inside the window for device a
	results, err := repo.GetUpdatesInRange(ctx, "a@h", now.Add(-90*time.Minute), now)
	if err != nil {
		t.Fatalf("GetUpdatesInRange failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 record, got %d", len(results))
	}
	if v, _ := results[0].Update.Channel(0); v != 200 {
		t.Errorf("expected value 200, got %v", v)
	}
}

func TestGetUpdatesInRange_Bounds(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ts := time.Now().UTC().Truncate(time.Second)
	_ = repo.SaveUpdate(ctx, makeRecord(t, "a@h", ts, 1))

	// start == timestamp: should be included (inclusive start)
	results, err := repo.GetUpdatesInRange(ctx, "a@h", ts, ts.Add(time.Second))
	if err != nil {
		t.Fatalf("GetUpdatesInRange failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result (inclusive start), got %d", len(results))
	}

	// end == timestamp: should be excluded (exclusive end)
	results, err = repo.GetUpdatesInRange(ctx, "a@h", ts.Add(-time.Second), ts)
	if err != nil {
		t.Fatalf("GetUpdatesInRange failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results (exclusive end), got %d", len(results))
	}
}

func TestDeleteUpdatesBefore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// A fixed instant far from the wall clock: the cutoff alone decides
	cutoff := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	old := makeRecord(t, "a@h", cutoff.Add(-time.Microsecond), 100)
	recent := makeRecord(t, "a@h", cutoff, 200)
	_ = repo.SaveUpdate(ctx, old)
	_ = repo.SaveUpdate(ctx, recent)

	if err := repo.DeleteUpdatesBefore(ctx, cutoff); err != nil {
		t.Fatalf("DeleteUpdatesBefore failed: %v", err)
	}

	// Old record should be gone
	_, err := repo.GetUpdate(ctx, old.ID)
	if err != domain.ErrUpdateNotFound {
		t.Errorf("expected old record to be deleted, got err: %v", err)
	}

	// Recent record should remain
	_, err = repo.GetUpdate(ctx, recent.ID)
	if err != nil {
		t.Errorf("expected recent record to remain, got err: %v", err)
	}
}
