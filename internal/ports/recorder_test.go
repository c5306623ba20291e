package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
)

type testSource struct{}

func (testSource) Name() string   { return "Analog0@localhost" }
func (testSource) Device() string { return "Analog0" }
func (testSource) Host() string   { return "localhost" }

// failingRepo rejects every save
type failingRepo struct {
	*memory.UpdateRepository
}

func (failingRepo) SaveUpdate(context.Context, *domain.Record) error {
	return errors.New("disk full")
}

func TestRecorder_HandleAnalogUpdate(t *testing.T) {
	repo := memory.NewUpdateRepository()
	recorder := NewRecorder(repo, time.Hour, clock.NewMock())

	update, err := domain.NewAnalogUpdate(time.Now(), []float64{1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := recorder.HandleAnalogUpdate(update, testSource{}); err != nil {
		t.Fatalf("HandleAnalogUpdate failed: %v", err)
	}

	latest, err := repo.GetLatestUpdate(context.Background(), "Analog0@localhost")
	if err != nil {
		t.Fatalf("GetLatestUpdate failed: %v", err)
	}
	if latest.Update.NumChannels() != 2 {
		t.Errorf("expected 2 channels, got %d", latest.Update.NumChannels())
	}
}

func TestRecorder_SaveError(t *testing.T) {
	recorder := NewRecorder(failingRepo{memory.NewUpdateRepository()}, time.Hour, nil)

	update, _ := domain.NewAnalogUpdate(time.Now(), []float64{1})
	if err := recorder.HandleAnalogUpdate(update, testSource{}); err == nil {
		t.Error("expected save error, got nil")
	}
}

func TestRecorder_RetentionLoop(t *testing.T) {
	repo := memory.NewUpdateRepository()
	mock := clock.NewMock()
	mock.Set(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	recorder := NewRecorder(repo, 24*time.Hour, mock)

	saveAt := func(ts time.Time) {
		t.Helper()
		u, _ := domain.NewAnalogUpdate(ts, []float64{1})
		if err := repo.SaveUpdate(context.Background(), &domain.Record{Device: "a@h", Update: u}); err != nil {
			t.Fatalf("SaveUpdate failed: %v", err)
		}
	}

	// Both records are years older than the wall clock; only the injected clock decides
	saveAt(mock.Now().Add(-48 * time.Hour))
	saveAt(mock.Now().Add(-time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		recorder.Start(ctx)
		close(done)
	}()

	// The first cleanup runs immediately
	waitFor(t, func() bool { return repo.Len() == 1 })

	latest, err := repo.GetLatestUpdate(context.Background(), "a@h")
	if err != nil {
		t.Fatalf("GetLatestUpdate failed: %v", err)
	}
	if want := mock.Now().Add(-time.Hour); !latest.Update.Time.Equal(want) {
		t.Errorf("expected the record at %v to survive, got %v", want, latest.Update.Time)
	}

	// Later cleanups run on the ticker as the clock moves past the retention window
	waitFor(t, func() bool {
		mock.Add(recorder.cleanupInterval)
		return repo.Len() == 0
	})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retention loop did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}
