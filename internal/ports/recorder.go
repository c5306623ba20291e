package ports

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
)

const (
	defaultCleanupInterval = time.Hour
	defaultSaveTimeout     = 5 * time.Second
)

// Recorder is an Observer that persists every update it receives,
// plus a background loop that drops records past the retention window
type Recorder struct {
	repo      domain.UpdateRepository
	retention time.Duration
	clock     clock.Clock

	cleanupInterval time.Duration
	saveTimeout     time.Duration
}

// NewRecorder creates a recorder writing to repo
func NewRecorder(repo domain.UpdateRepository, retention time.Duration, clk clock.Clock) *Recorder {
	if clk == nil {
		clk = clock.New()
	}
	return &Recorder{
		repo:            repo,
		retention:       retention,
		clock:           clk,
		cleanupInterval: defaultCleanupInterval,
		saveTimeout:     defaultSaveTimeout,
	}
}

// HandleAnalogUpdate saves the update under the source's device name
func (r *Recorder) HandleAnalogUpdate(update domain.AnalogUpdate, source Source) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.saveTimeout)
	defer cancel()

	record := &domain.Record{
		Device: source.Name(),
		Update: update,
	}
	if err := r.repo.SaveUpdate(ctx, record); err != nil {
		return err
	}

	log.Debug().
		Int64("id", record.ID).
		Str("device", record.Device).
		Int("channels", update.NumChannels()).
		Msg("recorded analog update")
	return nil
}

// Start runs retention cleanup until ctx is cancelled
func (r *Recorder) Start(ctx context.Context) {
	log.Info().
		Dur("retention", r.retention).
		Dur("interval", r.cleanupInterval).
		Msg("starting retention loop")

	ticker := r.clock.Ticker(r.cleanupInterval)
	defer ticker.Stop()

	// Clean up immediately on start
	r.cleanupOnce(ctx)

	for {
		select {
		case <-ticker.C:
			r.cleanupOnce(ctx)

		case <-ctx.Done():
			log.Info().Msg("stopping retention loop")
			return
		}
	}
}

func (r *Recorder) cleanupOnce(ctx context.Context) {
	cutoff := r.clock.Now().Add(-r.retention)
	if err := r.repo.DeleteUpdatesBefore(ctx, cutoff); err != nil {
		log.Error().Err(err).Msg("failed to delete old updates")
		return
	}
	log.Debug().Time("cutoff", cutoff).Msg("deleted expired updates")
}
