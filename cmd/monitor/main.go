package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	grpcAdapter "github.com/quentinrf/plant-monitor/services/analog-service/internal/adapters/grpc"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/adapters/memory"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/adapters/sqlite"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/config"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/remote"
	"github.com/quentinrf/plant-monitor/services/analog-service/pkg/tlsconfig"
)

// logObserver writes every update to the log
type logObserver struct{}

func (*logObserver) HandleAnalogUpdate(update domain.AnalogUpdate, source ports.Source) error {
	log.Info().
		Str("device", source.Name()).
		Time("time", update.Time).
		Floats64("channels", update.Channels()).
		Msg("analog update")
	return nil
}

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("starting analog monitor")

	cfg, err := config.LoadMonitor()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize repository
	var (
		repo    domain.UpdateRepository
		closers []func() error
	)
	switch cfg.RepoType {
	case "sqlite":
		r, err := sqlite.NewUpdateRepository(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("failed to open SQLite database")
		}
		closers = append(closers, r.Close)
		repo = r
		log.Info().Str("db_path", cfg.DBPath).Msg("initialized SQLite repository")
	default:
		repo = memory.NewUpdateRepository()
		log.Info().Msg("initialized in-memory repository")
	}

	// Transport credentials for the device server
	creds := insecure.NewCredentials()
	if cfg.TLS.Enabled() {
		tlsCfg, err := tlsconfig.LoadClientTLS(cfg.TLS.Cert, cfg.TLS.Key, cfg.TLS.CA)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load TLS config")
		}
		creds = credentials.NewTLS(tlsCfg)
		log.Info().Msg("mTLS enabled")
	} else {
		log.Warn().Msg("TLS_CERT not set, connecting without TLS (dev mode only)")
	}
	driver := grpcAdapter.NewDriver(grpc.WithTransportCredentials(creds)).
		WithCallTimeout(cfg.PollTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := ports.NewRecorder(repo, cfg.Retention, clock.New())

	analog, err := remote.Open(ctx, driver, cfg.Device,
		remote.WithPollInterval(cfg.PollInterval),
		remote.WithObservers(&logObserver{}, recorder),
	)
	if err != nil {
		log.Fatal().Err(err).Str("device", cfg.Device).Msg("failed to open analog device")
	}

	go recorder.Start(ctx)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down monitor...")

	cancel() // Stop retention loop
	errs := analog.Close()
	for _, closeFn := range closers {
		errs = multierr.Append(errs, closeFn())
	}
	if errs != nil {
		log.Error().Err(errs).Msg("shutdown finished with errors")
	}

	stats := analog.Stats()
	log.Info().
		Uint64("polls", stats.Polls).
		Uint64("updates", stats.Updates).
		Uint64("poll_errors", stats.PollErrors).
		Msg("monitor stopped")
}
