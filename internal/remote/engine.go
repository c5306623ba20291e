package remote

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// State is the lifecycle state of a polling engine.
type State int32

const (
	// StateCreated is an engine that has not started polling.
	StateCreated State = iota

	// StateRunning is an engine whose goroutine is polling.
	StateRunning

	// StateStopping is an engine that was asked to stop and is finishing its cycle.
	StateStopping

	// StateStopped is an engine whose goroutine has exited.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "CREATED"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Stats counts what a polling engine has done so far.
type Stats struct {
	Polls            uint64
	PollErrors       uint64
	Updates          uint64
	Rejected         uint64
	SubscriberErrors uint64
}

type engineStats struct {
	polls            atomic.Uint64
	pollErrors       atomic.Uint64
	updates          atomic.Uint64
	rejected         atomic.Uint64
	subscriberErrors atomic.Uint64
}

func (s *engineStats) snapshot() Stats {
	return Stats{
		Polls:            s.polls.Load(),
		PollErrors:       s.pollErrors.Load(),
		Updates:          s.updates.Load(),
		Rejected:         s.rejected.Load(),
		SubscriberErrors: s.subscriberErrors.Load(),
	}
}

// engine drives poll -> dispatch on one goroutine.
// It is the only caller of handle.Poll.
type engine struct {
	ctx      context.Context
	handle   ports.Handle
	registry *Registry
	source   ports.Source
	interval time.Duration
	clock    clock.Clock
	logger   zerolog.Logger
	onError  func(error)

	state atomic.Int32
	stats engineStats

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newEngine(ctx context.Context, handle ports.Handle, registry *Registry, source ports.Source, cfg options) *engine {
	return &engine{
		ctx:      ctx,
		handle:   handle,
		registry: registry,
		source:   source,
		interval: cfg.interval,
		clock:    cfg.clock,
		logger:   cfg.logger,
		onError:  cfg.onError,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (e *engine) State() State {
	return State(e.state.Load())
}

func (e *engine) start() {
	e.state.Store(int32(StateRunning))
	e.logger.Debug().Dur("interval", e.interval).Msg("polling engine started")
	go e.run()
}

// stopAndWait asks the loop to stop and blocks until the goroutine has exited.
// The in-flight poll and dispatch, if any, run to completion first.
func (e *engine) stopAndWait() {
	e.stopOnce.Do(func() {
		e.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))
		close(e.stop)
	})
	<-e.done
}

func (e *engine) run() {
	defer func() {
		e.state.Store(int32(StateStopped))
		e.logger.Debug().Msg("polling engine stopped")
		close(e.done)
	}()

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		e.pollOnce()

		timer := e.clock.Timer(e.interval)
		select {
		case <-e.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (e *engine) pollOnce() {
	e.stats.polls.Add(1)

	events, err := e.handle.Poll(e.ctx)
	if err != nil {
		e.stats.pollErrors.Add(1)
		pollErr := &domain.PollError{Name: e.source.Name(), Err: err}
		e.logger.Warn().Err(err).Msg("poll failed")
		e.report(pollErr)
		return
	}

	for _, ev := range events {
		update, err := domain.NewAnalogUpdate(domain.UpdateTime(ev.Sec, ev.Usec), ev.Channels)
		if err != nil {
			e.stats.rejected.Add(1)
			e.logger.Error().Err(err).Int("channels", len(ev.Channels)).Msg("rejected analog update")
			e.report(&domain.PollError{Name: e.source.Name(), Err: err})
			continue
		}

		e.stats.updates.Add(1)
		if err := e.registry.DispatchAll(update, e.source); err != nil {
			for _, subErr := range multierr.Errors(err) {
				e.stats.subscriberErrors.Add(1)
				e.logger.Error().Err(subErr).Msg("observer failed")
				e.report(subErr)
			}
		}
	}
}

func (e *engine) report(err error) {
	if e.onError != nil {
		e.onError(err)
	}
}
