// Package remote implements a client-side proxy for a remote analog device.
//
// A Remote connects through a ports.Driver, polls the device on its own
// goroutine and hands every reported change to its observers, synchronously
// and in registration order. Close is the only teardown path.
package remote

import (
	"context"
	"sync"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// Remote is a polled connection to one analog device
type Remote struct {
	addr     domain.Address
	handle   ports.Handle
	registry *Registry
	engine   *engine

	closeOnce sync.Once
	closeErr  error
}

var _ ports.Source = (*Remote)(nil)

// Open connects to name ("<device>@<host>") and starts polling.
// Any failure is returned as a *domain.ConnectionError and nothing is left running.
func Open(ctx context.Context, driver ports.Driver, name string, opts ...Option) (*Remote, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	addr, err := domain.ParseAddress(name)
	if err != nil {
		return nil, &domain.ConnectionError{Name: name, Err: err}
	}

	logger := cfg.logger.With().
		Str("component", "analog_remote").
		Str("device", addr.String()).
		Logger()
	cfg.logger = logger

	handle, err := driver.Connect(ctx, addr.String())
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect")
		return nil, &domain.ConnectionError{Name: addr.String(), Err: err}
	}

	r := &Remote{
		addr:     addr,
		handle:   handle,
		registry: NewRegistry(),
	}
	for _, o := range cfg.observers {
		r.registry.Subscribe(o)
	}

	// Poll must not be interrupted by the caller's cancellation, only by Close
	r.engine = newEngine(context.WithoutCancel(ctx), handle, r.registry, r, cfg)
	r.engine.start()

	logger.Info().Msg("connected to analog device")
	return r, nil
}

// Name returns "<device>@<host>"
func (r *Remote) Name() string { return r.addr.String() }

// Device returns the device part of the name
func (r *Remote) Device() string { return r.addr.Device }

// Host returns the host part of the name
func (r *Remote) Host() string { return r.addr.Host }

// Subscribe registers an observer for future updates
func (r *Remote) Subscribe(o ports.Observer) {
	r.registry.Subscribe(o)
}

// Unsubscribe removes one registration of o
func (r *Remote) Unsubscribe(o ports.Observer) bool {
	return r.registry.Unsubscribe(o)
}

// Observers returns the number of registered observers
func (r *Remote) Observers() int {
	return r.registry.Len()
}

// State returns the state of the polling engine
func (r *Remote) State() State {
	return r.engine.State()
}

// Stats returns the polling counters
func (r *Remote) Stats() Stats {
	return r.engine.stats.snapshot()
}

// Close stops polling, waits for the polling goroutine to exit, drops all
// observers and disconnects the device. Later calls return the first result.
// Close must not be called from an observer.
func (r *Remote) Close() error {
	r.closeOnce.Do(func() {
		r.engine.stopAndWait()
		r.registry.Clear()
		r.closeErr = r.handle.Disconnect()

		if r.closeErr != nil {
			r.engine.logger.Error().Err(r.closeErr).Msg("failed to disconnect")
		} else {
			r.engine.logger.Info().Msg("disconnected from analog device")
		}
	})
	return r.closeErr
}
