package remote

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// DefaultPollInterval is the idle time between two polls
const DefaultPollInterval = 100 * time.Millisecond

type options struct {
	interval  time.Duration
	clock     clock.Clock
	logger    zerolog.Logger
	observers []ports.Observer
	onError   func(error)
}

// Option configures a Remote
type Option func(*options)

// WithPollInterval sets the idle time between polls. Non-positive values keep the default.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithClock replaces the clock used to wait between polls
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLogger sets the logger; device fields are added to it
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObservers registers observers before polling starts, so they see the first poll
func WithObservers(observers ...ports.Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, observers...)
	}
}

// WithErrorHandler is called from the polling goroutine with every
// *domain.PollError and *domain.SubscriberError
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.onError = fn
	}
}

func defaultOptions() options {
	return options{
		interval: DefaultPollInterval,
		clock:    clock.New(),
		logger:   log.Logger,
	}
}
