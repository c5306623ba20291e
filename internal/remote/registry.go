package remote

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// Registry is an ordered set of observers with serialized dispatch.
// Each Remote owns its own Registry, so unrelated remotes never wait on
// each other's observers.
type Registry struct {
	// dispatchMu is held for the whole of a dispatch
	dispatchMu sync.Mutex

	mu        sync.Mutex
	observers []ports.Observer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe appends an observer. Registering the same observer twice
// delivers each update to it twice.
func (r *Registry) Subscribe(o ports.Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = append(r.observers, o)
}

// Unsubscribe removes the first registration of o and reports whether
// there was one
func (r *Registry) Unsubscribe(o ports.Observer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.observers {
		if existing == o {
			// Copy rather than reslice in place: a dispatch may hold the old backing array
			next := make([]ports.Observer, 0, len(r.observers)-1)
			next = append(next, r.observers[:i]...)
			r.observers = append(next, r.observers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registrations
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.observers)
}

// Clear removes every observer
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.observers = nil
}

// DispatchAll delivers update to every observer registered when the
// dispatch starts, in registration order. Each observer gets its own copy.
// A failing or panicking observer does not stop delivery to the rest; the
// failures come back as *domain.SubscriberError values combined with multierr.
func (r *Registry) DispatchAll(update domain.AnalogUpdate, source ports.Source) error {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	observers := r.observers
	r.mu.Unlock()

	var errs error
	for i, o := range observers {
		if err := notify(o, update.Clone(), source); err != nil {
			errs = multierr.Append(errs, &domain.SubscriberError{Index: i, Err: err})
		}
	}
	return errs
}

func notify(o ports.Observer, update domain.AnalogUpdate, source ports.Source) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return o.HandleAnalogUpdate(update, source)
}
