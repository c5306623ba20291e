package ports

import (
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
)

// Source identifies the remote device an update came from
type Source interface {
	// Name returns the full "<device>@<host>" name
	Name() string
	Device() string
	Host() string
}

// Observer receives analog updates.
// Observers are compared by interface equality when unsubscribing, so they
// must be comparable; pointer observers are the usual form.
type Observer interface {
	HandleAnalogUpdate(update domain.AnalogUpdate, source Source) error
}
