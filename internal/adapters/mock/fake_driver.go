package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// FakeDriver simulates analog devices for development
// This implements the ports.Driver interface
type FakeDriver struct {
	channels  int
	baseValue float64
	variation float64

	mu      sync.Mutex
	devices map[string]bool
}

// NewFakeDriver creates a driver whose devices report realistic values
// channels: number of channels per report
// baseValue: average channel value
// variation: +/- range (e.g., 0.5 means base-0.5 to base+0.5)
func NewFakeDriver(channels int, baseValue, variation float64) *FakeDriver {
	return &FakeDriver{
		channels:  channels,
		baseValue: baseValue,
		variation: variation,
	}
}

// Only restricts Connect to the listed device names (the part before '@').
// With no restriction every device name connects.
func (d *FakeDriver) Only(devices ...string) *FakeDriver {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.devices = make(map[string]bool, len(devices))
	for _, name := range devices {
		d.devices[name] = true
	}
	return d
}

// Connect opens a simulated device
func (d *FakeDriver) Connect(ctx context.Context, name string) (ports.Handle, error) {
	addr, err := domain.ParseAddress(name)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	known := d.devices == nil || d.devices[addr.Device]
	d.mu.Unlock()
	if !known {
		return nil, fmt.Errorf("%w: no device %q", domain.ErrDeviceUnavailable, addr.Device)
	}

	return &fakeHandle{
		driver: d,
		buf:    make([]float64, d.channels),
	}, nil
}

// fakeHandle reports one change per poll.
// It reuses buf between polls the way a real driver reuses its read buffer.
type fakeHandle struct {
	driver *FakeDriver
	buf    []float64
	closed bool
}

// Poll returns a single simulated report
func (h *fakeHandle) Poll(ctx context.Context) ([]ports.RawEvent, error) {
	if h.closed {
		return nil, domain.ErrDeviceUnavailable
	}

	for i := range h.buf {
		// Random value around base ± variation
		h.buf[i] = h.driver.baseValue + (rand.Float64()-0.5)*2*h.driver.variation
	}

	now := time.Now()
	return []ports.RawEvent{{
		Sec:      now.Unix(),
		Usec:     int64(now.Nanosecond()) / int64(time.Microsecond),
		Channels: h.buf,
	}}, nil
}

// Disconnect closes the simulated device
func (h *fakeHandle) Disconnect() error {
	h.closed = true
	return nil
}
