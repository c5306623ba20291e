package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// pollResult is one scripted answer of a stub handle
type pollResult struct {
	events []ports.RawEvent
	err    error
}

// stubDriver hands out a single stubHandle
type stubDriver struct {
	handle     *stubHandle
	connectErr error
	connects   atomic.Int32
	lastName   atomic.Value
}

func newStubDriver(script ...pollResult) *stubDriver {
	return &stubDriver{handle: &stubHandle{script: script}}
}

func (d *stubDriver) Connect(ctx context.Context, name string) (ports.Handle, error) {
	d.connects.Add(1)
	d.lastName.Store(name)
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	return d.handle, nil
}

// stubHandle replays its script one entry per poll, then returns nothing.
// When repeat is set, every poll past the script yields repeat.
type stubHandle struct {
	mu          sync.Mutex
	script      []pollResult
	repeat      *ports.RawEvent
	beforePoll  func(n int)
	polls       int
	disconnects int
	disconnErr  error

	inPoll     atomic.Int32
	concurrent atomic.Bool
}

func (h *stubHandle) Poll(ctx context.Context) ([]ports.RawEvent, error) {
	if h.inPoll.Add(1) > 1 {
		h.concurrent.Store(true)
	}
	defer h.inPoll.Add(-1)

	h.mu.Lock()
	n := h.polls
	h.polls++
	before := h.beforePoll
	h.mu.Unlock()

	if before != nil {
		before(n)
	}

	if n < len(h.script) {
		return h.script[n].events, h.script[n].err
	}
	if h.repeat != nil {
		ev := *h.repeat
		return []ports.RawEvent{ev}, nil
	}
	return nil, nil
}

func (h *stubHandle) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
	return h.disconnErr
}

func (h *stubHandle) pollCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

func (h *stubHandle) disconnectCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnects
}

// recordingObserver keeps everything it is handed
type recordingObserver struct {
	mu      sync.Mutex
	updates []domain.AnalogUpdate
	sources []ports.Source
}

func (o *recordingObserver) HandleAnalogUpdate(update domain.AnalogUpdate, source ports.Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, update)
	o.sources = append(o.sources, source)
	return nil
}

func (o *recordingObserver) received() []domain.AnalogUpdate {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.AnalogUpdate, len(o.updates))
	copy(out, o.updates)
	return out
}

// failingObserver returns err, or panics with it when panics is set
type failingObserver struct {
	err    error
	panics bool
	calls  atomic.Int32
}

func (o *failingObserver) HandleAnalogUpdate(domain.AnalogUpdate, ports.Source) error {
	o.calls.Add(1)
	if o.panics {
		panic(o.err)
	}
	return o.err
}

// orderObserver appends its id to a shared log
type orderObserver struct {
	id  int
	log *[]int
	mu  *sync.Mutex
}

func (o *orderObserver) HandleAnalogUpdate(domain.AnalogUpdate, ports.Source) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	*o.log = append(*o.log, o.id)
	return nil
}

type fakeSource struct{}

func (fakeSource) Name() string   { return "Analog0@localhost" }
func (fakeSource) Device() string { return "Analog0" }
func (fakeSource) Host() string   { return "localhost" }

var errBoom = errors.New("boom")
