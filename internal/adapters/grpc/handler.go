package grpc

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

// DeviceHandler implements the gRPC AnalogDevice service on top of a local driver
type DeviceHandler struct {
	driver ports.Driver
	host   string

	mu       sync.Mutex
	sessions map[string]*session
}

var _ AnalogDeviceServer = (*DeviceHandler)(nil)

// session serializes polls on one device handle
type session struct {
	mu     sync.Mutex
	device string
	handle ports.Handle
}

// NewDeviceHandler creates a new gRPC handler.
// host is the name local devices are opened under.
func NewDeviceHandler(driver ports.Driver, host string) *DeviceHandler {
	return &DeviceHandler{
		driver:   driver,
		host:     host,
		sessions: make(map[string]*session),
	}
}

// Connect opens a device and returns a session id for it
func (h *DeviceHandler) Connect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	device := stringField(req, "device")
	log.Info().Str("device", device).Msg("Connect called")

	if device == "" {
		return nil, status.Error(codes.InvalidArgument, "device is required")
	}

	addr := domain.Address{Device: device, Host: h.host}
	handle, err := h.driver.Connect(ctx, addr.String())
	if err != nil {
		log.Error().Err(err).Str("device", device).Msg("failed to open device")
		return nil, toStatus(err)
	}

	id := uuid.NewString()
	h.mu.Lock()
	h.sessions[id] = &session{device: device, handle: handle}
	h.mu.Unlock()

	log.Info().Str("device", device).Str("session", id).Msg("device session opened")
	return stringMessage("session", id), nil
}

// Poll returns the changes the device reported since the previous poll
func (h *DeviceHandler) Poll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	s, err := h.session(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.handle.Poll(ctx)
	if err != nil {
		log.Error().Err(err).Str("device", s.device).Msg("failed to poll device")
		return nil, toStatus(err)
	}

	return encodeEvents(events), nil
}

// Disconnect closes a session and its device
func (h *DeviceHandler) Disconnect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := stringField(req, "session")
	log.Info().Str("session", id).Msg("Disconnect called")

	h.mu.Lock()
	s, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()

	if !ok {
		return nil, status.Error(codes.NotFound, domain.ErrSessionNotFound.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.handle.Disconnect(); err != nil {
		log.Error().Err(err).Str("device", s.device).Msg("failed to disconnect device")
		return nil, toStatus(err)
	}

	return &structpb.Struct{}, nil
}

// Sessions returns the number of open sessions
func (h *DeviceHandler) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close disconnects every open session
func (h *DeviceHandler) Close() error {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*session)
	h.mu.Unlock()

	var errs error
	for _, s := range sessions {
		s.mu.Lock()
		errs = multierr.Append(errs, s.handle.Disconnect())
		s.mu.Unlock()
	}
	return errs
}

func (h *DeviceHandler) session(req *structpb.Struct) (*session, error) {
	id := stringField(req, "session")
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "session is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	s, ok := h.sessions[id]
	if !ok {
		return nil, status.Error(codes.NotFound, domain.ErrSessionNotFound.Error())
	}
	return s, nil
}

// toStatus converts a domain error to a gRPC status
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrDeviceUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, domain.ErrInvalidAddress):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
