package grpc

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/quentinrf/plant-monitor/services/analog-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/analog-service/internal/ports"
)

const (
	// DefaultCallTimeout bounds each Poll round trip
	DefaultCallTimeout = 5 * time.Second

	disconnectTimeout = 5 * time.Second
)

// Driver implements ports.Driver against a remote AnalogDevice service.
// The host part of a device name is the gRPC target.
type Driver struct {
	opts        []grpc.DialOption
	callTimeout time.Duration
}

var _ ports.Driver = (*Driver)(nil)

// NewDriver creates a driver dialing with opts.
// Transport credentials must be among them.
func NewDriver(opts ...grpc.DialOption) *Driver {
	return &Driver{opts: opts, callTimeout: DefaultCallTimeout}
}

// WithCallTimeout sets the deadline of each Poll on handles connected afterwards.
// A timeout <= 0 leaves polls bounded only by the caller's context.
func (d *Driver) WithCallTimeout(timeout time.Duration) *Driver {
	d.callTimeout = timeout
	return d
}

// Connect dials the device's host and opens a session for the device
func (d *Driver) Connect(ctx context.Context, name string) (ports.Handle, error) {
	addr, err := domain.ParseAddress(name)
	if err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient(addr.Host, d.opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client for %s: %w", addr.Host, err)
	}

	resp := new(structpb.Struct)
	if err := conn.Invoke(ctx, connectMethod, stringMessage("device", addr.Device), resp); err != nil {
		conn.Close()
		return nil, fromStatus(err)
	}

	sessionID := stringField(resp, "session")
	if sessionID == "" {
		conn.Close()
		return nil, fmt.Errorf("%w: server returned no session", domain.ErrDeviceUnavailable)
	}

	return &remoteHandle{
		conn:        conn,
		session:     sessionID,
		callTimeout: d.callTimeout,
	}, nil
}

// remoteHandle is one open session on a device server
type remoteHandle struct {
	conn        *grpc.ClientConn
	session     string
	callTimeout time.Duration
}

// Poll fetches the changes the server has for this session
func (h *remoteHandle) Poll(ctx context.Context) ([]ports.RawEvent, error) {
	if h.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.callTimeout)
		defer cancel()
	}

	resp := new(structpb.Struct)
	if err := h.conn.Invoke(ctx, pollMethod, stringMessage("session", h.session), resp); err != nil {
		return nil, fromStatus(err)
	}
	return decodeEvents(resp)
}

// Disconnect closes the session and the connection
func (h *remoteHandle) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()

	var errs error
	if err := h.conn.Invoke(ctx, disconnectMethod, stringMessage("session", h.session), new(structpb.Struct)); err != nil {
		errs = multierr.Append(errs, fromStatus(err))
	}
	return multierr.Append(errs, h.conn.Close())
}

// fromStatus converts a gRPC status back to the domain error it stands for
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", domain.ErrDeviceUnavailable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidAddress, st.Message())
	default:
		return err
	}
}
