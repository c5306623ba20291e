package ports

import (
	"context"
)

// RawEvent is one change report as delivered by a device driver.
// Sec and Usec are the device's timestamp for the report.
type RawEvent struct {
	Sec      int64
	Usec     int64
	Channels []float64
}

// Driver connects to remote analog devices
// This is a PORT - adapters (gRPC, Mock) implement it
type Driver interface {
	// Connect opens the device named "<device>@<host>"
	Connect(ctx context.Context, name string) (Handle, error)
}

// Handle is a live connection to one device.
// Poll is never called from two goroutines at once, and Disconnect is
// called once, after the last Poll has returned.
type Handle interface {
	// Poll returns the changes reported since the previous poll, possibly none
	Poll(ctx context.Context) ([]RawEvent, error)

	// Disconnect releases the connection
	Disconnect() error
}
