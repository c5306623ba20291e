package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAddress indicates a device name not of the form device@host
	ErrInvalidAddress = errors.New("invalid device address")

	// ErrDeviceUnavailable indicates the device cannot be reached or does not exist
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrTooManyChannels indicates a report with more than MaxChannels channels
	ErrTooManyChannels = fmt.Errorf("analog update exceeds %d channels", MaxChannels)

	// ErrUpdateNotFound indicates requested update doesn't exist
	ErrUpdateNotFound = errors.New("update not found")

	// ErrSessionNotFound indicates a poll or disconnect for an unknown session
	ErrSessionNotFound = errors.New("session not found")
)

// ConnectionError is returned when a remote device cannot be opened
type ConnectionError struct {
	Name string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Name, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PollError is a failed poll cycle. Polling continues after it.
type PollError struct {
	Name string
	Err  error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s: %v", e.Name, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// SubscriberError is an observer that failed while handling an update.
// Index is the observer's position in the dispatch.
type SubscriberError struct {
	Index int
	Err   error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("observer %d: %v", e.Index, e.Err)
}

func (e *SubscriberError) Unwrap() error { return e.Err }
