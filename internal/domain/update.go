package domain

import (
	"time"
)

// MaxChannels is the largest number of channels an analog device may report
const MaxChannels = 128

// AnalogUpdate is one snapshot of channel values reported by an analog device.
// Channels are copied in and copied out, so a value never changes once built.
type AnalogUpdate struct {
	Time     time.Time
	channels []float64
}

// NewAnalogUpdate creates an update from a channel vector.
// Devices with more than MaxChannels channels are rejected, never truncated.
func NewAnalogUpdate(ts time.Time, channels []float64) (AnalogUpdate, error) {
	if len(channels) > MaxChannels {
		return AnalogUpdate{}, ErrTooManyChannels
	}

	c := make([]float64, len(channels))
	copy(c, channels)

	return AnalogUpdate{
		Time:     ts,
		channels: c,
	}, nil
}

// UpdateTime converts a seconds/microseconds pair into a timestamp.
// Microseconds outside [0, 1e6) carry over into the seconds.
func UpdateTime(sec, usec int64) time.Time {
	return time.Unix(sec, usec*int64(time.Microsecond))
}

// NumChannels returns the number of channels in the update
func (u AnalogUpdate) NumChannels() int {
	return len(u.channels)
}

// Channel returns the value of channel i, or false when i is out of range
func (u AnalogUpdate) Channel(i int) (float64, bool) {
	if i < 0 || i >= len(u.channels) {
		return 0, false
	}
	return u.channels[i], true
}

// Channels returns a copy of the channel values
func (u AnalogUpdate) Channels() []float64 {
	c := make([]float64, len(u.channels))
	copy(c, u.channels)
	return c
}

// Clone returns an update that shares no memory with u
func (u AnalogUpdate) Clone() AnalogUpdate {
	return AnalogUpdate{
		Time:     u.Time,
		channels: u.Channels(),
	}
}

// Record is an update as stored by a repository
type Record struct {
	ID     int64
	Device string
	Update AnalogUpdate
}
