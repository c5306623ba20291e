package domain

import (
	"fmt"
	"strings"
)

// Address names one device on one host, written "<device>@<host>"
type Address struct {
	Device string
	Host   string
}

// ParseAddress splits "Analog0@localhost:50051" into its device and host.
// The host keeps any port suffix.
func ParseAddress(s string) (Address, error) {
	device, host, ok := strings.Cut(s, "@")
	if !ok {
		return Address{}, fmt.Errorf("%w: %q has no '@'", ErrInvalidAddress, s)
	}
	if device == "" {
		return Address{}, fmt.Errorf("%w: %q has no device name", ErrInvalidAddress, s)
	}
	if host == "" {
		return Address{}, fmt.Errorf("%w: %q has no host", ErrInvalidAddress, s)
	}
	return Address{Device: device, Host: host}, nil
}

// String returns the address in "<device>@<host>" form
func (a Address) String() string {
	return a.Device + "@" + a.Host
}
