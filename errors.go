package icsneo

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevices is returned by FindAll when enumeration completes
	// without finding any hardware.
	ErrNoDevices = errors.New("icsneo: no devices found")

	// ErrClosed is returned by Device methods after Close.
	ErrClosed = errors.New("icsneo: device closed")

	// ErrInvalidDevice is returned when the native library rejects the
	// device handle.
	ErrInvalidDevice = errors.New("icsneo: invalid device")

	// ErrUnavailable is returned on platforms where the native library
	// is not linked into the build.
	ErrUnavailable = errors.New("icsneo: native library unavailable in this build")

	// ErrNoLastError means a native call reported failure but left the
	// last-error slot empty, violating the library's error contract.
	ErrNoLastError = errors.New("icsneo: native call failed without posting an event")

	// ErrLengthProbe means a length-probe call unexpectedly reported
	// success instead of filling in the required size.
	ErrLengthProbe = errors.New("icsneo: length probe unexpectedly succeeded")
)

// EventError carries the native event pulled from the last-error slot
// after a failing call.
type EventError struct {
	Event Event
}

func (e *EventError) Error() string {
	return fmt.Sprintf("icsneo: %s (event %d, %s)",
		e.Event.Description, e.Event.EventNumber, e.Event.Severity)
}

// lastCallError translates a failing native call. The last-error slot is
// read immediately, before any other native call can overwrite it. An
// empty slot after a reported failure is a native contract violation.
func lastCallError(op string) error {
	if ev, ok := lib.getLastError(); ok {
		return &EventError{Event: ev}
	}
	return fmt.Errorf("%s: %w", op, ErrNoLastError)
}
