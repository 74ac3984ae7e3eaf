package icsneo

import (
	"errors"
	"testing"
)

// stubFFI is the embedding base for test fakes: every native call fails
// like the unavailable bridge, but the library itself reports present.
type stubFFI struct{ unavailableFFI }

func (stubFFI) available() error { return nil }

// swapLib installs a fake bridge for one test and restores the old one.
func swapLib(t *testing.T, f ffi) {
	t.Helper()
	old := lib
	lib = f
	t.Cleanup(func() { lib = old })
}

// strFFI serves one C string through the probe convention.
type strFFI struct {
	stubFFI
	s      string
	probes int
	fills  int
}

func (f *strFFI) describeDevice(_ rawDevice, buf []byte, count *int) bool {
	if buf == nil {
		f.probes++
		*count = len(f.s)
		return false
	}
	f.fills++
	n := copy(buf, f.s)
	if n < len(buf) {
		buf[n] = 0
	}
	*count = n
	return true
}

func TestStringQueryTwoCalls(t *testing.T) {
	f := &strFFI{s: "neoVI FIRE 2 CY1234"}
	swapLib(t, f)

	got, err := newDevice(rawDevice{}).Describe()
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if got != f.s {
		t.Fatalf("got %q want %q", got, f.s)
	}
	if f.probes != 1 || f.fills != 1 {
		t.Fatalf("expected one probe and one fill, got %d/%d", f.probes, f.fills)
	}
}

// eagerStrFFI violates the probe contract by succeeding on the nil call.
type eagerStrFFI struct{ stubFFI }

func (eagerStrFFI) describeDevice(_ rawDevice, buf []byte, count *int) bool {
	*count = 0
	return true
}

func TestStringQueryProbeSuccess(t *testing.T) {
	swapLib(t, eagerStrFFI{})
	_, err := newDevice(rawDevice{}).Describe()
	if !errors.Is(err, ErrLengthProbe) {
		t.Fatalf("expected ErrLengthProbe, got %v", err)
	}
}

// failStrFFI fails the fill call and posts a last-error event.
type failStrFFI struct{ stubFFI }

func (failStrFFI) describeDevice(_ rawDevice, buf []byte, count *int) bool {
	if buf == nil {
		*count = 4
	}
	return false
}

func (failStrFFI) getLastError() (Event, bool) {
	return Event{Description: "device gone", EventNumber: 7, Severity: SeverityError}, true
}

func TestStringQueryFillFailure(t *testing.T) {
	swapLib(t, failStrFFI{})
	_, err := newDevice(rawDevice{}).Describe()
	var ee *EventError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EventError, got %v", err)
	}
	if ee.Event.EventNumber != 7 {
		t.Fatalf("wrong event carried: %+v", ee.Event)
	}
}

// silentFailFFI fails without posting an event, which the native error
// contract forbids.
type silentFailFFI struct{ stubFFI }

func (silentFailFFI) transmit(rawDevice, Message) bool { return false }

func TestFailureWithEmptyErrorSlot(t *testing.T) {
	swapLib(t, silentFailFFI{})
	err := newDevice(rawDevice{}).Transmit(Message{})
	if !errors.Is(err, ErrNoLastError) {
		t.Fatalf("expected ErrNoLastError, got %v", err)
	}
}

// eventsFFI serves canned events through the count-probe convention and
// can shrink the count between probe and fill.
type eventsFFI struct {
	stubFFI
	events []Event
	shrink int // events that "drain" between the two calls
}

func (f *eventsFFI) getEvents(events []Event, count *int) bool {
	if events == nil {
		*count = len(f.events)
		return true
	}
	n := copy(events, f.events[:len(f.events)-f.shrink])
	*count = n
	return true
}

func TestCountQueryShrinkBetweenCalls(t *testing.T) {
	f := &eventsFFI{
		events: []Event{
			{Description: "a"}, {Description: "b"}, {Description: "c"},
		},
		shrink: 1,
	}
	swapLib(t, f)
	evs, err := Events()
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected shrunk count 2, got %d", len(evs))
	}
}

func TestCountQueryEmpty(t *testing.T) {
	swapLib(t, &eventsFFI{})
	evs, err := Events()
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if evs != nil {
		t.Fatalf("expected nil slice for empty queue, got %v", evs)
	}
}

func TestCString(t *testing.T) {
	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte{'C', 'Y', '1', 0, 'x'}, "CY1"},
		{[]byte{'A', 'B'}, "AB"},
		{[]byte{0}, ""},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := cString(tc.in); got != tc.want {
			t.Errorf("cString(%v) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestUnavailableBridge(t *testing.T) {
	swapLib(t, unavailableFFI{})
	if _, err := FindAll(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FindAll: expected ErrUnavailable, got %v", err)
	}
	if _, err := SupportedDevices(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SupportedDevices: expected ErrUnavailable, got %v", err)
	}
	if err := newDevice(rawDevice{}).Open(); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Open: expected ErrUnavailable, got %v", err)
	}
}
