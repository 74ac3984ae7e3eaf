package icsneo

import "fmt"

// Event is a diagnostic record reported by the native library, either
// globally or against one device. The description is copied out of
// library-owned memory at read time.
type Event struct {
	Description string
	Timestamp   uint64
	EventNumber uint32
	Severity    Severity
	Serial      string
}

func (e Event) String() string {
	if e.Serial != "" {
		return fmt.Sprintf("[%s] %s (%d) on %s", e.Severity, e.Description, e.EventNumber, e.Serial)
	}
	return fmt.Sprintf("[%s] %s (%d)", e.Severity, e.Description, e.EventNumber)
}

// LastError drains the process-global last-error slot. Most callers
// never need it directly; failing calls translate it into an EventError
// already. It is exported for parity with the native surface.
func LastError() (Event, bool) {
	return lib.getLastError()
}

// Events drains the global event queue.
func Events() ([]Event, error) {
	if err := lib.available(); err != nil {
		return nil, err
	}
	return countQuery("get events", func(buf []Event, count *int) bool {
		return lib.getEvents(buf, count)
	})
}

// DiscardEvents empties the global event queue.
func DiscardEvents() {
	lib.discardAllEvents()
}

// SetEventLimit caps how many events the native library retains before
// discarding the oldest and posting a TooManyEvents warning.
func SetEventLimit(limit int) {
	lib.setEventLimit(limit)
}

// EventLimit reports the current event retention cap.
func EventLimit() int {
	return lib.getEventLimit()
}
