package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	icsneo "github.com/vehnet/go-icsneo"
	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/logging"
	"github.com/vehnet/go-icsneo/internal/metrics"
)

// fakeDev serves canned message batches, then an optional error, then
// idles like a quiet bus.
type fakeDev struct {
	mu      sync.Mutex
	batches [][]icsneo.Message
	idx     int
	pollErr error
	sent    [][]icsneo.Message
	sendErr error
	events  []icsneo.Event
	block   chan struct{} // when set, TransmitBatch waits on it
}

func (d *fakeDev) Messages(timeout time.Duration) ([]icsneo.Message, error) {
	d.mu.Lock()
	if d.idx < len(d.batches) {
		b := d.batches[d.idx]
		d.idx++
		d.mu.Unlock()
		return b, nil
	}
	err := d.pollErr
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	time.Sleep(timeout)
	return nil, nil
}

func (d *fakeDev) TransmitBatch(ms []icsneo.Message) error {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	batch := make([]icsneo.Message, len(ms))
	copy(batch, ms)
	d.sent = append(d.sent, batch)
	return nil
}

func (d *fakeDev) Events() ([]icsneo.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	evs := d.events
	d.events = nil
	return evs, nil
}

func (d *fakeDev) sentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.sent {
		n += len(b)
	}
	return n
}

// chanHub collects broadcasts on a channel.
type chanHub struct{ out chan can.Frame }

func (h *chanHub) Broadcast(fr can.Frame) {
	select {
	case h.out <- fr:
	default:
	}
}

func TestPumpBroadcastsCANOnly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := &fakeDev{batches: [][]icsneo.Message{{
		{NetType: icsneo.NetTypeCAN, ArbID: 0x100, Data: []byte{1}},
		{NetType: icsneo.NetTypeCAN, ArbID: 0x101, TransmitEcho: true},
		{NetType: icsneo.NetTypeLIN, ArbID: 0x3C},
		{NetType: icsneo.NetTypeCAN, ArbID: 0x102, CANFD: true, Data: make([]byte, 16)},
	}}}
	h := &chanHub{out: make(chan can.Frame, 8)}
	go RunPump(ctx, dev, h, PumpConfig{PollTimeout: 5 * time.Millisecond}, logging.Discard())

	var got []can.Frame
	deadline := time.After(500 * time.Millisecond)
	for len(got) < 2 {
		select {
		case fr := <-h.out:
			got = append(got, fr)
		case <-deadline:
			t.Fatalf("timeout, got %d frames", len(got))
		}
	}
	cancel()
	if got[0].CANID != 0x100 || got[1].CANID != 0x102 || !got[1].FD {
		t.Fatalf("unexpected frames: %+v", got)
	}
	// Echo and LIN messages must not have been forwarded.
	select {
	case fr := <-h.out:
		t.Fatalf("extra frame broadcast: %+v", fr)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPumpBackoffProgression(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := &fakeDev{pollErr: errors.New("device wedged")}
	var mu sync.Mutex
	var seen []time.Duration
	sleepFn = func(d time.Duration) {
		mu.Lock()
		if len(seen) < 6 {
			seen = append(seen, d)
			if len(seen) == 6 {
				cancel()
			}
		}
		mu.Unlock()
	}
	defer func() { sleepFn = time.Sleep }()

	cfg := PumpConfig{PollTimeout: time.Millisecond, BackoffMin: 10 * time.Millisecond, BackoffMax: 40 * time.Millisecond}
	done := make(chan struct{})
	go func() {
		RunPump(ctx, dev, &chanHub{out: make(chan can.Frame, 1)}, cfg, logging.Discard())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 3 {
		t.Fatalf("expected backoff samples, got %d", len(seen))
	}
	if seen[0] != cfg.BackoffMin {
		t.Fatalf("first backoff %v want %v", seen[0], cfg.BackoffMin)
	}
	prev := time.Duration(0)
	for i, d := range seen {
		if d < prev {
			t.Fatalf("backoff decreased at %d: %v -> %v", i, prev, d)
		}
		if d > cfg.BackoffMax {
			t.Fatalf("backoff exceeded max: %v", d)
		}
		prev = d
	}
}

func TestEventPollerCountsBySeverity(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := &fakeDev{events: []icsneo.Event{
		{Description: "buffer overflow", Severity: icsneo.SeverityWarning},
		{Description: "went offline", Severity: icsneo.SeverityError},
	}}
	pre := metrics.Snap().DeviceEvents
	go RunEventPoller(ctx, dev, time.Millisecond, logging.Discard())

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if metrics.Snap().DeviceEvents-pre >= 2 {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected 2 device events counted, delta %d", metrics.Snap().DeviceEvents-pre)
}
