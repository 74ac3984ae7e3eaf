package main

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/hub"
	"github.com/vehnet/go-icsneo/internal/metrics"
	"github.com/vehnet/go-icsneo/internal/slcan"
	"github.com/vehnet/go-icsneo/internal/transport"
)

// fakeSlcanPort serves queued reads, then blocks briefly returning EOF like
// a serial port read timeout.
type fakeSlcanPort struct {
	mu    sync.Mutex
	reads [][]byte
	idx   int
}

func (f *fakeSlcanPort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.reads) {
		time.Sleep(10 * time.Millisecond)
		return 0, io.EOF
	}
	chunk := f.reads[f.idx]
	f.idx++
	return copy(p, chunk), nil
}
func (f *fakeSlcanPort) Write(p []byte) (int, error) { return len(p), nil }
func (f *fakeSlcanPort) Close() error                { return nil }

func hookSlcanPort(t *testing.T, p slcan.Port) {
	t.Helper()
	prev := openSlcanPort
	openSlcanPort = func(string, int, int, time.Duration) (slcan.Port, error) { return p, nil }
	t.Cleanup(func() { openSlcanPort = prev })
}

func TestInitSlcanBackendBasic(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// id 0x123, dlc 2, data AA BB in Lawicel framing.
	hookSlcanPort(t, &fakeSlcanPort{reads: [][]byte{[]byte("t1232AABB\r")}})

	h := hub.New()
	cl := &hub.Client{Out: make(chan can.Frame, 1), Closed: make(chan struct{})}
	h.Add(cl)

	cfg := validConfig()
	cfg.backend = "slcan"
	var wg sync.WaitGroup
	send, cleanup, err := initSlcanBackend(ctx, cfg, h, testLogger(), &wg)
	if err != nil {
		t.Fatalf("initSlcanBackend: %v", err)
	}
	defer cleanup()

	select {
	case fr := <-cl.Out:
		if fr.CANID != 0x123 || fr.Len != 2 || fr.Data[0] != 0xAA || fr.Data[1] != 0xBB {
			t.Fatalf("unexpected frame %+v", fr)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for decoded frame")
	}

	if err := send(can.Frame{CANID: 0x456, Len: 1, Data: [64]byte{9}}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

// errPort always fails reads with a synthetic error to drive backoff.
type errPort struct{}

func (errPort) Read(p []byte) (int, error)  { return 0, io.ErrNoProgress }
func (errPort) Write(p []byte) (int, error) { return len(p), nil }
func (errPort) Close() error                { return nil }

func TestSlcanBackendBackoffProgression(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hookSlcanPort(t, errPort{})

	var mu sync.Mutex
	var seen []time.Duration
	prevSleep := sleepFn
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
	defer func() { sleepFn = prevSleep }()

	cfg := validConfig()
	cfg.backend = "slcan"
	var wg sync.WaitGroup
	_, cleanup, err := initSlcanBackend(ctx, cfg, hub.New(), testLogger(), &wg)
	if err != nil {
		t.Fatalf("initSlcanBackend: %v", err)
	}
	cleanup()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 3 {
		t.Fatalf("expected at least 3 backoff samples, got %d", len(seen))
	}
	if seen[0] != rxBackoffMin {
		t.Fatalf("expected first backoff %v got %v", rxBackoffMin, seen[0])
	}
	prev := time.Duration(0)
	for i, d := range seen {
		if d < prev {
			t.Fatalf("backoff decreased at %d: prev=%v cur=%v", i, prev, d)
		}
		if d > rxBackoffMax {
			t.Fatalf("backoff exceeded max at %d: %v", i, d)
		}
		prev = d
	}
}

// blockingPort stalls writes forever to force the TX queue to fill.
type blockingPort struct{ block chan struct{} }

func (p *blockingPort) Read(b []byte) (int, error) {
	time.Sleep(5 * time.Millisecond)
	return 0, io.EOF
}
func (p *blockingPort) Write(b []byte) (int, error) { <-p.block; return len(b), nil }
func (p *blockingPort) Close() error                { return nil }

func TestSlcanBackendTxOverflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bp := &blockingPort{block: make(chan struct{})}
	hookSlcanPort(t, bp)
	preErrs := metrics.Snap().Errors

	cfg := validConfig()
	cfg.backend = "slcan"
	var wg sync.WaitGroup
	send, cleanup, err := initSlcanBackend(ctx, cfg, hub.New(), testLogger(), &wg)
	if err != nil {
		t.Fatalf("initSlcanBackend: %v", err)
	}
	// Unblock the port before cleanup so the close command can be written.
	defer cleanup()
	defer close(bp.block)

	var overflowErr error
	for i := 0; i < txQueueSize+2; i++ {
		if err := send(can.Frame{CANID: uint32(i & 0x7FF)}); err != nil && overflowErr == nil {
			overflowErr = err
		}
	}
	if overflowErr == nil {
		t.Fatalf("expected at least one overflow error")
	}
	if !errors.Is(overflowErr, slcan.ErrTxOverflow) {
		t.Fatalf("expected slcan.ErrTxOverflow, got %v", overflowErr)
	}
	if !errors.Is(overflowErr, transport.ErrTxQueueFull) {
		t.Fatalf("overflow error should classify as queue-full: %v", overflowErr)
	}
	if metrics.Snap().Errors == preErrs {
		t.Fatalf("expected error metric increment on overflow")
	}
}
