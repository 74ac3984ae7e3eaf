package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vehnet/go-icsneo/internal/can"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestAsyncTxSendSuccess(t *testing.T) {
	var sent, after atomic.Int64
	a := NewAsyncTx(context.Background(), 8, func(can.Frame) error {
		sent.Add(1)
		return nil
	}, Hooks{OnAfter: func() { after.Add(1) }})
	defer a.Close()

	for i := 0; i < 5; i++ {
		if err := a.SendFrame(can.Frame{CANID: uint32(i)}); err != nil {
			t.Fatalf("SendFrame: %v", err)
		}
	}
	waitFor(t, func() bool { return sent.Load() == 5 && after.Load() == 5 })
}

func TestAsyncTxOverflowCallsOnDrop(t *testing.T) {
	errOverflow := errors.New("overflow")
	block := make(chan struct{})
	var drops atomic.Int64
	a := NewAsyncTx(context.Background(), 1, func(can.Frame) error {
		<-block
		return nil
	}, Hooks{OnDrop: func() error {
		drops.Add(1)
		return errOverflow
	}})
	defer func() {
		close(block)
		a.Close()
	}()

	// First frame parks the worker inside send. The worker may race the
	// enqueue, so keep pushing until the one-slot buffer overflows.
	if err := a.SendFrame(can.Frame{}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	waitFor(t, func() bool {
		return errors.Is(a.SendFrame(can.Frame{}), errOverflow)
	})
	if drops.Load() == 0 {
		t.Fatal("OnDrop was not called")
	}
}

func TestAsyncTxSendErrorCallsOnError(t *testing.T) {
	errSend := errors.New("send failed")
	var got atomic.Value
	a := NewAsyncTx(context.Background(), 4, func(can.Frame) error {
		return errSend
	}, Hooks{OnError: func(err error) { got.Store(err) }})
	defer a.Close()

	if err := a.SendFrame(can.Frame{}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	waitFor(t, func() bool { return got.Load() != nil })
	if err, _ := got.Load().(error); !errors.Is(err, errSend) {
		t.Fatalf("OnError got %v, want %v", got.Load(), errSend)
	}
}

func TestAsyncTxSendAfterClose(t *testing.T) {
	a := NewAsyncTx(context.Background(), 4, func(can.Frame) error { return nil }, Hooks{})
	a.Close()
	if err := a.SendFrame(can.Frame{}); !errors.Is(err, ErrAsyncTxClosed) {
		t.Fatalf("SendFrame after Close = %v, want ErrAsyncTxClosed", err)
	}
}

func TestAsyncTxCloseIdempotent(t *testing.T) {
	a := NewAsyncTx(context.Background(), 4, func(can.Frame) error { return nil }, Hooks{})
	a.Close()
	a.Close()
}

func TestAsyncTxParentCancelStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var sent atomic.Int64
	a := NewAsyncTx(ctx, 4, func(can.Frame) error {
		sent.Add(1)
		return nil
	}, Hooks{})
	cancel()
	// Close must still return promptly after the parent context died.
	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close hung after parent cancel")
	}
}

func TestAsyncTxCloseConcurrentWithSend(t *testing.T) {
	a := NewAsyncTx(context.Background(), 16, func(can.Frame) error { return nil }, Hooks{})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_ = a.SendFrame(can.Frame{})
			}
		}()
	}
	time.Sleep(10 * time.Millisecond)
	a.Close()
	close(stop)
	wg.Wait()

	if err := a.SendFrame(can.Frame{}); !errors.Is(err, ErrAsyncTxClosed) {
		t.Fatalf("SendFrame after Close = %v, want ErrAsyncTxClosed", err)
	}
}

func TestAsyncBatchTxCoalesces(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var batches [][]can.Frame
	first := true

	a := NewAsyncBatchTx(context.Background(), 16, 8, func(fs []can.Frame) error {
		mu.Lock()
		wasFirst := first
		first = false
		mu.Unlock()
		if wasFirst {
			<-gate
		}
		cp := make([]can.Frame, len(fs))
		copy(cp, fs)
		mu.Lock()
		batches = append(batches, cp)
		mu.Unlock()
		return nil
	}, BatchHooks{})
	defer a.Close()

	// The worker takes the first frame and parks in sendBatch.
	if err := a.SendFrame(can.Frame{CANID: 1}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !first
	})
	// These queue up while the worker is parked.
	for i := 2; i <= 5; i++ {
		if err := a.SendFrame(can.Frame{CANID: uint32(i)}); err != nil {
			t.Fatalf("SendFrame: %v", err)
		}
	}
	close(gate)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		n := 0
		for _, b := range batches {
			n += len(b)
		}
		return n == 5
	})
	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2 (1 then 4 coalesced)", len(batches))
	}
	if len(batches[0]) != 1 || len(batches[1]) != 4 {
		t.Fatalf("batch sizes %d/%d, want 1/4", len(batches[0]), len(batches[1]))
	}
}

func TestAsyncBatchTxAfterHookReportsCount(t *testing.T) {
	var total atomic.Int64
	a := NewAsyncBatchTx(context.Background(), 16, 4, func(fs []can.Frame) error {
		return nil
	}, BatchHooks{OnAfter: func(n int) { total.Add(int64(n)) }})
	defer a.Close()

	for i := 0; i < 6; i++ {
		if err := a.SendFrame(can.Frame{CANID: uint32(i)}); err != nil {
			t.Fatalf("SendFrame: %v", err)
		}
	}
	waitFor(t, func() bool { return total.Load() == 6 })
}

func TestAsyncBatchTxErrorCallsOnError(t *testing.T) {
	errSend := errors.New("batch send failed")
	var got atomic.Value
	a := NewAsyncBatchTx(context.Background(), 4, 4, func([]can.Frame) error {
		return errSend
	}, BatchHooks{OnError: func(err error) { got.Store(err) }})
	defer a.Close()

	if err := a.SendFrame(can.Frame{}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	waitFor(t, func() bool { return got.Load() != nil })
	if err, _ := got.Load().(error); !errors.Is(err, errSend) {
		t.Fatalf("OnError got %v, want %v", got.Load(), errSend)
	}
}

func TestAsyncBatchTxSendAfterClose(t *testing.T) {
	a := NewAsyncBatchTx(context.Background(), 4, 4, func([]can.Frame) error { return nil }, BatchHooks{})
	a.Close()
	if err := a.SendFrame(can.Frame{}); !errors.Is(err, ErrAsyncTxClosed) {
		t.Fatalf("SendFrame after Close = %v, want ErrAsyncTxClosed", err)
	}
}
