package transport

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vehnet/go-icsneo/internal/can"
)

// BatchHooks customize AsyncBatchTx behavior. OnAfter receives the number
// of frames in the batch that was just sent.
type BatchHooks struct {
	OnError func(error)
	OnAfter func(n int)
	OnDrop  func() error
}

// AsyncBatchTx is the batching sibling of AsyncTx for sinks where one
// call carrying many frames is much cheaper than many calls carrying one.
// The worker wakes on the first queued frame, drains whatever else is
// already buffered (up to batchMax) without blocking, and hands the whole
// slice to a single sendBatch call. Enqueue semantics match AsyncTx:
// non-blocking, OnDrop on overflow, ErrAsyncTxClosed after Close.
type AsyncBatchTx struct {
	mu     sync.Mutex
	ch     chan can.Frame
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	batchMax  int
	sendBatch func([]can.Frame) error
	hooks     BatchHooks
	closed    atomic.Bool
}

// NewAsyncBatchTx constructs an AsyncBatchTx with a buffered channel of
// size buf. batchMax caps the frames handed to one sendBatch call.
func NewAsyncBatchTx(parent context.Context, buf, batchMax int, sendBatch func([]can.Frame) error, hooks BatchHooks) *AsyncBatchTx {
	if batchMax < 1 {
		batchMax = 1
	}
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncBatchTx{
		ch:        make(chan can.Frame, buf),
		ctx:       ctx,
		cancel:    cancel,
		batchMax:  batchMax,
		sendBatch: sendBatch,
		hooks:     hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncBatchTx) loop() {
	defer a.wg.Done()
	batch := make([]can.Frame, 0, a.batchMax)
	for {
		select {
		case fr, ok := <-a.ch:
			if !ok {
				return
			}
			batch = append(batch[:0], fr)
		drain:
			for len(batch) < a.batchMax {
				select {
				case more, ok := <-a.ch:
					if !ok {
						break drain
					}
					batch = append(batch, more)
				default:
					break drain
				}
			}
			if err := a.sendBatch(batch); err != nil {
				if a.hooks.OnError != nil {
					a.hooks.OnError(err)
				}
				continue
			}
			if a.hooks.OnAfter != nil {
				a.hooks.OnAfter(len(batch))
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// SendFrame queues a frame for the next batch or returns the drop error
// if the buffer is full.
func (a *AsyncBatchTx) SendFrame(fr can.Frame) error {
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	select {
	case a.ch <- fr:
		return nil
	default:
		if a.hooks.OnDrop != nil {
			return a.hooks.OnDrop()
		}
		return nil
	}
}

// Close stops the worker and waits for it to finish. A batch already
// handed to sendBatch completes; frames still queued behind it are
// discarded.
func (a *AsyncBatchTx) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.mu.Lock()
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}
