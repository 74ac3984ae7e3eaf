package gateway

import (
	"context"
	"fmt"

	icsneo "github.com/vehnet/go-icsneo"
	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/logging"
	"github.com/vehnet/go-icsneo/internal/metrics"
	"github.com/vehnet/go-icsneo/internal/transport"
)

var ErrTxOverflow = fmt.Errorf("neovi: %w", transport.ErrTxQueueFull)

// TXWriter funnels frame transmits into batched native calls, so a burst
// from the TCP side crosses the FFI boundary once instead of per frame.
type TXWriter struct {
	base *transport.AsyncBatchTx
}

// NewTXWriter creates a device TXWriter with a buffered channel of size
// buf handing at most batchMax frames to one TransmitBatch call. Frames
// are transmitted on the given network.
func NewTXWriter(parent context.Context, dev Device, net icsneo.NetID, buf, batchMax int) *TXWriter {
	sendBatch := func(frames []can.Frame) error {
		msgs := make([]icsneo.Message, len(frames))
		for i, fr := range frames {
			msgs[i] = FrameToMessage(fr, net)
		}
		return dev.TransmitBatch(msgs)
	}
	hooks := transport.BatchHooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrNeoVIWrite)
			logging.L().Error("neovi_write_error", "error", err)
		},
		OnAfter: func(n int) { metrics.AddNeoVITx(n) },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrNeoVIOverflow)
			return ErrTxOverflow
		},
	}
	return &TXWriter{base: transport.NewAsyncBatchTx(parent, buf, batchMax, sendBatch, hooks)}
}

// SendFrame queues a frame for the next transmit batch (drops with
// ErrTxOverflow if the buffer is full). FD frames pass through; the
// hardware is FD capable.
func (w *TXWriter) SendFrame(fr can.Frame) error {
	return w.base.SendFrame(fr)
}

// Close stops the writer and waits for the worker goroutine to exit.
func (w *TXWriter) Close() { w.base.Close() }
