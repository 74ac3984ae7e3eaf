package slcan

import (
	"context"
	"fmt"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/logging"
	"github.com/vehnet/go-icsneo/internal/metrics"
	"github.com/vehnet/go-icsneo/internal/transport"
)

var ErrTxOverflow = fmt.Errorf("slcan: %w", transport.ErrTxQueueFull)

// TXWriter funnels all adapter writes through one goroutine so lines
// never interleave on the serial port.
type TXWriter struct{ base *transport.AsyncTx }

// NewTXWriter creates an slcan TXWriter with a buffered channel of size buf.
func NewTXWriter(parent context.Context, sp Port, codec Codec, buf int) *TXWriter {
	send := func(fr can.Frame) error {
		line, err := codec.Encode(fr)
		if err != nil {
			return err
		}
		_, err = sp.Write(line)
		return err
	}
	hooks := transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrSlcanWrite)
			logging.L().Error("slcan_write_error", "error", err)
		},
		OnAfter: func() { metrics.IncSlcanTx() },
		OnDrop: func() error {
			metrics.IncError(metrics.ErrSlcanOverflow)
			return ErrTxOverflow
		},
	}
	return &TXWriter{base: transport.NewAsyncTx(parent, buf, send, hooks)}
}

// SendFrame queues a frame for asynchronous write (drops with
// ErrTxOverflow if the buffer is full). FD frames are rejected
// immediately since the wire protocol cannot carry them.
func (w *TXWriter) SendFrame(fr can.Frame) error {
	if fr.FD {
		metrics.IncError(metrics.ErrUnsupportedFrame)
		return ErrFDUnsupported
	}
	return w.base.SendFrame(fr)
}

// Close stops the writer and waits for the worker goroutine to exit.
func (w *TXWriter) Close() { w.base.Close() }
