// Package transport holds the codec capability interfaces and the
// asynchronous TX funnels shared by the backends.
package transport

import (
	"errors"
	"io"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/cnl"
)

// ErrTxQueueFull is the shared overflow sentinel. Each backend wraps it in
// its own error so callers can classify overflow generically with errors.Is
// without importing every backend package.
var ErrTxQueueFull = errors.New("tx queue full")

// FrameDecoder decodes a single CAN frame from a stream.
type FrameDecoder interface {
	Decode(r io.Reader) (can.Frame, error)
}

// MultiFrameDecoder drains multiple frames from a stream in one call.
type MultiFrameDecoder interface {
	DecodeN(r io.Reader, max int, onFrame func(can.Frame)) (int, error)
}

// FrameBatchEncoder encodes frame batches, either to bytes or to a writer.
type FrameBatchEncoder interface {
	Encode([]can.Frame) []byte
	EncodeTo(w io.Writer, frames []can.Frame) (int, error)
}

// FrameSink is a generic frame transmission target.
type FrameSink interface {
	SendFrame(can.Frame) error
}

var (
	_ FrameDecoder      = (*cnl.Codec)(nil)
	_ MultiFrameDecoder = (*cnl.Codec)(nil)
	_ FrameBatchEncoder = (*cnl.Codec)(nil)
)
