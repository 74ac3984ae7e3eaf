// Package cnl implements the cannelloni frame encoding used on the TCP leg.
package cnl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/metrics"
)

// Wire layout per frame:
//
//	4 bytes   big-endian CANID (EFF/RTR/ERR flags in the upper bits)
//	1 byte    payload length; the high bit marks a CAN FD frame
//	1 byte    FD flags (bit0 BRS, bit1 ESI), present only for FD frames
//	N bytes   payload
const (
	fdLenFlag   = 0x80
	fdFlagBRS   = 0x01
	fdFlagESI   = 0x02
	headerBytes = 5
)

// Codec encodes and decodes cannelloni frames. Stateless and safe for
// concurrent use.
type Codec struct{}

// ErrInvalidLength is returned for a length byte outside the legal range of
// the frame kind (0..8 classic, discrete FD sizes up to 64).
var ErrInvalidLength = errors.New("cannelloni: invalid length")

// ErrTruncatedFrame is returned when the reader ends mid-frame.
var ErrTruncatedFrame = errors.New("cannelloni: truncated frame")

// Encode packs frames into a single buffer.
func (c *Codec) Encode(frames []can.Frame) []byte {
	if len(frames) == 0 {
		return nil
	}
	var buf bytes.Buffer
	buf.Grow(len(frames) * (headerBytes + 1 + 8))
	_, _ = c.EncodeTo(&buf, frames)
	return buf.Bytes()
}

// EncodeTo writes the wire representation of frames to w and returns the
// number of bytes written.
func (c *Codec) EncodeTo(w io.Writer, frames []can.Frame) (int, error) {
	var total int
	var hdr [headerBytes + 1]byte
	for _, f := range frames {
		binary.BigEndian.PutUint32(hdr[:4], f.CANID)
		ln := int(f.Len)
		if ln > len(f.Data) {
			ln = len(f.Data)
		}
		hdr[4] = byte(ln) & 0x7F
		n := headerBytes
		if f.FD {
			hdr[4] |= fdLenFlag
			var flags byte
			if f.BRS {
				flags |= fdFlagBRS
			}
			if f.ESI {
				flags |= fdFlagESI
			}
			hdr[5] = flags
			n++
		}
		wn, err := w.Write(hdr[:n])
		total += wn
		if err != nil {
			return total, fmt.Errorf("cannelloni encode header: %w", err)
		}
		if ln > 0 {
			wn, err = w.Write(f.Data[:ln])
			total += wn
			if err != nil {
				return total, fmt.Errorf("cannelloni encode data: %w", err)
			}
		}
	}
	return total, nil
}

// Decode reads exactly one frame from r. It returns io.EOF when called at a
// clean frame boundary with no more data available.
func (c *Codec) Decode(r io.Reader) (can.Frame, error) {
	var f can.Frame
	var idb [4]byte
	if _, err := io.ReadFull(r, idb[:]); err != nil {
		return f, err
	}
	f.CANID = binary.BigEndian.Uint32(idb[:])
	var lb [1]byte
	if _, err := io.ReadFull(r, lb[:]); err != nil {
		return f, truncated(err)
	}
	f.FD = lb[0]&fdLenFlag != 0
	f.Len = lb[0] & 0x7F
	if f.FD {
		var fb [1]byte
		if _, err := io.ReadFull(r, fb[:]); err != nil {
			return f, truncated(err)
		}
		f.BRS = fb[0]&fdFlagBRS != 0
		f.ESI = fb[0]&fdFlagESI != 0
	}
	if err := f.Validate(); err != nil {
		metrics.IncMalformed()
		return f, fmt.Errorf("cannelloni decode: %w (%d)", ErrInvalidLength, f.Len)
	}
	if f.Len > 0 {
		if _, err := io.ReadFull(r, f.Data[:f.Len]); err != nil {
			return f, truncated(err)
		}
	}
	return f, nil
}

func truncated(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		metrics.IncMalformed()
		return fmt.Errorf("cannelloni decode: %w", ErrTruncatedFrame)
	}
	metrics.IncMalformed()
	return fmt.Errorf("cannelloni decode: %w", err)
}

// DecodeN decodes up to max frames (all available if max<=0), invoking
// onFrame for each. It returns the number decoded and the terminal error,
// which may be io.EOF.
func (c *Codec) DecodeN(r io.Reader, max int, onFrame func(can.Frame)) (int, error) {
	var n int
	for max <= 0 || n < max {
		fr, err := c.Decode(r)
		if err != nil {
			return n, err
		}
		onFrame(fr)
		n++
	}
	return n, nil
}
