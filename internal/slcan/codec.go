package slcan

import (
	"bytes"
	"errors"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/metrics"
)

// ErrFDUnsupported is returned by Encode for CAN FD frames. The Lawicel
// ASCII protocol has no FD frame type.
var ErrFDUnsupported = errors.New("slcan: CAN FD frames not supported")

// Longest valid line: 'T' + 8 id digits + dlc digit + 16 data digits = 26
// bytes before the CR. Anything longer without a CR is garbage.
const maxLine = 32

const (
	bel = 0x07 // adapter error response, sent without a CR
	cr  = '\r'
)

type Codec struct{}

// CompactBuffer reclaims consumed prefix capacity when the underlying
// buffer grows too large relative to unread bytes. It returns true if
// compaction occurred.
func CompactBuffer(b *bytes.Buffer) bool {
	data := b.Bytes()
	if len(data) < 1024 {
		return false
	}
	if cap(data) > 0 && len(data)*4 < cap(data) {
		clone := make([]byte, len(data))
		copy(clone, data)
		b.Reset()
		_, _ = b.Write(clone)
		return true
	}
	return false
}

const hexDigits = "0123456789ABCDEF"

func appendHex(dst []byte, v uint32, digits int) []byte {
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hexDigits[(v>>(uint(i)*4))&0xF])
	}
	return dst
}

func parseHex(b []byte) (uint32, bool) {
	var v uint32
	for _, c := range b {
		var n uint32
		switch {
		case c >= '0' && c <= '9':
			n = uint32(c - '0')
		case c >= 'A' && c <= 'F':
			n = uint32(c-'A') + 10
		case c >= 'a' && c <= 'f':
			n = uint32(c-'a') + 10
		default:
			return 0, false
		}
		v = v<<4 | n
	}
	return v, true
}

// Encode builds the ASCII line for one classic frame:
//
//	t123410AABBCCDD\r   standard data frame, ID 0x123, DLC 4
//	T0000123480011..\r  extended data frame
//	r1230\r             standard remote frame
//	R000001238\r        extended remote frame
func (Codec) Encode(f can.Frame) ([]byte, error) {
	if f.FD {
		return nil, ErrFDUnsupported
	}
	out := make([]byte, 0, maxLine)
	ext := f.Extended()
	rtr := f.Remote()
	switch {
	case rtr && ext:
		out = append(out, 'R')
	case rtr:
		out = append(out, 'r')
	case ext:
		out = append(out, 'T')
	default:
		out = append(out, 't')
	}
	if ext {
		out = appendHex(out, f.ID(), 8)
	} else {
		out = appendHex(out, f.ID(), 3)
	}
	out = append(out, '0'+f.Len)
	if !rtr {
		for _, b := range f.Payload() {
			out = appendHex(out, uint32(b), 2)
		}
	}
	return append(out, cr), nil
}

// DecodeStream consumes complete CR-terminated lines from in and emits
// decoded frames via out. Adapter responses (acks, BEL errors, status
// replies) are consumed silently; unparsable frame lines are dropped
// with a malformed count and decoding resyncs on the next CR.
func (Codec) DecodeStream(in *bytes.Buffer, out func(can.Frame)) error {
	for {
		data := in.Bytes()
		_ = CompactBuffer(in)

		// BEL error responses arrive without a terminator.
		if len(data) > 0 && data[0] == bel {
			in.Next(1)
			continue
		}
		i := bytes.IndexByte(data, cr)
		if i < 0 {
			if len(data) > maxLine {
				// No terminator in sight; discard and resync.
				metrics.IncMalformed()
				in.Next(len(data))
			}
			return nil
		}
		line := data[:i]
		if len(line) == 0 {
			in.Next(1)
			continue
		}
		f, ok := decodeLine(line)
		in.Next(i + 1)
		if !ok {
			continue
		}
		out(f)
		metrics.IncSlcanRx()
	}
}

func decodeLine(line []byte) (can.Frame, bool) {
	var f can.Frame
	switch line[0] {
	case 't', 'T', 'r', 'R':
	case 'z', 'Z', 'F', 'V', 'v', 'N':
		// TX acks and command responses carry no frame.
		return f, false
	default:
		metrics.IncMalformed()
		return f, false
	}

	ext := line[0] == 'T' || line[0] == 'R'
	rtr := line[0] == 'r' || line[0] == 'R'
	idLen := 3
	if ext {
		idLen = 8
	}
	if len(line) < 1+idLen+1 {
		metrics.IncMalformed()
		return f, false
	}
	id, ok := parseHex(line[1 : 1+idLen])
	if !ok {
		metrics.IncMalformed()
		return f, false
	}
	dlc := line[1+idLen]
	if dlc < '0' || dlc > '8' {
		metrics.IncMalformed()
		return f, false
	}
	n := int(dlc - '0')

	want := 1 + idLen + 1
	if !rtr {
		want += 2 * n
	}
	if len(line) != want {
		metrics.IncMalformed()
		return f, false
	}

	if ext {
		f.CANID = (id & can.CAN_EFF_MASK) | can.CAN_EFF_FLAG
	} else {
		f.CANID = id & can.CAN_SFF_MASK
	}
	if rtr {
		f.CANID |= can.CAN_RTR_FLAG
	}
	f.Len = uint8(n)
	if !rtr {
		for i := 0; i < n; i++ {
			b, ok := parseHex(line[1+idLen+1+2*i : 1+idLen+1+2*i+2])
			if !ok {
				metrics.IncMalformed()
				return can.Frame{}, false
			}
			f.Data[i] = byte(b)
		}
	}
	return f, true
}
