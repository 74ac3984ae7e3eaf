package cnl

import (
	"bytes"
	"crypto/rand"
	"errors"
	"io"
	"testing"

	"github.com/vehnet/go-icsneo/internal/can"
)

func mkFrame(id uint32, n int) can.Frame {
	var f can.Frame
	f.CANID = (id & can.CAN_EFF_MASK) | can.CAN_EFF_FLAG
	if n < 0 {
		n = 0
	}
	if n > 8 {
		n = 8
	}
	f.Len = uint8(n)
	rand.Read(f.Data[:n])
	return f
}

func mkFDFrame(id uint32, n int, brs bool) can.Frame {
	var f can.Frame
	f.CANID = (id & can.CAN_EFF_MASK) | can.CAN_EFF_FLAG
	f.FD = true
	f.BRS = brs
	f.Len = uint8(n)
	rand.Read(f.Data[:n])
	return f
}

func sameFrame(a, b can.Frame) bool {
	return a.CANID == b.CANID && a.Len == b.Len && a.FD == b.FD &&
		a.BRS == b.BRS && a.ESI == b.ESI &&
		bytes.Equal(a.Data[:a.Len], b.Data[:b.Len])
}

func TestCodecRoundTrip(t *testing.T) {
	codec := Codec{}
	in := []can.Frame{
		mkFrame(0x1E5A, 8),
		mkFrame(0x1F55, 6),
		mkFrame(0x12345, 0),
	}
	wire := codec.Encode(in)
	var out []can.Frame
	n, err := codec.DecodeN(bytes.NewReader(wire), 0, func(f can.Frame) { out = append(out, f) })
	if err != nil && err != io.EOF {
		t.Fatalf("DecodeN unexpected err: %v", err)
	}
	if n != len(in) || len(out) != len(in) {
		t.Fatalf("decoded %d collected %d want %d", n, len(out), len(in))
	}
	for i := range in {
		if !sameFrame(in[i], out[i]) {
			t.Fatalf("frame %d mismatch: in=%v out=%v", i, in[i], out[i])
		}
	}
}

func TestCodecRoundTripFD(t *testing.T) {
	codec := Codec{}
	in := []can.Frame{
		mkFDFrame(0x100, 64, true),
		mkFDFrame(0x101, 12, false),
		mkFrame(0x102, 4),
		mkFDFrame(0x103, 0, false),
	}
	in[1].ESI = true
	wire := codec.Encode(in)
	var out []can.Frame
	n, err := codec.DecodeN(bytes.NewReader(wire), 0, func(f can.Frame) { out = append(out, f) })
	if err != nil && err != io.EOF {
		t.Fatalf("DecodeN unexpected err: %v", err)
	}
	if n != len(in) {
		t.Fatalf("decoded %d want %d", n, len(in))
	}
	for i := range in {
		if !sameFrame(in[i], out[i]) {
			t.Fatalf("frame %d mismatch: in=%v out=%v", i, in[i], out[i])
		}
	}
}

func TestCodecEncodeToMatchesEncode(t *testing.T) {
	codec := Codec{}
	frames := []can.Frame{mkFrame(0x10, 8), mkFDFrame(0x11, 24, true), mkFrame(0x12, 3)}
	a := codec.Encode(frames)
	var buf bytes.Buffer
	if _, err := codec.EncodeTo(&buf, frames); err != nil {
		t.Fatalf("EncodeTo error: %v", err)
	}
	if !bytes.Equal(a, buf.Bytes()) {
		t.Fatalf("Encode vs EncodeTo mismatch\nenc=% X\nencTo=% X", a, buf.Bytes())
	}
}

func TestCodecDecodeErrors(t *testing.T) {
	codec := Codec{}

	// Classic frame with length 9.
	var bad bytes.Buffer
	bad.Write([]byte{0, 0, 0, 1})
	bad.WriteByte(0x09)
	if _, err := codec.Decode(&bad); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}

	// FD frame with a non-step length (13).
	var badFD bytes.Buffer
	badFD.Write([]byte{0, 0, 0, 2})
	badFD.WriteByte(0x80 | 13)
	badFD.WriteByte(0x00) // FD flags
	if _, err := codec.Decode(&badFD); !errors.Is(err, ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for fd, got %v", err)
	}

	// Truncated payload.
	var trunc bytes.Buffer
	trunc.Write([]byte{0, 0, 0, 3})
	trunc.WriteByte(0x05)
	trunc.Write([]byte{1, 2, 3})
	if _, err := codec.Decode(&trunc); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}

	// FD frame cut off before its flags byte.
	var cut bytes.Buffer
	cut.Write([]byte{0, 0, 0, 4})
	cut.WriteByte(0x80 | 8)
	if _, err := codec.Decode(&cut); !errors.Is(err, ErrTruncatedFrame) {
		t.Fatalf("expected ErrTruncatedFrame for missing fd flags, got %v", err)
	}

	// Clean boundary yields io.EOF.
	if _, err := codec.Decode(bytes.NewReader(nil)); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestDecodeNMaxStops(t *testing.T) {
	codec := Codec{}
	in := []can.Frame{mkFrame(0x10, 2), mkFrame(0x11, 2), mkFrame(0x12, 2)}
	r := bytes.NewReader(codec.Encode(in))
	n, err := codec.DecodeN(r, 2, func(can.Frame) {})
	if err != nil {
		t.Fatalf("DecodeN err: %v", err)
	}
	if n != 2 {
		t.Fatalf("decoded %d want 2", n)
	}
	// The third frame is still in the reader.
	if _, err := codec.Decode(r); err != nil {
		t.Fatalf("trailing frame decode err: %v", err)
	}
}
