package slcan

import (
	"bytes"
	"testing"

	"github.com/vehnet/go-icsneo/internal/can"
)

func decodeAll(t *testing.T, raw []byte) []can.Frame {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(raw)
	var got []can.Frame
	var c Codec
	if err := c.DecodeStream(&buf, func(f can.Frame) { got = append(got, f) }); err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	return got
}

func TestEncodeStandard(t *testing.T) {
	f := can.Frame{CANID: 0x123, Len: 4}
	copy(f.Data[:], []byte{0xAA, 0xBB, 0xCC, 0xDD})
	var c Codec
	line, err := c.Encode(f)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if want := "t1234AABBCCDD\r"; string(line) != want {
		t.Fatalf("Encode = %q, want %q", line, want)
	}
}

func TestEncodeExtendedAndRemote(t *testing.T) {
	cases := []struct {
		name string
		f    can.Frame
		want string
	}{
		{
			name: "extended data",
			f: func() can.Frame {
				f := can.Frame{CANID: 0x18DAF110 | can.CAN_EFF_FLAG, Len: 2}
				f.Data[0], f.Data[1] = 0x01, 0x02
				return f
			}(),
			want: "T18DAF110" + "2" + "0102\r",
		},
		{
			name: "standard remote",
			f:    can.Frame{CANID: 0x7FF | can.CAN_RTR_FLAG, Len: 0},
			want: "r7FF0\r",
		},
		{
			name: "extended remote",
			f:    can.Frame{CANID: 0x1FFFFFFF | can.CAN_EFF_FLAG | can.CAN_RTR_FLAG, Len: 8},
			want: "R1FFFFFFF8\r",
		},
	}
	var c Codec
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line, err := c.Encode(tc.f)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(line) != tc.want {
				t.Fatalf("Encode = %q, want %q", line, tc.want)
			}
		})
	}
}

func TestEncodeRejectsFD(t *testing.T) {
	var c Codec
	if _, err := c.Encode(can.Frame{CANID: 1, Len: 12, FD: true}); err != ErrFDUnsupported {
		t.Fatalf("Encode FD = %v, want ErrFDUnsupported", err)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	var c Codec
	frames := []can.Frame{
		{CANID: 0x042, Len: 0},
		func() can.Frame {
			f := can.Frame{CANID: 0x123, Len: 8}
			copy(f.Data[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
			return f
		}(),
		{CANID: 0x1ABCDE01 | can.CAN_EFF_FLAG, Len: 1, Data: [can.MaxFDLen]byte{0x7F}},
		{CANID: 0x100 | can.CAN_RTR_FLAG, Len: 4},
	}
	var raw []byte
	for _, f := range frames {
		line, err := c.Encode(f)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		raw = append(raw, line...)
	}
	got := decodeAll(t, raw)
	if len(got) != len(frames) {
		t.Fatalf("decoded %d frames, want %d", len(got), len(frames))
	}
	for i := range frames {
		if got[i].CANID != frames[i].CANID || got[i].Len != frames[i].Len {
			t.Fatalf("frame %d: got %+v, want %+v", i, got[i], frames[i])
		}
		if !bytes.Equal(got[i].Payload(), frames[i].Payload()) && !got[i].Remote() {
			t.Fatalf("frame %d payload mismatch", i)
		}
	}
}

func TestDecodeSkipsAcksAndStatus(t *testing.T) {
	raw := []byte("\rz\r\x07V1013\rt0011FF\rF00\r")
	got := decodeAll(t, raw)
	if len(got) != 1 {
		t.Fatalf("decoded %d frames, want 1", len(got))
	}
	if got[0].CANID != 0x001 || got[0].Len != 1 || got[0].Data[0] != 0xFF {
		t.Fatalf("got %+v", got[0])
	}
}

func TestDecodeMalformedResyncs(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"bad hex in id", "tXYZ10A\r"},
		{"dlc out of range", "t12390011223344556677889\r"},
		{"short line", "t12\r"},
		{"length mismatch", "t1232AABBCC\r"},
		{"unknown type", "q123\r"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := []byte(tc.raw + "t0011EE\r")
			got := decodeAll(t, raw)
			if len(got) != 1 {
				t.Fatalf("decoded %d frames, want 1 after resync", len(got))
			}
			if got[0].Data[0] != 0xEE {
				t.Fatalf("resync recovered wrong frame: %+v", got[0])
			}
		})
	}
}

func TestDecodePartialLineWaits(t *testing.T) {
	var buf bytes.Buffer
	var c Codec
	var got []can.Frame
	out := func(f can.Frame) { got = append(got, f) }

	buf.WriteString("t1232AA")
	if err := c.DecodeStream(&buf, out); err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %d frames from partial line, want 0", len(got))
	}
	buf.WriteString("BB\r")
	if err := c.DecodeStream(&buf, out); err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if len(got) != 1 || got[0].Data[1] != 0xBB {
		t.Fatalf("got %+v, want one complete frame", got)
	}
}

func TestDecodeDiscardsUnterminatedGarbage(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < maxLine+8; i++ {
		buf.WriteByte('Q')
	}
	var c Codec
	var got []can.Frame
	if err := c.DecodeStream(&buf, func(f can.Frame) { got = append(got, f) }); err != nil {
		t.Fatalf("DecodeStream: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("decoded %d frames from garbage", len(got))
	}
	if buf.Len() != 0 {
		t.Fatalf("garbage not discarded, %d bytes left", buf.Len())
	}
}
