package can

import "fmt"

// SocketCAN flag bits for can_id (same values as <linux/can.h>)
const (
	CAN_EFF_FLAG = 0x80000000
	CAN_RTR_FLAG = 0x40000000
	CAN_ERR_FLAG = 0x20000000
	CAN_SFF_MASK = 0x7FF
	CAN_EFF_MASK = 0x1FFFFFFF
)

// MaxFDLen is the largest CAN FD payload.
const MaxFDLen = 64

// Frame is the bus frame moved between backends, hub and codecs.
// CANID carries EFF/RTR/ERR flags in its upper bits like SocketCAN.
// FD marks a CAN FD frame (Len up to 64); BRS and ESI are only meaningful
// when FD is set. Only the first Len bytes of Data are valid.
type Frame struct {
	CANID uint32
	Len   uint8
	FD    bool
	BRS   bool
	ESI   bool
	Data  [MaxFDLen]byte
}

// ID returns the arbitration ID without flag bits.
func (f Frame) ID() uint32 {
	if f.Extended() {
		return f.CANID & CAN_EFF_MASK
	}
	return f.CANID & CAN_SFF_MASK
}

// Extended reports whether the frame uses a 29-bit identifier.
func (f Frame) Extended() bool { return f.CANID&CAN_EFF_FLAG != 0 }

// Remote reports whether the frame is a remote transmission request.
func (f Frame) Remote() bool { return f.CANID&CAN_RTR_FLAG != 0 }

// fdLenOK reports whether n is a wire-legal CAN FD payload length.
func fdLenOK(n uint8) bool {
	switch {
	case n <= 8:
		return true
	case n == 12, n == 16, n == 20, n == 24, n == 32, n == 48, n == 64:
		return true
	}
	return false
}

// Validate checks the length against the frame kind: classic frames carry
// 0..8 bytes, FD frames one of the discrete FD sizes up to 64. RTR cannot
// be combined with FD.
func (f Frame) Validate() error {
	if f.FD {
		if f.Remote() {
			return fmt.Errorf("can: fd frame cannot be rtr (id 0x%X)", f.ID())
		}
		if !fdLenOK(f.Len) {
			return fmt.Errorf("can: invalid fd payload length %d (id 0x%X)", f.Len, f.ID())
		}
		return nil
	}
	if f.Len > 8 {
		return fmt.Errorf("can: invalid payload length %d (id 0x%X)", f.Len, f.ID())
	}
	return nil
}

// Payload returns the valid portion of Data.
func (f *Frame) Payload() []byte {
	n := int(f.Len)
	if n > len(f.Data) {
		n = len(f.Data)
	}
	return f.Data[:n]
}

func (f Frame) String() string {
	kind := "can"
	if f.FD {
		kind = "canfd"
	}
	return fmt.Sprintf("%s id=0x%X len=%d", kind, f.ID(), f.Len)
}
