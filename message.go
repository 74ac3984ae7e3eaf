package icsneo

import "fmt"

// Message is one decoded bus message. CAN and CAN FD traffic populates
// ArbID, Data and the frame flags; other traffic still carries NetID,
// NetType, Timestamp and the raw Type code. Payload bytes are copied out
// of native memory before a Message is handed to the caller.
type Message struct {
	NetID     NetID
	NetType   NetType
	ArbID     uint32
	Data      []byte
	Timestamp uint64 // device clock ticks, see Device.TimestampResolution
	Type      uint16 // raw neomessagetype_t code

	Extended     bool
	Remote       bool
	CANFD        bool
	BRS          bool
	ESI          bool
	TransmitEcho bool
}

// IsCAN reports whether the message is classic CAN or CAN FD traffic.
func (m Message) IsCAN() bool {
	return m.NetType == NetTypeCAN
}

func (m Message) String() string {
	kind := "CAN"
	if m.CANFD {
		kind = "CANFD"
	}
	if !m.IsCAN() {
		kind = m.NetType.String()
	}
	return fmt.Sprintf("%s %s id=0x%X len=%d", m.NetID, kind, m.ArbID, len(m.Data))
}
