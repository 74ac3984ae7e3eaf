// Package gateway glues the icsneo binding to the bridge: it converts
// between polled device messages and bus frames, pumps received traffic
// into the hub, drains device diagnostics and funnels transmits into
// batched native calls.
package gateway

import (
	"time"

	icsneo "github.com/vehnet/go-icsneo"
	"github.com/vehnet/go-icsneo/internal/can"
)

// Device is the slice of the binding the gateway drives. *icsneo.Device
// implements it; tests use fakes.
type Device interface {
	Messages(timeout time.Duration) ([]icsneo.Message, error)
	TransmitBatch([]icsneo.Message) error
	Events() ([]icsneo.Event, error)
}

var _ Device = (*icsneo.Device)(nil)

// Broadcaster receives frames decoded from the device. *hub.Hub implements it.
type Broadcaster interface {
	Broadcast(can.Frame)
}

// MessageToFrame converts a polled device message to a bus frame. The
// second return is false for non-CAN traffic (LIN, Ethernet, internal),
// which the bridge does not forward.
func MessageToFrame(m icsneo.Message) (can.Frame, bool) {
	if m.NetType != icsneo.NetTypeCAN {
		return can.Frame{}, false
	}
	var fr can.Frame
	if m.Extended {
		fr.CANID = (m.ArbID & can.CAN_EFF_MASK) | can.CAN_EFF_FLAG
	} else {
		fr.CANID = m.ArbID & can.CAN_SFF_MASK
	}
	if m.Remote {
		fr.CANID |= can.CAN_RTR_FLAG
	}
	fr.FD = m.CANFD
	fr.BRS = m.BRS
	fr.ESI = m.ESI
	n := len(m.Data)
	if !fr.FD && n > 8 {
		n = 8
	}
	if n > can.MaxFDLen {
		n = can.MaxFDLen
	}
	fr.Len = uint8(n)
	copy(fr.Data[:], m.Data[:n])
	return fr, true
}

// FrameToMessage converts a bus frame to a transmit message on the given
// device network.
func FrameToMessage(fr can.Frame, net icsneo.NetID) icsneo.Message {
	m := icsneo.Message{
		NetID:    net,
		NetType:  icsneo.NetTypeCAN,
		ArbID:    fr.ID(),
		Extended: fr.Extended(),
		Remote:   fr.Remote(),
		CANFD:    fr.FD,
		BRS:      fr.BRS,
		ESI:      fr.ESI,
	}
	if p := fr.Payload(); len(p) > 0 && !m.Remote {
		m.Data = append([]byte(nil), p...)
	}
	return m
}
