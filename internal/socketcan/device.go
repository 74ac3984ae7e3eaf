//go:build linux

// Package socketcan reads and writes classic CAN frames on a Linux raw
// AF_CAN socket. A vcan interface makes it a convenient stand-in for
// hardware during bridge development.
package socketcan

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/vehnet/go-icsneo/internal/can"
)

// struct can_frame layout (linux/can.h), classic MTU only:
//
//	can_id  u32  [0:4]  host byte order, EFF/RTR/ERR flags in the high bits
//	can_dlc u8   [4]
//	pad     3B   [5:8]
//	data    8B   [8:16]
//
// The kernel hands can_id over in host byte order; every supported target
// here is little-endian.
const frameSize = unix.CAN_MTU

// Device is one bound raw CAN socket.
type Device struct {
	fd    int
	iface string
}

// Open binds a raw CAN socket to the named interface. CAN FD delivery is
// switched off so every read is one classic frame.
func Open(iface string) (*Device, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socket(AF_CAN): %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FD_FRAMES, 0); err != nil {
		// Kernels predating the option do not deliver FD frames anyway.
		if err != unix.ENOPROTOOPT {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("disable CAN FD: %w", err)
		}
	}
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("if %q: %w", iface, err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind(can@%s): %w", iface, err)
	}
	return &Device{fd: fd, iface: iface}, nil
}

// Interface returns the name the socket is bound to.
func (d *Device) Interface() string { return d.iface }

func (d *Device) Close() error { return unix.Close(d.fd) }

func unmarshalFrame(buf []byte, fr *can.Frame) {
	*fr = can.Frame{}
	fr.CANID = binary.LittleEndian.Uint32(buf[0:4])
	n := int(buf[4])
	if n > 8 {
		n = 8
	}
	fr.Len = uint8(n)
	copy(fr.Data[:n], buf[8:8+n])
}

func marshalFrame(fr can.Frame, buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], fr.CANID)
	n := int(fr.Len)
	if n > 8 {
		n = 8
	}
	buf[4] = byte(n)
	copy(buf[8:8+n], fr.Data[:n])
}

// ReadFrame reads one classic CAN frame from the socket.
func (d *Device) ReadFrame(fr *can.Frame) error {
	var buf [frameSize]byte
	n, err := unix.Read(d.fd, buf[:])
	if err != nil {
		return err
	}
	if n != frameSize {
		return fmt.Errorf("short read: %d", n)
	}
	unmarshalFrame(buf[:], fr)
	return nil
}

// WriteFrame writes one classic CAN frame to the socket. FD frames do not
// fit the classic MTU; the TXWriter rejects them before reaching here.
func (d *Device) WriteFrame(fr can.Frame) error {
	var buf [frameSize]byte
	marshalFrame(fr, buf[:])
	_, err := unix.Write(d.fd, buf[:])
	return err
}
