// Package slcan speaks the Lawicel ASCII protocol to SLCAN adapters
// (CANable, CANtact, USBtin and friends) over a serial port.
package slcan

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Port abstracts tarm/serial for testability.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// speed maps a CAN bitrate to the Lawicel Sn setup command digit.
var speed = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// Open opens the serial device, programs the adapter bitrate and switches
// the CAN channel on. The caller shuts the channel down with ClosePort.
func Open(name string, serialBaud, canBitrate int, readTimeout time.Duration) (Port, error) {
	cfg := &serial.Config{Name: name, Baud: serialBaud, ReadTimeout: readTimeout}
	sp, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if err := setup(sp, canBitrate); err != nil {
		_ = sp.Close()
		return nil, err
	}
	return sp, nil
}

func setup(sp Port, canBitrate int) error {
	s, ok := speed[canBitrate]
	if !ok {
		return fmt.Errorf("unsupported CAN bitrate %d", canBitrate)
	}
	// Close a channel possibly left open by a previous run, then set the
	// bitrate and open it again.
	for _, cmd := range [][]byte{
		{'C', '\r'},
		{'S', s, '\r'},
		{'O', '\r'},
	} {
		if _, err := sp.Write(cmd); err != nil {
			return fmt.Errorf("adapter setup: %w", err)
		}
	}
	return nil
}

// ClosePort closes the CAN channel and then the serial device.
func ClosePort(sp Port) error {
	_, _ = sp.Write([]byte{'C', '\r'})
	return sp.Close()
}
