// Package icsneo is a Go binding for libicsneo, the Intrepid Control
// Systems driver library for neoVI and ValueCAN vehicle-network
// hardware. The native library owns every hard problem: transport
// drivers, device firmware protocols, bus framing and timing. This
// package maps its C entry points onto safe Go signatures, translating
// the library's last-error slot into Go errors and hiding its
// length-probe calling conventions behind ordinary return values.
//
// Typical session:
//
//	devs, err := icsneo.FindAll()
//	if err != nil {
//		// icsneo.ErrNoDevices when nothing is attached
//	}
//	dev := devs[0]
//	if err := dev.Open(); err != nil { ... }
//	defer dev.Close()
//	dev.EnablePolling()
//	if err := dev.GoOnline(); err != nil { ... }
//	msgs, err := dev.Messages(50 * time.Millisecond)
//
// Builds without cgo (or on platforms without libicsneo) compile
// against a stub bridge; every operation then fails with
// ErrUnavailable.
package icsneo
