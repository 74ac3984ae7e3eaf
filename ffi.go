package icsneo

import (
	"fmt"
	"unsafe"
)

// rawDevice mirrors neodevice_t field for field. The device pointer is
// foreign-owned and opaque; its validity is tied to the native library
// lifecycle. Every native call takes the struct by value because the
// library only reads it back (enumeration is the single writer).
type rawDevice struct {
	ptr    unsafe.Pointer
	handle int32
	serial [7]byte
	kind   uint32
}

// ffi is the native bridge, one method per bound entry point. The cgo
// implementation marshals to the C ABI; tests install fakes; without cgo
// the unavailable stub stays in place. Buffer/count pairs keep the native
// length-probe shape: a nil buffer is the probe call.
type ffi interface {
	available() error

	findAllDevices(devs []rawDevice, count *int)
	freeUnconnectedDevices()
	isValidNeoDevice(d rawDevice) bool
	serialNumToString(num uint32, buf []byte, count *int) bool
	serialStringToNum(s string) uint32
	getLastError() (Event, bool)
	getVersion() Version

	openDevice(d rawDevice) bool
	closeDevice(d rawDevice) bool
	isOpen(d rawDevice) bool
	goOnline(d rawDevice) bool
	goOffline(d rawDevice) bool
	isOnline(d rawDevice) bool

	enableMessagePolling(d rawDevice) bool
	disableMessagePolling(d rawDevice) bool
	isMessagePollingEnabled(d rawDevice) bool
	getMessages(d rawDevice, msgs []Message, count *int, timeoutMS uint64) bool
	getPollingMessageLimit(d rawDevice) int
	setPollingMessageLimit(d rawDevice, limit int) bool
	transmit(d rawDevice, m Message) bool
	transmitMessages(d rawDevice, ms []Message) bool
	setWriteBlocks(d rawDevice, blocks bool)

	describeDevice(d rawDevice, buf []byte, count *int) bool
	getProductName(d rawDevice, buf []byte, count *int) bool
	getProductNameForType(t DeviceType, buf []byte, count *int) bool
	getSupportedDevices(types []DeviceType, count *int) bool
	getTimestampResolution(d rawDevice, resolution *uint16) bool

	getEvents(events []Event, count *int) bool
	getDeviceEvents(d rawDevice, events []Event, count *int) bool
	discardAllEvents()
	discardDeviceEvents(d rawDevice)
	setEventLimit(limit int)
	getEventLimit() int

	getNetworkByNumber(d rawDevice, t NetType, number uint32) NetID
	getBaudrate(d rawDevice, net NetID) int64
	setBaudrate(d rawDevice, net NetID, rate int64) bool
	getFDBaudrate(d rawDevice, net NetID) int64
	setFDBaudrate(d rawDevice, net NetID, rate int64) bool
	isTerminationSupportedFor(d rawDevice, net NetID) bool
	canTerminationBeEnabledFor(d rawDevice, net NetID) bool
	isTerminationEnabledFor(d rawDevice, net NetID) bool
	setTerminationFor(d rawDevice, net NetID, enabled bool) bool

	getDigitalIO(d rawDevice, io IOType, number uint32, value *bool) bool
	setDigitalIO(d rawDevice, io IOType, number uint32, value bool) bool

	settingsRefresh(d rawDevice) bool
	settingsApply(d rawDevice) bool
	settingsApplyTemporary(d rawDevice) bool
	settingsApplyDefaults(d rawDevice) bool
	settingsApplyDefaultsTemporary(d rawDevice) bool
	settingsReadStructure(d rawDevice, buf []byte) int
	settingsApplyStructure(d rawDevice, buf []byte) bool
	settingsApplyStructureTemporary(d rawDevice, buf []byte) bool
}

// lib is the active bridge. The cgo platform file replaces it at init;
// tests swap in fakes and restore.
var lib ffi = unavailableFFI{}

// stringQuery runs the two-call length-probe convention shared by the C
// string getters: the probe call (nil buffer) must report failure and set
// the count, then the fill call writes count bytes plus a trailing NUL.
func stringQuery(op string, call func(buf []byte, count *int) bool) (string, error) {
	if err := lib.available(); err != nil {
		return "", err
	}
	var count int
	if call(nil, &count) {
		return "", fmt.Errorf("%s: %w", op, ErrLengthProbe)
	}
	count++ // native writes a trailing NUL
	buf := make([]byte, count)
	if !call(buf, &count) {
		return "", lastCallError(op)
	}
	return cString(buf), nil
}

// countQuery runs the two-call convention shared by the array getters:
// the probe call (nil buffer) succeeds and reports the element count,
// then the fill call writes up to that many elements and may lower the
// count if items drained in between.
func countQuery[T any](op string, call func(buf []T, count *int) bool) ([]T, error) {
	var count int
	if !call(nil, &count) {
		return nil, lastCallError(op)
	}
	if count == 0 {
		return nil, nil
	}
	buf := make([]T, count)
	if !call(buf, &count) {
		return nil, lastCallError(op)
	}
	return buf[:count], nil
}

// cString interprets buf as a NUL-terminated C string.
func cString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// cSerial decodes the fixed 7-byte serial field of neodevice_t.
func cSerial(serial [7]byte) string {
	return cString(serial[:])
}

// unavailableFFI backs builds without the native library. Every
// operation degrades to its failure value and available() names the
// condition. It doubles as the embedding base for test fakes.
type unavailableFFI struct{}

func (unavailableFFI) available() error { return ErrUnavailable }

func (unavailableFFI) findAllDevices([]rawDevice, *int) {}
func (unavailableFFI) freeUnconnectedDevices() {}
func (unavailableFFI) isValidNeoDevice(rawDevice) bool { return false }
func (unavailableFFI) serialNumToString(uint32, []byte, *int) bool { return false }
func (unavailableFFI) serialStringToNum(string) uint32 { return 0 }
func (unavailableFFI) getLastError() (Event, bool) { return Event{}, false }
func (unavailableFFI) getVersion() Version { return Version{} }
func (unavailableFFI) openDevice(rawDevice) bool { return false }
func (unavailableFFI) closeDevice(rawDevice) bool { return false }
func (unavailableFFI) isOpen(rawDevice) bool { return false }
func (unavailableFFI) goOnline(rawDevice) bool { return false }
func (unavailableFFI) goOffline(rawDevice) bool { return false }
func (unavailableFFI) isOnline(rawDevice) bool { return false }
func (unavailableFFI) enableMessagePolling(rawDevice) bool { return false }
func (unavailableFFI) disableMessagePolling(rawDevice) bool { return false }
func (unavailableFFI) isMessagePollingEnabled(rawDevice) bool { return false }
func (unavailableFFI) getMessages(rawDevice, []Message, *int, uint64) bool {
	return false
}
func (unavailableFFI) getPollingMessageLimit(rawDevice) int { return -1 }
func (unavailableFFI) setPollingMessageLimit(rawDevice, int) bool { return false }
func (unavailableFFI) transmit(rawDevice, Message) bool { return false }
func (unavailableFFI) transmitMessages(rawDevice, []Message) bool { return false }
func (unavailableFFI) setWriteBlocks(rawDevice, bool) {}
func (unavailableFFI) describeDevice(rawDevice, []byte, *int) bool { return false }
func (unavailableFFI) getProductName(rawDevice, []byte, *int) bool { return false }
func (unavailableFFI) getProductNameForType(DeviceType, []byte, *int) bool {
	return false
}
func (unavailableFFI) getSupportedDevices([]DeviceType, *int) bool { return false }
func (unavailableFFI) getTimestampResolution(rawDevice, *uint16) bool {
	return false
}
func (unavailableFFI) getEvents([]Event, *int) bool { return false }
func (unavailableFFI) getDeviceEvents(rawDevice, []Event, *int) bool { return false }
func (unavailableFFI) discardAllEvents() {}
func (unavailableFFI) discardDeviceEvents(rawDevice) {}
func (unavailableFFI) setEventLimit(int) {}
func (unavailableFFI) getEventLimit() int { return 0 }
func (unavailableFFI) getNetworkByNumber(rawDevice, NetType, uint32) NetID {
	return NetIDDevice
}
func (unavailableFFI) getBaudrate(rawDevice, NetID) int64 { return -1 }
func (unavailableFFI) setBaudrate(rawDevice, NetID, int64) bool { return false }
func (unavailableFFI) getFDBaudrate(rawDevice, NetID) int64 { return -1 }
func (unavailableFFI) setFDBaudrate(rawDevice, NetID, int64) bool { return false }
func (unavailableFFI) isTerminationSupportedFor(rawDevice, NetID) bool {
	return false
}
func (unavailableFFI) canTerminationBeEnabledFor(rawDevice, NetID) bool {
	return false
}
func (unavailableFFI) isTerminationEnabledFor(rawDevice, NetID) bool { return false }
func (unavailableFFI) setTerminationFor(rawDevice, NetID, bool) bool { return false }
func (unavailableFFI) getDigitalIO(rawDevice, IOType, uint32, *bool) bool {
	return false
}
func (unavailableFFI) setDigitalIO(rawDevice, IOType, uint32, bool) bool {
	return false
}
func (unavailableFFI) settingsRefresh(rawDevice) bool { return false }
func (unavailableFFI) settingsApply(rawDevice) bool { return false }
func (unavailableFFI) settingsApplyTemporary(rawDevice) bool { return false }
func (unavailableFFI) settingsApplyDefaults(rawDevice) bool { return false }
func (unavailableFFI) settingsApplyDefaultsTemporary(rawDevice) bool { return false }
func (unavailableFFI) settingsReadStructure(rawDevice, []byte) int { return -1 }
func (unavailableFFI) settingsApplyStructure(rawDevice, []byte) bool { return false }
func (unavailableFFI) settingsApplyStructureTemporary(rawDevice, []byte) bool {
	return false
}
