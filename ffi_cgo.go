//go:build cgo && ((linux && (amd64 || arm64)) || (darwin && (amd64 || arm64)) || (windows && amd64))

package icsneo

/*
#include <stdlib.h>
#include <stdbool.h>
#include <icsneo/icsneoc.h>

// cgo cannot address C bit-fields; these helpers move the status bits of
// neomessage_can_t across the boundary. The getter packs them into one
// word: bit0 extended, bit1 remote, bit2 fdf, bit3 brs, bit4 esi,
// bit5 transmit echo.
static unsigned go_icsneo_get_status(const neomessage_can_t* m) {
	unsigned v = 0;
	if (m->status.extendedFrame) v |= 1u << 0;
	if (m->status.remoteFrame) v |= 1u << 1;
	if (m->status.canfdFDF) v |= 1u << 2;
	if (m->status.canfdBRS) v |= 1u << 3;
	if (m->status.canfdESI) v |= 1u << 4;
	if (m->status.transmitMessage) v |= 1u << 5;
	return v;
}

static void go_icsneo_set_status(neomessage_can_t* m, bool ext, bool rtr, bool fdf, bool brs, bool esi) {
	m->status.extendedFrame = ext;
	m->status.remoteFrame = rtr;
	m->status.canfdFDF = fdf;
	m->status.canfdBRS = brs;
	m->status.canfdESI = esi;
}
*/
import "C"

import "unsafe"

func init() {
	lib = cgoFFI{}
}

// cgoFFI marshals between the Go bridge surface and the C ABI. Structs
// are converted field by field; no layout punning against Go structs.
type cgoFFI struct{}

func (cgoFFI) available() error { return nil }

func goStr(p *C.char) string {
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

func cDevice(d rawDevice) C.neodevice_t {
	var cd C.neodevice_t
	cd.device = d.ptr
	cd.handle = C.neodevice_handle_t(d.handle)
	for i, b := range d.serial {
		cd.serial[i] = C.char(b)
	}
	cd._type = C.devicetype_t(d.kind)
	return cd
}

func goRawDevice(cd *C.neodevice_t) rawDevice {
	var d rawDevice
	d.ptr = cd.device
	d.handle = int32(cd.handle)
	for i := range d.serial {
		d.serial[i] = byte(cd.serial[i])
	}
	d.kind = uint32(cd._type)
	return d
}

// goEvent copies an event out of native memory. The description pointer
// is library-owned and must not be retained.
func goEvent(ev *C.neoevent_t) Event {
	var serial [7]byte
	for i := range serial {
		serial[i] = byte(ev.serial[i])
	}
	return Event{
		Description: goStr(ev.description),
		Timestamp:   uint64(ev.timestamp),
		EventNumber: uint32(ev.eventNumber),
		Severity:    Severity(ev.severity),
		Serial:      cSerial(serial),
	}
}

func goMessage(cm *C.neomessage_can_t) Message {
	m := Message{
		NetID:     NetID(cm.netid),
		NetType:   NetType(cm._type),
		ArbID:     uint32(cm.arbid),
		Timestamp: uint64(cm.timestamp),
		Type:      uint16(cm.messageType),
	}
	if cm.data != nil && cm.length > 0 {
		m.Data = C.GoBytes(unsafe.Pointer(cm.data), C.int(cm.length))
	}
	bits := uint(C.go_icsneo_get_status(cm))
	m.Extended = bits&(1<<0) != 0
	m.Remote = bits&(1<<1) != 0
	m.CANFD = bits&(1<<2) != 0
	m.BRS = bits&(1<<3) != 0
	m.ESI = bits&(1<<4) != 0
	m.TransmitEcho = bits&(1<<5) != 0
	return m
}

// cMessage builds the C mirror of a message. The payload is copied into
// C memory for the duration of the native call; the returned func frees
// it.
func cMessage(m Message) (C.neomessage_can_t, func()) {
	var cm C.neomessage_can_t
	cm.netid = C.neonetid_t(m.NetID)
	cm._type = C.neonettype_t(m.NetType)
	cm.arbid = C.uint32_t(m.ArbID)
	cm.timestamp = C.uint64_t(m.Timestamp)
	cm.messageType = C.neomessagetype_t(m.Type)
	free := func() {}
	if len(m.Data) > 0 {
		p := C.CBytes(m.Data)
		cm.data = (*C.uint8_t)(p)
		cm.length = C.size_t(len(m.Data))
		free = func() { C.free(p) }
	}
	C.go_icsneo_set_status(&cm, C.bool(m.Extended), C.bool(m.Remote), C.bool(m.CANFD), C.bool(m.BRS), C.bool(m.ESI))
	return cm, free
}

func (cgoFFI) findAllDevices(devs []rawDevice, count *int) {
	var c C.size_t
	if devs == nil {
		C.icsneo_findAllDevices(nil, &c)
		*count = int(c)
		return
	}
	cdevs := make([]C.neodevice_t, len(devs))
	c = C.size_t(len(devs))
	C.icsneo_findAllDevices(&cdevs[0], &c)
	n := int(c)
	if n > len(devs) {
		n = len(devs)
	}
	for i := 0; i < n; i++ {
		devs[i] = goRawDevice(&cdevs[i])
	}
	*count = n
}

func (cgoFFI) freeUnconnectedDevices() {
	C.icsneo_freeUnconnectedDevices()
}

func (cgoFFI) isValidNeoDevice(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_isValidNeoDevice(&cd))
}

func (cgoFFI) serialNumToString(num uint32, buf []byte, count *int) bool {
	c := C.size_t(*count)
	if buf == nil {
		ok := C.icsneo_serialNumToString(C.uint32_t(num), nil, &c)
		*count = int(c)
		return bool(ok)
	}
	ok := C.icsneo_serialNumToString(C.uint32_t(num), (*C.char)(unsafe.Pointer(&buf[0])), &c)
	*count = int(c)
	return bool(ok)
}

func (cgoFFI) serialStringToNum(s string) uint32 {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return uint32(C.icsneo_serialStringToNum(cs))
}

func (cgoFFI) getLastError() (Event, bool) {
	var ev C.neoevent_t
	if !C.icsneo_getLastError(&ev) {
		return Event{}, false
	}
	return goEvent(&ev), true
}

func (cgoFFI) getVersion() Version {
	v := C.icsneo_getVersion()
	return Version{
		Major:       uint16(v.major),
		Minor:       uint16(v.minor),
		Patch:       uint16(v.patch),
		Metadata:    goStr(v.metadata),
		BuildBranch: goStr(v.buildBranch),
		BuildTag:    goStr(v.buildTag),
	}
}

func (cgoFFI) openDevice(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_openDevice(&cd))
}

func (cgoFFI) closeDevice(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_closeDevice(&cd))
}

func (cgoFFI) isOpen(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_isOpen(&cd))
}

func (cgoFFI) goOnline(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_goOnline(&cd))
}

func (cgoFFI) goOffline(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_goOffline(&cd))
}

func (cgoFFI) isOnline(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_isOnline(&cd))
}

func (cgoFFI) enableMessagePolling(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_enableMessagePolling(&cd))
}

func (cgoFFI) disableMessagePolling(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_disableMessagePolling(&cd))
}

func (cgoFFI) isMessagePollingEnabled(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_isMessagePollingEnabled(&cd))
}

func (cgoFFI) getMessages(d rawDevice, msgs []Message, count *int, timeoutMS uint64) bool {
	cd := cDevice(d)
	var c C.size_t
	if msgs == nil {
		ok := C.icsneo_getMessages(&cd, nil, &c, C.uint64_t(timeoutMS))
		*count = int(c)
		return bool(ok)
	}
	cbuf := make([]C.neomessage_t, len(msgs))
	c = C.size_t(len(msgs))
	ok := C.icsneo_getMessages(&cd, &cbuf[0], &c, C.uint64_t(timeoutMS))
	if !ok {
		*count = int(c)
		return false
	}
	n := int(c)
	if n > len(msgs) {
		n = len(msgs)
	}
	for i := 0; i < n; i++ {
		msgs[i] = goMessage((*C.neomessage_can_t)(unsafe.Pointer(&cbuf[i])))
	}
	*count = n
	return true
}

func (cgoFFI) getPollingMessageLimit(d rawDevice) int {
	cd := cDevice(d)
	return int(C.icsneo_getPollingMessageLimit(&cd))
}

func (cgoFFI) setPollingMessageLimit(d rawDevice, limit int) bool {
	cd := cDevice(d)
	return bool(C.icsneo_setPollingMessageLimit(&cd, C.size_t(limit)))
}

func (cgoFFI) transmit(d rawDevice, m Message) bool {
	cd := cDevice(d)
	cm, free := cMessage(m)
	defer free()
	return bool(C.icsneo_transmit(&cd, (*C.neomessage_t)(unsafe.Pointer(&cm))))
}

func (cgoFFI) transmitMessages(d rawDevice, ms []Message) bool {
	if len(ms) == 0 {
		return true
	}
	cd := cDevice(d)
	// neomessage_can_t is size-compatible with neomessage_t, so the
	// typed mirrors are written straight into the generic array.
	cbuf := make([]C.neomessage_t, len(ms))
	frees := make([]func(), 0, len(ms))
	for i := range ms {
		cm, free := cMessage(ms[i])
		frees = append(frees, free)
		*(*C.neomessage_can_t)(unsafe.Pointer(&cbuf[i])) = cm
	}
	ok := C.icsneo_transmitMessages(&cd, &cbuf[0], C.size_t(len(ms)))
	for _, free := range frees {
		free()
	}
	return bool(ok)
}

func (cgoFFI) setWriteBlocks(d rawDevice, blocks bool) {
	cd := cDevice(d)
	C.icsneo_setWriteBlocks(&cd, C.bool(blocks))
}

func (cgoFFI) describeDevice(d rawDevice, buf []byte, count *int) bool {
	cd := cDevice(d)
	c := C.size_t(*count)
	if buf == nil {
		ok := C.icsneo_describeDevice(&cd, nil, &c)
		*count = int(c)
		return bool(ok)
	}
	ok := C.icsneo_describeDevice(&cd, (*C.char)(unsafe.Pointer(&buf[0])), &c)
	*count = int(c)
	return bool(ok)
}

func (cgoFFI) getProductName(d rawDevice, buf []byte, count *int) bool {
	cd := cDevice(d)
	c := C.size_t(*count)
	if buf == nil {
		ok := C.icsneo_getProductName(&cd, nil, &c)
		*count = int(c)
		return bool(ok)
	}
	ok := C.icsneo_getProductName(&cd, (*C.char)(unsafe.Pointer(&buf[0])), &c)
	*count = int(c)
	return bool(ok)
}

func (cgoFFI) getProductNameForType(t DeviceType, buf []byte, count *int) bool {
	c := C.size_t(*count)
	if buf == nil {
		ok := C.icsneo_getProductNameForType(C.devicetype_t(t), nil, &c)
		*count = int(c)
		return bool(ok)
	}
	ok := C.icsneo_getProductNameForType(C.devicetype_t(t), (*C.char)(unsafe.Pointer(&buf[0])), &c)
	*count = int(c)
	return bool(ok)
}

func (cgoFFI) getSupportedDevices(types []DeviceType, count *int) bool {
	var c C.size_t
	if types == nil {
		ok := C.icsneo_getSupportedDevices(nil, &c)
		*count = int(c)
		return bool(ok)
	}
	cbuf := make([]C.devicetype_t, len(types))
	c = C.size_t(len(types))
	ok := C.icsneo_getSupportedDevices(&cbuf[0], &c)
	if !ok {
		*count = int(c)
		return false
	}
	n := int(c)
	if n > len(types) {
		n = len(types)
	}
	for i := 0; i < n; i++ {
		types[i] = DeviceType(cbuf[i])
	}
	*count = n
	return true
}

func (cgoFFI) getTimestampResolution(d rawDevice, resolution *uint16) bool {
	cd := cDevice(d)
	var res C.uint16_t
	ok := C.icsneo_getTimestampResolution(&cd, &res)
	if ok {
		*resolution = uint16(res)
	}
	return bool(ok)
}

func (cgoFFI) getEvents(events []Event, count *int) bool {
	var c C.size_t
	if events == nil {
		ok := C.icsneo_getEvents(nil, &c)
		*count = int(c)
		return bool(ok)
	}
	cbuf := make([]C.neoevent_t, len(events))
	c = C.size_t(len(events))
	ok := C.icsneo_getEvents(&cbuf[0], &c)
	if !ok {
		*count = int(c)
		return false
	}
	n := int(c)
	if n > len(events) {
		n = len(events)
	}
	for i := 0; i < n; i++ {
		events[i] = goEvent(&cbuf[i])
	}
	*count = n
	return true
}

func (cgoFFI) getDeviceEvents(d rawDevice, events []Event, count *int) bool {
	cd := cDevice(d)
	var c C.size_t
	if events == nil {
		ok := C.icsneo_getDeviceEvents(&cd, nil, &c)
		*count = int(c)
		return bool(ok)
	}
	cbuf := make([]C.neoevent_t, len(events))
	c = C.size_t(len(events))
	ok := C.icsneo_getDeviceEvents(&cd, &cbuf[0], &c)
	if !ok {
		*count = int(c)
		return false
	}
	n := int(c)
	if n > len(events) {
		n = len(events)
	}
	for i := 0; i < n; i++ {
		events[i] = goEvent(&cbuf[i])
	}
	*count = n
	return true
}

func (cgoFFI) discardAllEvents() {
	C.icsneo_discardAllEvents()
}

func (cgoFFI) discardDeviceEvents(d rawDevice) {
	cd := cDevice(d)
	C.icsneo_discardDeviceEvents(&cd)
}

func (cgoFFI) setEventLimit(limit int) {
	C.icsneo_setEventLimit(C.size_t(limit))
}

func (cgoFFI) getEventLimit() int {
	return int(C.icsneo_getEventLimit())
}

func (cgoFFI) getNetworkByNumber(d rawDevice, t NetType, number uint32) NetID {
	cd := cDevice(d)
	return NetID(C.icsneo_getNetworkByNumber(&cd, C.neonettype_t(t), C.uint(number)))
}

func (cgoFFI) getBaudrate(d rawDevice, net NetID) int64 {
	cd := cDevice(d)
	return int64(C.icsneo_getBaudrate(&cd, C.neonetid_t(net)))
}

func (cgoFFI) setBaudrate(d rawDevice, net NetID, rate int64) bool {
	cd := cDevice(d)
	return bool(C.icsneo_setBaudrate(&cd, C.neonetid_t(net), C.int64_t(rate)))
}

func (cgoFFI) getFDBaudrate(d rawDevice, net NetID) int64 {
	cd := cDevice(d)
	return int64(C.icsneo_getFDBaudrate(&cd, C.neonetid_t(net)))
}

func (cgoFFI) setFDBaudrate(d rawDevice, net NetID, rate int64) bool {
	cd := cDevice(d)
	return bool(C.icsneo_setFDBaudrate(&cd, C.neonetid_t(net), C.int64_t(rate)))
}

func (cgoFFI) isTerminationSupportedFor(d rawDevice, net NetID) bool {
	cd := cDevice(d)
	return bool(C.icsneo_isTerminationSupportedFor(&cd, C.neonetid_t(net)))
}

func (cgoFFI) canTerminationBeEnabledFor(d rawDevice, net NetID) bool {
	cd := cDevice(d)
	return bool(C.icsneo_canTerminationBeEnabledFor(&cd, C.neonetid_t(net)))
}

func (cgoFFI) isTerminationEnabledFor(d rawDevice, net NetID) bool {
	cd := cDevice(d)
	return bool(C.icsneo_isTerminationEnabledFor(&cd, C.neonetid_t(net)))
}

func (cgoFFI) setTerminationFor(d rawDevice, net NetID, enabled bool) bool {
	cd := cDevice(d)
	return bool(C.icsneo_setTerminationFor(&cd, C.neonetid_t(net), C.bool(enabled)))
}

func (cgoFFI) getDigitalIO(d rawDevice, io IOType, number uint32, value *bool) bool {
	cd := cDevice(d)
	var v C.bool
	ok := C.icsneo_getDigitalIO(&cd, C.neoio_t(io), C.uint32_t(number), &v)
	if ok {
		*value = bool(v)
	}
	return bool(ok)
}

func (cgoFFI) setDigitalIO(d rawDevice, io IOType, number uint32, value bool) bool {
	cd := cDevice(d)
	return bool(C.icsneo_setDigitalIO(&cd, C.neoio_t(io), C.uint32_t(number), C.bool(value)))
}

func (cgoFFI) settingsRefresh(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_settingsRefresh(&cd))
}

func (cgoFFI) settingsApply(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_settingsApply(&cd))
}

func (cgoFFI) settingsApplyTemporary(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_settingsApplyTemporary(&cd))
}

func (cgoFFI) settingsApplyDefaults(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_settingsApplyDefaults(&cd))
}

func (cgoFFI) settingsApplyDefaultsTemporary(d rawDevice) bool {
	cd := cDevice(d)
	return bool(C.icsneo_settingsApplyDefaultsTemporary(&cd))
}

func (cgoFFI) settingsReadStructure(d rawDevice, buf []byte) int {
	cd := cDevice(d)
	if buf == nil {
		return int(C.icsneo_settingsReadStructure(&cd, nil, 0))
	}
	return int(C.icsneo_settingsReadStructure(&cd, unsafe.Pointer(&buf[0]), C.size_t(len(buf))))
}

func (cgoFFI) settingsApplyStructure(d rawDevice, buf []byte) bool {
	cd := cDevice(d)
	if len(buf) == 0 {
		return bool(C.icsneo_settingsApplyStructure(&cd, nil, 0))
	}
	return bool(C.icsneo_settingsApplyStructure(&cd, unsafe.Pointer(&buf[0]), C.size_t(len(buf))))
}

func (cgoFFI) settingsApplyStructureTemporary(d rawDevice, buf []byte) bool {
	cd := cDevice(d)
	if len(buf) == 0 {
		return bool(C.icsneo_settingsApplyStructureTemporary(&cd, nil, 0))
	}
	return bool(C.icsneo_settingsApplyStructureTemporary(&cd, unsafe.Pointer(&buf[0]), C.size_t(len(buf))))
}
