package icsneo

import (
	"runtime"
	"sync"
	"time"
)

// Device wraps one enumerated piece of hardware. The zero value is not
// usable; devices come from FindAll. Methods are safe for concurrent
// use: wrapper state is snapshotted under the lock, native calls run
// outside it so a blocked Messages call cannot starve Transmit.
type Device struct {
	mu     sync.Mutex
	closed bool
	raw    rawDevice
}

func newDevice(raw rawDevice) *Device {
	d := &Device{raw: raw}
	runtime.SetFinalizer(d, (*Device).finalize)
	return d
}

func (d *Device) finalize() {
	// Leaked open handle. The native session is released; errors have
	// nowhere to go.
	_ = d.Close()
}

// snapshot returns the raw handle for a native call, or the reason none
// can be made.
func (d *Device) snapshot() (rawDevice, error) {
	if err := lib.available(); err != nil {
		return rawDevice{}, err
	}
	if d == nil {
		return rawDevice{}, ErrClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return rawDevice{}, ErrClosed
	}
	return d.raw, nil
}

// Serial returns the alphanumeric serial printed on the hardware label.
func (d *Device) Serial() string {
	if d == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return cSerial(d.raw.serial)
}

// SerialNumber returns the serial decoded to its numeric form.
func (d *Device) SerialNumber() uint32 {
	return lib.serialStringToNum(d.Serial())
}

// Type returns the product family code reported during enumeration.
func (d *Device) Type() DeviceType {
	if d == nil {
		return DeviceTypeUnknown
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeviceType(d.raw.kind)
}

// Valid asks the native library whether the handle still refers to a
// known device.
func (d *Device) Valid() bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.isValidNeoDevice(raw)
}

// String renders the native description when possible and degrades to
// type + serial when the device cannot be reached.
func (d *Device) String() string {
	if desc, err := d.Describe(); err == nil {
		return desc
	}
	return d.Type().String() + " " + d.Serial()
}

// Open establishes the session with the device. The wrapper stays
// usable after a failed Open; Close releases it.
func (d *Device) Open() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.openDevice(raw) {
		return lastCallError("open device")
	}
	return nil
}

// Close ends the session and retires the wrapper. It is idempotent and
// nil-safe; after Close every method fails with ErrClosed without
// touching the native library.
func (d *Device) Close() error {
	if d == nil {
		return nil
	}
	if err := lib.available(); err != nil {
		return err
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	raw := d.raw
	d.mu.Unlock()
	runtime.SetFinalizer(d, nil)
	if !lib.closeDevice(raw) {
		return lastCallError("close device")
	}
	return nil
}

// IsOpen reports whether the native session is established.
func (d *Device) IsOpen() (bool, error) {
	raw, err := d.snapshot()
	if err != nil {
		return false, err
	}
	open := lib.isOpen(raw)
	if !open {
		if ev, ok := lib.getLastError(); ok {
			return false, &EventError{Event: ev}
		}
	}
	return open, nil
}

// GoOnline starts bus traffic flowing for the session.
func (d *Device) GoOnline() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.goOnline(raw) {
		return lastCallError("go online")
	}
	return nil
}

// GoOffline stops bus traffic for the session without closing it.
func (d *Device) GoOffline() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.goOffline(raw) {
		return lastCallError("go offline")
	}
	return nil
}

// IsOnline reports whether the device is participating on the bus.
func (d *Device) IsOnline() (bool, error) {
	raw, err := d.snapshot()
	if err != nil {
		return false, err
	}
	online := lib.isOnline(raw)
	if !online {
		if ev, ok := lib.getLastError(); ok {
			return false, &EventError{Event: ev}
		}
	}
	return online, nil
}

// EnablePolling turns on the native message buffer so Messages can
// drain it. Without polling enabled received traffic is discarded.
func (d *Device) EnablePolling() bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.enableMessagePolling(raw)
}

// DisablePolling turns the native message buffer back off.
func (d *Device) DisablePolling() bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.disableMessagePolling(raw)
}

// PollingEnabled reports whether the native message buffer is active.
func (d *Device) PollingEnabled() bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.isMessagePollingEnabled(raw)
}

// Messages drains buffered messages, waiting up to timeout for traffic
// to arrive. The native count probe sizes the buffer, then the fill
// call copies the batch out; the count can shrink between the two if a
// reader raced us, never grow.
func (d *Device) Messages(timeout time.Duration) ([]Message, error) {
	raw, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	ms := uint64(timeout / time.Millisecond)
	return countQuery("get messages", func(buf []Message, count *int) bool {
		return lib.getMessages(raw, buf, count, ms)
	})
}

// PollingLimit reports how many messages the native buffer retains
// before discarding the oldest.
func (d *Device) PollingLimit() (int, error) {
	raw, err := d.snapshot()
	if err != nil {
		return 0, err
	}
	limit := lib.getPollingMessageLimit(raw)
	if limit < 0 {
		return 0, ErrInvalidDevice
	}
	return limit, nil
}

// SetPollingLimit adjusts the native message buffer cap. Overflow drops
// the oldest messages and posts a warning event.
func (d *Device) SetPollingLimit(limit int) error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.setPollingMessageLimit(raw, limit) {
		return lastCallError("set polling limit")
	}
	return nil
}

// Transmit queues one message for transmission on its NetID.
func (d *Device) Transmit(m Message) error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.transmit(raw, m) {
		return lastCallError("transmit")
	}
	return nil
}

// TransmitBatch queues a batch in one native call. An empty batch is a
// no-op.
func (d *Device) TransmitBatch(ms []Message) error {
	if len(ms) == 0 {
		return nil
	}
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.transmitMessages(raw, ms) {
		return lastCallError("transmit batch")
	}
	return nil
}

// SetWriteBlocking selects whether transmits block for device
// confirmation or return as soon as the message is queued.
func (d *Device) SetWriteBlocking(blocks bool) {
	raw, err := d.snapshot()
	if err != nil {
		return
	}
	lib.setWriteBlocks(raw, blocks)
}

// Describe returns the native human-readable description, usually
// product name plus serial.
func (d *Device) Describe() (string, error) {
	raw, err := d.snapshot()
	if err != nil {
		return "", err
	}
	return stringQuery("describe device", func(buf []byte, count *int) bool {
		return lib.describeDevice(raw, buf, count)
	})
}

// ProductName returns the marketing name of the hardware.
func (d *Device) ProductName() (string, error) {
	raw, err := d.snapshot()
	if err != nil {
		return "", err
	}
	return stringQuery("product name", func(buf []byte, count *int) bool {
		return lib.getProductName(raw, buf, count)
	})
}

// TimestampResolution reports the device clock tick in nanoseconds;
// Message timestamps count these ticks.
func (d *Device) TimestampResolution() (uint16, error) {
	raw, err := d.snapshot()
	if err != nil {
		return 0, err
	}
	var resolution uint16
	if !lib.getTimestampResolution(raw, &resolution) {
		return 0, lastCallError("timestamp resolution")
	}
	return resolution, nil
}

// NetworkByNumber resolves the n-th network of a bus type (1-based) to
// its NetID, for example (NetTypeCAN, 2) to the second CAN channel.
func (d *Device) NetworkByNumber(t NetType, number uint32) NetID {
	raw, err := d.snapshot()
	if err != nil {
		return NetIDDevice
	}
	return lib.getNetworkByNumber(raw, t, number)
}

// Baudrate reports the arbitration bitrate of a network, or -1 when the
// native library cannot provide it.
func (d *Device) Baudrate(net NetID) int64 {
	raw, err := d.snapshot()
	if err != nil {
		return -1
	}
	return lib.getBaudrate(raw, net)
}

// SetBaudrate stages a new arbitration bitrate. Settings must be
// applied before the device uses it.
func (d *Device) SetBaudrate(net NetID, rate int64) bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.setBaudrate(raw, net, rate)
}

// FDBaudrate reports the CAN FD data-phase bitrate of a network, or -1
// when the native library cannot provide it.
func (d *Device) FDBaudrate(net NetID) int64 {
	raw, err := d.snapshot()
	if err != nil {
		return -1
	}
	return lib.getFDBaudrate(raw, net)
}

// SetFDBaudrate stages a new CAN FD data-phase bitrate.
func (d *Device) SetFDBaudrate(net NetID, rate int64) bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.setFDBaudrate(raw, net, rate)
}

// TerminationSupported reports whether the network has switchable bus
// termination at all.
func (d *Device) TerminationSupported(net NetID) bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.isTerminationSupportedFor(raw, net)
}

// TerminationAllowed reports whether termination could be enabled right
// now (hardware pairs networks on shared termination relays).
func (d *Device) TerminationAllowed(net NetID) bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.canTerminationBeEnabledFor(raw, net)
}

// TerminationEnabled reports the staged termination state of a network.
func (d *Device) TerminationEnabled(net NetID) bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.isTerminationEnabledFor(raw, net)
}

// SetTermination stages bus termination on or off for a network.
// Settings must be applied before the relay switches.
func (d *Device) SetTermination(net NetID, enabled bool) bool {
	raw, err := d.snapshot()
	if err != nil {
		return false
	}
	return lib.setTerminationFor(raw, net, enabled)
}

// DigitalIO reads one digital IO line.
func (d *Device) DigitalIO(io IOType, number uint32) (bool, error) {
	raw, err := d.snapshot()
	if err != nil {
		return false, err
	}
	var value bool
	if !lib.getDigitalIO(raw, io, number, &value) {
		return false, lastCallError("get digital io")
	}
	return value, nil
}

// SetDigitalIO drives one digital IO line.
func (d *Device) SetDigitalIO(io IOType, number uint32, value bool) error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.setDigitalIO(raw, io, number, value) {
		return lastCallError("set digital io")
	}
	return nil
}

// Events drains the event queue of this device.
func (d *Device) Events() ([]Event, error) {
	raw, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	return countQuery("get device events", func(buf []Event, count *int) bool {
		return lib.getDeviceEvents(raw, buf, count)
	})
}

// DiscardEvents empties the event queue of this device.
func (d *Device) DiscardEvents() {
	raw, err := d.snapshot()
	if err != nil {
		return
	}
	lib.discardDeviceEvents(raw)
}
