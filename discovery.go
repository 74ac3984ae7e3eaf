package icsneo

// FindAll enumerates attached devices over every native transport (USB,
// Ethernet). The count probe and the fill call both report errors only
// through the last-error slot; an empty enumeration is ErrNoDevices, as
// in the native API. Returned devices are not open yet.
func FindAll() ([]*Device, error) {
	if err := lib.available(); err != nil {
		return nil, err
	}
	var count int
	lib.findAllDevices(nil, &count)
	if ev, ok := lib.getLastError(); ok {
		return nil, &EventError{Event: ev}
	}
	if count == 0 {
		return nil, ErrNoDevices
	}
	raws := make([]rawDevice, count)
	lib.findAllDevices(raws, &count)
	if ev, ok := lib.getLastError(); ok {
		return nil, &EventError{Event: ev}
	}
	if count == 0 {
		return nil, ErrNoDevices
	}
	devs := make([]*Device, 0, count)
	for _, raw := range raws[:count] {
		devs = append(devs, newDevice(raw))
	}
	return devs, nil
}

// Find returns the attached device with the given serial. It returns
// ErrNoDevices when no attached device matches.
func Find(serial string) (*Device, error) {
	devs, err := FindAll()
	if err != nil {
		return nil, err
	}
	for _, d := range devs {
		if d.Serial() == serial {
			return d, nil
		}
	}
	return nil, ErrNoDevices
}

// FreeUnconnectedDevices releases native bookkeeping for enumerated
// devices that were never opened. Call it once enumeration results are
// no longer needed.
func FreeUnconnectedDevices() {
	lib.freeUnconnectedDevices()
}

// SerialNumToString renders a numeric serial in the native base-36 form
// used on device labels (for example 783132957 is "CY9999").
func SerialNumToString(num uint32) (string, error) {
	return stringQuery("serial to string", func(buf []byte, count *int) bool {
		return lib.serialNumToString(num, buf, count)
	})
}

// SerialStringToNum is the inverse of SerialNumToString. Purely numeric
// serials pass through unchanged.
func SerialStringToNum(serial string) uint32 {
	return lib.serialStringToNum(serial)
}

// SupportedDevices lists every device type the linked native library can
// drive, via the count-probe convention.
func SupportedDevices() ([]DeviceType, error) {
	if err := lib.available(); err != nil {
		return nil, err
	}
	return countQuery("get supported devices", func(buf []DeviceType, count *int) bool {
		return lib.getSupportedDevices(buf, count)
	})
}

// ProductNameForType names a device type without needing hardware
// attached.
func ProductNameForType(t DeviceType) (string, error) {
	return stringQuery("product name for type", func(buf []byte, count *int) bool {
		return lib.getProductNameForType(t, buf, count)
	})
}
