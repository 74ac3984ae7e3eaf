package icsneo

// Device settings live in an opaque device-specific structure. The
// typed setters (SetBaudrate, SetTermination) stage changes into the
// native library's working copy; the Apply family commits the working
// copy to the device, either into flash or only until the next power
// cycle. ReadSettings and the structure appliers move the whole opaque
// blob, which is how a configuration is backed up and restored.

// RefreshSettings re-reads the settings structure from the device,
// discarding staged changes.
func (d *Device) RefreshSettings() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.settingsRefresh(raw) {
		return lastCallError("settings refresh")
	}
	return nil
}

// ApplySettings commits staged settings to device flash.
func (d *Device) ApplySettings() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.settingsApply(raw) {
		return lastCallError("settings apply")
	}
	return nil
}

// ApplySettingsTemporary commits staged settings until the device power
// cycles, leaving flash untouched.
func (d *Device) ApplySettingsTemporary() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.settingsApplyTemporary(raw) {
		return lastCallError("settings apply temporary")
	}
	return nil
}

// ApplySettingsDefaults restores factory defaults in flash.
func (d *Device) ApplySettingsDefaults() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.settingsApplyDefaults(raw) {
		return lastCallError("settings apply defaults")
	}
	return nil
}

// ApplySettingsDefaultsTemporary runs on factory defaults until the
// device power cycles.
func (d *Device) ApplySettingsDefaultsTemporary() error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.settingsApplyDefaultsTemporary(raw) {
		return lastCallError("settings apply defaults temporary")
	}
	return nil
}

// ReadSettings copies the opaque settings structure out of the native
// library. The size query (nil buffer) returns the structure size; the
// fill call returns how many bytes were written, which caps the result.
func (d *Device) ReadSettings() ([]byte, error) {
	raw, err := d.snapshot()
	if err != nil {
		return nil, err
	}
	size := lib.settingsReadStructure(raw, nil)
	if size < 0 {
		return nil, lastCallError("settings size query")
	}
	if size == 0 {
		return nil, nil
	}
	buf := make([]byte, size)
	n := lib.settingsReadStructure(raw, buf)
	if n < 0 {
		return nil, lastCallError("settings read")
	}
	if n > size {
		n = size
	}
	return buf[:n], nil
}

// ApplySettingsStructure writes a previously read settings blob back to
// device flash. The structure is device-specific; restoring a blob from
// different hardware fails natively.
func (d *Device) ApplySettingsStructure(structure []byte) error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.settingsApplyStructure(raw, structure) {
		return lastCallError("settings apply structure")
	}
	return nil
}

// ApplySettingsStructureTemporary writes a settings blob to the device
// until the next power cycle.
func (d *Device) ApplySettingsStructureTemporary(structure []byte) error {
	raw, err := d.snapshot()
	if err != nil {
		return err
	}
	if !lib.settingsApplyStructureTemporary(raw, structure) {
		return lastCallError("settings apply structure temporary")
	}
	return nil
}
