package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	icsneo "github.com/vehnet/go-icsneo"
	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/gateway"
	"github.com/vehnet/go-icsneo/internal/hub"
	"github.com/vehnet/go-icsneo/internal/metrics"
)

// neoviDevice is the device surface the backend needs; *icsneo.Device
// implements it, and tests substitute fakes via openNeoVIDevice.
type neoviDevice interface {
	gateway.Device
	Open() error
	Close() error
	Serial() string
	Describe() (string, error)
	ProductName() (string, error)
	TimestampResolution() (uint16, error)
	NetworkByNumber(icsneo.NetType, uint32) icsneo.NetID
	SetBaudrate(icsneo.NetID, int64) bool
	SetFDBaudrate(icsneo.NetID, int64) bool
	TerminationSupported(icsneo.NetID) bool
	TerminationAllowed(icsneo.NetID) bool
	SetTermination(icsneo.NetID, bool) bool
	SetDigitalIO(icsneo.IOType, uint32, bool) error
	ApplySettings() error
	ApplySettingsTemporary() error
	ReadSettings() ([]byte, error)
	ApplySettingsStructure([]byte) error
	ApplySettingsStructureTemporary([]byte) error
	SetWriteBlocking(bool)
	SetPollingLimit(int) error
	GoOnline() error
	GoOffline() error
	EnablePolling() bool
	DisablePolling() bool
}

// openNeoVIDevice is a hook for tests (overridden in unit tests).
var openNeoVIDevice = func(serial string) (neoviDevice, error) {
	if serial != "" {
		return icsneo.Find(serial)
	}
	devs, err := icsneo.FindAll()
	if err != nil {
		return nil, err
	}
	return devs[0], nil
}

// initNeoVIBackend finds and opens the device, walks the configuration
// sequence and launches the polling pump, event poller and TX writer.
func initNeoVIBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (func(can.Frame) error, func(), error) {
	dev, err := openNeoVIDevice(cfg.deviceSerial)
	if err != nil {
		metrics.IncError(metrics.ErrNeoVIOpen)
		return nil, func() {}, fmt.Errorf("neovi find: %w", err)
	}
	if err := dev.Open(); err != nil {
		metrics.IncError(metrics.ErrNeoVIOpen)
		return nil, func() {}, fmt.Errorf("neovi open: %w", err)
	}
	fail := func(err error) (func(can.Frame) error, func(), error) {
		_ = dev.Close()
		return nil, func() {}, err
	}

	desc, _ := dev.Describe()
	product, _ := dev.ProductName()
	tsRes, _ := dev.TimestampResolution()
	l.Info("neovi_open", "device", desc, "product", product, "serial", dev.Serial(), "ts_resolution_ns", tsRes)

	net := dev.NetworkByNumber(icsneo.NetTypeCAN, uint32(cfg.canNet))
	if err := setupDevice(dev, net, cfg, l); err != nil {
		return fail(err)
	}

	if cfg.eventLimit > 0 {
		icsneo.SetEventLimit(cfg.eventLimit)
		l.Info("neovi_event_limit", "limit", cfg.eventLimit)
	}
	dev.SetWriteBlocking(cfg.writeBlocking)
	if cfg.pollingLimit > 0 {
		if err := dev.SetPollingLimit(cfg.pollingLimit); err != nil {
			return fail(fmt.Errorf("neovi polling limit: %w", err))
		}
	}
	if err := dev.GoOnline(); err != nil {
		return fail(fmt.Errorf("neovi go online: %w", err))
	}
	if !dev.EnablePolling() {
		l.Warn("neovi_enable_polling_failed", "serial", dev.Serial())
	}
	l.Info("neovi_online", "serial", dev.Serial(), "net", net.String())

	tw := gateway.NewTXWriter(ctx, dev, net, txQueueSize, neoviTxBatchMax)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("neovi_rx_end")
		gateway.RunPump(ctx, dev, h, gateway.PumpConfig{PollTimeout: cfg.pollTimeout}, l)
	}()
	if cfg.eventPollEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gateway.RunEventPoller(ctx, dev, cfg.eventPollEvery, l)
		}()
	}

	cleanup := func() {
		tw.Close()
		dev.DisablePolling()
		if err := dev.GoOffline(); err != nil {
			l.Warn("neovi_go_offline_error", "error", err)
		}
		if err := dev.Close(); err != nil {
			l.Warn("neovi_close_error", "error", err)
		}
	}
	return tw.SendFrame, cleanup, nil
}

// setupDevice applies the optional settings work: backup the current
// structure, restore a saved one, then per-flag bus configuration. Changes
// hit flash only with -settings-persist; otherwise they are temporary and
// revert on the next device power cycle.
func setupDevice(dev neoviDevice, net icsneo.NetID, cfg *appConfig, l *slog.Logger) error {
	if cfg.settingsBackup != "" {
		blob, err := dev.ReadSettings()
		if err != nil {
			return fmt.Errorf("neovi settings read: %w", err)
		}
		if err := os.WriteFile(cfg.settingsBackup, blob, 0o600); err != nil {
			return fmt.Errorf("neovi settings backup: %w", err)
		}
		l.Info("neovi_settings_backup", "path", cfg.settingsBackup, "bytes", len(blob))
	}
	if cfg.settingsRestore != "" {
		blob, err := os.ReadFile(cfg.settingsRestore)
		if err != nil {
			return fmt.Errorf("neovi settings restore: %w", err)
		}
		apply := dev.ApplySettingsStructureTemporary
		if cfg.settingsPersist {
			apply = dev.ApplySettingsStructure
		}
		if err := apply(blob); err != nil {
			return fmt.Errorf("neovi settings restore: %w", err)
		}
		l.Info("neovi_settings_restore", "path", cfg.settingsRestore, "bytes", len(blob), "persist", cfg.settingsPersist)
	}

	changed := false
	if cfg.baudrate > 0 {
		if !dev.SetBaudrate(net, cfg.baudrate) {
			return fmt.Errorf("neovi set baudrate %d on %s failed", cfg.baudrate, net)
		}
		changed = true
	}
	if cfg.fdBaudrate > 0 {
		if !dev.SetFDBaudrate(net, cfg.fdBaudrate) {
			return fmt.Errorf("neovi set fd baudrate %d on %s failed", cfg.fdBaudrate, net)
		}
		changed = true
	}
	if cfg.termination != "" {
		if !dev.TerminationSupported(net) {
			return fmt.Errorf("neovi termination not supported on %s", net)
		}
		if !dev.TerminationAllowed(net) {
			return fmt.Errorf("neovi termination not allowed on %s (already active on a paired network)", net)
		}
		if !dev.SetTermination(net, cfg.termination == "on") {
			return fmt.Errorf("neovi set termination on %s failed", net)
		}
		changed = true
	}
	if cfg.ethActivation != "" {
		if err := dev.SetDigitalIO(icsneo.IOEthernetActivation, 1, cfg.ethActivation == "on"); err != nil {
			return fmt.Errorf("neovi ethernet activation: %w", err)
		}
	}
	if changed {
		apply := dev.ApplySettingsTemporary
		if cfg.settingsPersist {
			apply = dev.ApplySettings
		}
		if err := apply(); err != nil {
			return fmt.Errorf("neovi settings apply: %w", err)
		}
		l.Info("neovi_settings_applied", "persist", cfg.settingsPersist,
			"baudrate", cfg.baudrate, "fd_baudrate", cfg.fdBaudrate, "termination", cfg.termination)
	}
	return nil
}
