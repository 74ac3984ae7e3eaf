package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type appConfig struct {
	listenAddr      string
	logFormat       string
	logLevel        string
	metricsAddr     string
	hubBuffer       int
	hubPolicy       string
	logMetricsEvery time.Duration
	backend         string
	maxClients      int
	handshakeTO     time.Duration
	clientReadTO    time.Duration
	mdnsEnable      bool
	mdnsName        string

	// neovi backend
	deviceSerial    string
	canNet          int
	baudrate        int64
	fdBaudrate      int64
	termination     string
	ethActivation   string
	settingsPersist bool
	settingsBackup  string
	settingsRestore string
	eventLimit      int
	writeBlocking   bool
	pollingLimit    int
	pollTimeout     time.Duration
	eventPollEvery  time.Duration

	// slcan backend
	slcanDev     string
	slcanBaud    int
	slcanBitrate int
	slcanReadTO  time.Duration

	// socketcan backend
	canIf string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	flag.StringVar(&cfg.listenAddr, "listen", ":20000", "TCP listen address")
	flag.StringVar(&cfg.logFormat, "log-format", "text", "Log format: text|json")
	flag.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	flag.StringVar(&cfg.metricsAddr, "metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	flag.IntVar(&cfg.hubBuffer, "hub-buffer", 512, "Per-client hub buffer (frames)")
	flag.StringVar(&cfg.hubPolicy, "hub-policy", "drop", "Backpressure policy: drop|kick")
	flag.DurationVar(&cfg.logMetricsEvery, "log-metrics-interval", 0, "If >0, periodically log metrics counters")
	flag.StringVar(&cfg.backend, "backend", "neovi", "CAN backend: neovi|slcan|socketcan")
	flag.IntVar(&cfg.maxClients, "max-clients", 0, "Maximum simultaneous TCP clients (0 = unlimited)")
	flag.DurationVar(&cfg.handshakeTO, "handshake-timeout", 3*time.Second, "Client handshake timeout")
	flag.DurationVar(&cfg.clientReadTO, "client-read-timeout", 60*time.Second, "Per-connection read deadline")
	flag.BoolVar(&cfg.mdnsEnable, "mdns-enable", false, "Enable mDNS/Avahi advertisement")
	flag.StringVar(&cfg.mdnsName, "mdns-name", "", "mDNS instance name (default neovi-server-<hostname>)")

	flag.StringVar(&cfg.deviceSerial, "device", "", "neoVI device serial (empty = first found)")
	flag.IntVar(&cfg.canNet, "can-net", 1, "CAN network number on the device (1 = HSCAN)")
	flag.Int64Var(&cfg.baudrate, "baudrate", 0, "CAN baudrate to set (0 = leave device setting)")
	flag.Int64Var(&cfg.fdBaudrate, "fd-baudrate", 0, "CAN FD data baudrate to set (0 = leave device setting)")
	flag.StringVar(&cfg.termination, "termination", "", "Bus termination: on|off (empty = leave device setting)")
	flag.StringVar(&cfg.ethActivation, "eth-activation", "", "Ethernet activation line: on|off (empty = leave)")
	flag.BoolVar(&cfg.settingsPersist, "settings-persist", false, "Write device settings to flash instead of applying temporarily")
	flag.StringVar(&cfg.settingsBackup, "settings-backup", "", "Dump the device settings structure to this file before configuring")
	flag.StringVar(&cfg.settingsRestore, "settings-restore", "", "Apply a previously dumped settings structure from this file")
	flag.IntVar(&cfg.eventLimit, "event-limit", 0, "Native event queue limit (0 = library default)")
	flag.BoolVar(&cfg.writeBlocking, "write-blocking", false, "Block transmits until hardware confirms instead of fire-and-forget")
	flag.IntVar(&cfg.pollingLimit, "polling-limit", 0, "Polled message buffer limit (0 = library default)")
	flag.DurationVar(&cfg.pollTimeout, "poll-timeout", 50*time.Millisecond, "Per message poll blocking timeout")
	flag.DurationVar(&cfg.eventPollEvery, "event-poll-interval", 2*time.Second, "Device event poll interval (0 disables)")

	flag.StringVar(&cfg.slcanDev, "slcan-dev", "/dev/ttyUSB0", "SLCAN serial device path")
	flag.IntVar(&cfg.slcanBaud, "slcan-baud", 115200, "SLCAN serial baud rate")
	flag.IntVar(&cfg.slcanBitrate, "slcan-bitrate", 500000, "SLCAN CAN bus bitrate")
	flag.DurationVar(&cfg.slcanReadTO, "slcan-read-timeout", 50*time.Millisecond, "SLCAN serial read timeout")

	flag.StringVar(&cfg.canIf, "can-if", "can0", "SocketCAN interface (when --backend=socketcan)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate checks values and ranges only; devices and listeners are opened
// later.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.backend {
	case "neovi", "slcan", "socketcan":
	default:
		return fmt.Errorf("invalid backend: %s", c.backend)
	}
	switch c.hubPolicy {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid hub-policy: %s", c.hubPolicy)
	}
	switch c.termination {
	case "", "on", "off":
	default:
		return fmt.Errorf("invalid termination: %s (use on|off)", c.termination)
	}
	switch c.ethActivation {
	case "", "on", "off":
	default:
		return fmt.Errorf("invalid eth-activation: %s (use on|off)", c.ethActivation)
	}
	if c.hubBuffer <= 0 {
		return fmt.Errorf("hub-buffer must be > 0 (got %d)", c.hubBuffer)
	}
	if c.handshakeTO <= 0 {
		return fmt.Errorf("handshake-timeout must be > 0")
	}
	if c.clientReadTO <= 0 {
		return fmt.Errorf("client-read-timeout must be > 0")
	}
	if c.maxClients < 0 {
		return fmt.Errorf("max-clients must be >= 0")
	}
	if c.canNet <= 0 {
		return fmt.Errorf("can-net must be > 0 (got %d)", c.canNet)
	}
	if c.baudrate < 0 || c.fdBaudrate < 0 {
		return fmt.Errorf("baudrates must be >= 0")
	}
	if c.eventLimit < 0 {
		return fmt.Errorf("event-limit must be >= 0")
	}
	if c.pollingLimit < 0 {
		return fmt.Errorf("polling-limit must be >= 0")
	}
	if c.pollTimeout <= 0 {
		return fmt.Errorf("poll-timeout must be > 0")
	}
	if c.eventPollEvery < 0 {
		return fmt.Errorf("event-poll-interval must be >= 0")
	}
	if c.slcanBaud <= 0 {
		return fmt.Errorf("slcan-baud must be > 0 (got %d)", c.slcanBaud)
	}
	if c.slcanBitrate <= 0 {
		return fmt.Errorf("slcan-bitrate must be > 0 (got %d)", c.slcanBitrate)
	}
	if c.slcanReadTO <= 0 {
		return fmt.Errorf("slcan-read-timeout must be > 0")
	}
	return nil
}

// applyEnvOverrides maps NEOVI_SERVER_* environment variables onto config
// fields unless the matching flag was set explicitly (flag wins). Empty
// values are ignored; durations use time.ParseDuration syntax.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	lookup := func(flagName, env string) (string, bool) {
		if _, ok := set[flagName]; ok {
			return "", false
		}
		v, ok := os.LookupEnv(env)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	str := func(flagName, env string, dst *string) {
		if v, ok := lookup(flagName, env); ok {
			*dst = v
		}
	}
	num := func(flagName, env string, dst *int) {
		if v, ok := lookup(flagName, env); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid %s: %w", env, err)
				}
				return
			}
			*dst = n
		}
	}
	num64 := func(flagName, env string, dst *int64) {
		if v, ok := lookup(flagName, env); ok {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid %s: %w", env, err)
				}
				return
			}
			*dst = n
		}
	}
	dur := func(flagName, env string, dst *time.Duration) {
		if v, ok := lookup(flagName, env); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid %s: %w", env, err)
				}
				return
			}
			*dst = d
		}
	}
	boolean := func(flagName, env string, dst *bool) {
		if v, ok := lookup(flagName, env); ok {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	str("listen", "NEOVI_SERVER_LISTEN", &c.listenAddr)
	str("log-format", "NEOVI_SERVER_LOG_FORMAT", &c.logFormat)
	str("log-level", "NEOVI_SERVER_LOG_LEVEL", &c.logLevel)
	str("metrics-addr", "NEOVI_SERVER_METRICS", &c.metricsAddr)
	num("hub-buffer", "NEOVI_SERVER_HUB_BUFFER", &c.hubBuffer)
	str("hub-policy", "NEOVI_SERVER_HUB_POLICY", &c.hubPolicy)
	dur("log-metrics-interval", "NEOVI_SERVER_LOG_METRICS_INTERVAL", &c.logMetricsEvery)
	str("backend", "NEOVI_SERVER_BACKEND", &c.backend)
	num("max-clients", "NEOVI_SERVER_MAX_CLIENTS", &c.maxClients)
	dur("handshake-timeout", "NEOVI_SERVER_HANDSHAKE_TIMEOUT", &c.handshakeTO)
	dur("client-read-timeout", "NEOVI_SERVER_CLIENT_READ_TIMEOUT", &c.clientReadTO)
	boolean("mdns-enable", "NEOVI_SERVER_MDNS_ENABLE", &c.mdnsEnable)
	str("mdns-name", "NEOVI_SERVER_MDNS_NAME", &c.mdnsName)

	str("device", "NEOVI_SERVER_DEVICE", &c.deviceSerial)
	num("can-net", "NEOVI_SERVER_CAN_NET", &c.canNet)
	num64("baudrate", "NEOVI_SERVER_BAUDRATE", &c.baudrate)
	num64("fd-baudrate", "NEOVI_SERVER_FD_BAUDRATE", &c.fdBaudrate)
	str("termination", "NEOVI_SERVER_TERMINATION", &c.termination)
	str("eth-activation", "NEOVI_SERVER_ETH_ACTIVATION", &c.ethActivation)
	boolean("settings-persist", "NEOVI_SERVER_SETTINGS_PERSIST", &c.settingsPersist)
	str("settings-backup", "NEOVI_SERVER_SETTINGS_BACKUP", &c.settingsBackup)
	str("settings-restore", "NEOVI_SERVER_SETTINGS_RESTORE", &c.settingsRestore)
	num("event-limit", "NEOVI_SERVER_EVENT_LIMIT", &c.eventLimit)
	boolean("write-blocking", "NEOVI_SERVER_WRITE_BLOCKING", &c.writeBlocking)
	num("polling-limit", "NEOVI_SERVER_POLLING_LIMIT", &c.pollingLimit)
	dur("poll-timeout", "NEOVI_SERVER_POLL_TIMEOUT", &c.pollTimeout)
	dur("event-poll-interval", "NEOVI_SERVER_EVENT_POLL_INTERVAL", &c.eventPollEvery)

	str("slcan-dev", "NEOVI_SERVER_SLCAN_DEV", &c.slcanDev)
	num("slcan-baud", "NEOVI_SERVER_SLCAN_BAUD", &c.slcanBaud)
	num("slcan-bitrate", "NEOVI_SERVER_SLCAN_BITRATE", &c.slcanBitrate)
	dur("slcan-read-timeout", "NEOVI_SERVER_SLCAN_READ_TIMEOUT", &c.slcanReadTO)

	str("can-if", "NEOVI_SERVER_IF", &c.canIf)
	return firstErr
}
