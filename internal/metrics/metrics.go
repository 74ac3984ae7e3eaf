// Package metrics exposes Prometheus instrumentation for the bridge plus a
// local atomic mirror so counters can be logged in-process without scraping.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vehnet/go-icsneo/internal/logging"
)

// Prometheus collectors.
var (
	NeoVIRxMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neovi_rx_messages_total",
		Help: "Total messages polled from the neoVI device.",
	})
	NeoVITxMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "neovi_tx_messages_total",
		Help: "Total messages transmitted through the neoVI device.",
	})
	SlcanRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slcan_rx_frames_total",
		Help: "Total CAN frames decoded from the SLCAN serial link.",
	})
	SlcanTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slcan_tx_frames_total",
		Help: "Total CAN frames written to the SLCAN serial link.",
	})
	SocketCANRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socketcan_rx_frames_total",
		Help: "Total CAN frames read from the SocketCAN interface.",
	})
	SocketCANTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socketcan_tx_frames_total",
		Help: "Total CAN frames written to the SocketCAN interface.",
	})
	TCPRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_rx_frames_total",
		Help: "Total CAN frames received from TCP clients.",
	})
	TCPTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_tx_frames_total",
		Help: "Total CAN frames sent to TCP clients.",
	})
	HubDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_dropped_frames_total",
		Help: "Total CAN frames dropped by the hub due to slow clients.",
	})
	HubKickedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_kicked_clients_total",
		Help: "Total clients disconnected by the backpressure kick policy.",
	})
	HubRejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_rejected_clients_total",
		Help: "Total client connection attempts rejected (e.g. max-clients).",
	})
	HubActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_active_clients",
		Help: "Current number of connected clients.",
	})
	HubBroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_broadcast_fanout",
		Help: "Number of clients targeted by the most recent broadcast.",
	})
	HubQueueDepthMax = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_queue_depth_max",
		Help: "Max queued frames observed among clients in the last sample.",
	})
	HubQueueDepthAvg = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_queue_depth_avg",
		Help: "Approximate average queued frames per client in the last sample.",
	})
	DeviceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "device_events_total",
		Help: "Events reported by the neoVI device, by severity.",
	}, []string{"severity"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (invalid length, truncated, bad records).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants, kept to a fixed set to bound cardinality.
const (
	ErrTCPRead          = "tcp_read"
	ErrTCPWrite         = "tcp_write"
	ErrHandshake        = "handshake"
	ErrNeoVIOpen        = "neovi_open"
	ErrNeoVIRead        = "neovi_read"
	ErrNeoVIWrite       = "neovi_write"
	ErrNeoVIOverflow    = "neovi_tx_overflow"
	ErrNeoVIEvents      = "neovi_events"
	ErrSlcanRead        = "slcan_read"
	ErrSlcanWrite       = "slcan_write"
	ErrSlcanOverflow    = "slcan_tx_overflow"
	ErrSocketCANRead    = "socketcan_read"
	ErrSocketCANWrite   = "socketcan_write"
	ErrSocketCANOver    = "socketcan_tx_overflow"
	ErrBackendTx        = "backend_tx"
	ErrUnsupportedFrame = "unsupported_frame"
)

// Local mirrors for Snap(). Kept in sync by the Inc/Add/Set helpers below.
var (
	localNeoVIRx     uint64
	localNeoVITx     uint64
	localSlcanRx     uint64
	localSlcanTx     uint64
	localSocketCANRx uint64
	localSocketCANTx uint64
	localTCPRx       uint64
	localTCPTx       uint64
	localHubDrop     uint64
	localHubKick     uint64
	localHubReject   uint64
	localErrors      uint64
	localHubClients  uint64
	localFanout      uint64
	localMalformed   uint64
	localQDMax       uint64
	localQDAvg       uint64
	localDevEvents   uint64
)

// Snapshot is a cheap copy of the local counters.
type Snapshot struct {
	NeoVIRx       uint64
	NeoVITx       uint64
	SlcanRx       uint64
	SlcanTx       uint64
	SocketCANRx   uint64
	SocketCANTx   uint64
	TCPRx         uint64
	TCPTx         uint64
	HubDrops      uint64
	HubKicks      uint64
	HubRejects    uint64
	Errors        uint64 // sum across error labels
	HubClients    uint64
	Fanout        uint64
	Malformed     uint64
	QueueDepthMax uint64
	QueueDepthAvg uint64
	DeviceEvents  uint64 // sum across severities
}

func Snap() Snapshot {
	return Snapshot{
		NeoVIRx:       atomic.LoadUint64(&localNeoVIRx),
		NeoVITx:       atomic.LoadUint64(&localNeoVITx),
		SlcanRx:       atomic.LoadUint64(&localSlcanRx),
		SlcanTx:       atomic.LoadUint64(&localSlcanTx),
		SocketCANRx:   atomic.LoadUint64(&localSocketCANRx),
		SocketCANTx:   atomic.LoadUint64(&localSocketCANTx),
		TCPRx:         atomic.LoadUint64(&localTCPRx),
		TCPTx:         atomic.LoadUint64(&localTCPTx),
		HubDrops:      atomic.LoadUint64(&localHubDrop),
		HubKicks:      atomic.LoadUint64(&localHubKick),
		HubRejects:    atomic.LoadUint64(&localHubReject),
		Errors:        atomic.LoadUint64(&localErrors),
		HubClients:    atomic.LoadUint64(&localHubClients),
		Fanout:        atomic.LoadUint64(&localFanout),
		Malformed:     atomic.LoadUint64(&localMalformed),
		QueueDepthMax: atomic.LoadUint64(&localQDMax),
		QueueDepthAvg: atomic.LoadUint64(&localQDAvg),
		DeviceEvents:  atomic.LoadUint64(&localDevEvents),
	}
}

// AddNeoVIRx accounts a polled batch.
func AddNeoVIRx(n int) {
	if n <= 0 {
		return
	}
	NeoVIRxMessages.Add(float64(n))
	atomic.AddUint64(&localNeoVIRx, uint64(n))
}

func IncNeoVITx() {
	NeoVITxMessages.Inc()
	atomic.AddUint64(&localNeoVITx, 1)
}

// AddNeoVITx accounts a batch transmit.
func AddNeoVITx(n int) {
	if n <= 0 {
		return
	}
	NeoVITxMessages.Add(float64(n))
	atomic.AddUint64(&localNeoVITx, uint64(n))
}

func IncSlcanRx() {
	SlcanRxFrames.Inc()
	atomic.AddUint64(&localSlcanRx, 1)
}

func IncSlcanTx() {
	SlcanTxFrames.Inc()
	atomic.AddUint64(&localSlcanTx, 1)
}

func IncSocketCANRx() {
	SocketCANRxFrames.Inc()
	atomic.AddUint64(&localSocketCANRx, 1)
}

func IncSocketCANTx() {
	SocketCANTxFrames.Inc()
	atomic.AddUint64(&localSocketCANTx, 1)
}

func IncTCPRx() {
	TCPRxFrames.Inc()
	atomic.AddUint64(&localTCPRx, 1)
}

func AddTCPTx(n int) {
	TCPTxFrames.Add(float64(n))
	atomic.AddUint64(&localTCPTx, uint64(n))
}

func IncHubDrop() {
	HubDroppedFrames.Inc()
	atomic.AddUint64(&localHubDrop, 1)
}

func IncHubKick() {
	HubKickedClients.Inc()
	atomic.AddUint64(&localHubKick, 1)
}

func IncHubReject() {
	HubRejectedClients.Inc()
	atomic.AddUint64(&localHubReject, 1)
}

func SetHubClients(n int) {
	HubActiveClients.Set(float64(n))
	atomic.StoreUint64(&localHubClients, uint64(n))
}

func SetBroadcastFanout(n int) {
	HubBroadcastFanout.Set(float64(n))
	atomic.StoreUint64(&localFanout, uint64(n))
}

// SetQueueDepth records a sample of max and avg client queue depth.
func SetQueueDepth(max, avg int) {
	HubQueueDepthMax.Set(float64(max))
	HubQueueDepthAvg.Set(float64(avg))
	atomic.StoreUint64(&localQDMax, uint64(max))
	atomic.StoreUint64(&localQDAvg, uint64(avg))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// IncDeviceEvent accounts one device event under its severity label
// ("info", "warning", "error").
func IncDeviceEvent(severity string) {
	DeviceEvents.WithLabelValues(severity).Inc()
	atomic.AddUint64(&localDevEvents, 1)
}

// InitBuildInfo sets the build info gauge; call once at startup. Common error
// and severity label series are pre-registered so first increments are cheap.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{
		ErrTCPRead, ErrTCPWrite, ErrHandshake,
		ErrNeoVIOpen, ErrNeoVIRead, ErrNeoVIWrite, ErrNeoVIOverflow, ErrNeoVIEvents,
		ErrSlcanRead, ErrSlcanWrite, ErrSlcanOverflow,
		ErrSocketCANRead, ErrSocketCANWrite, ErrSocketCANOver,
		ErrBackendTx, ErrUnsupportedFrame,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
	for _, sev := range []string{"info", "warning", "error"} {
		DeviceEvents.WithLabelValues(sev).Add(0)
	}
}

// StartHTTP serves /metrics and /ready on addr and returns the server so the
// caller can shut it down.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// SetReadinessFunc registers the function consulted by /ready.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady reports readiness; true until a readiness func is registered so the
// metrics endpoint does not flap during startup.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
