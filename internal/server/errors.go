package server

import (
	"errors"

	"github.com/vehnet/go-icsneo/internal/metrics"
)

// Sentinels wrapped into server errors so callers classify via errors.Is.
var (
	ErrListen    = errors.New("listen")
	ErrAccept    = errors.New("accept")
	ErrHandshake = errors.New("handshake")
	ErrConnRead  = errors.New("conn_read")
	ErrConnWrite = errors.New("conn_write")
	ErrBackendTx = errors.New("backend_tx")
	ErrContext   = errors.New("context_cancelled")
)

// mapErrToMetric picks the metrics label for a wrapped server error.
// Listener failures share the tcp_read label; they are rare enough that a
// dedicated label would never be looked at.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrConnRead), errors.Is(err, ErrAccept), errors.Is(err, ErrListen):
		return metrics.ErrTCPRead
	case errors.Is(err, ErrConnWrite):
		return metrics.ErrTCPWrite
	case errors.Is(err, ErrHandshake):
		return metrics.ErrHandshake
	case errors.Is(err, ErrBackendTx):
		return metrics.ErrBackendTx
	case errors.Is(err, ErrContext):
		return "context"
	default:
		return "other"
	}
}
