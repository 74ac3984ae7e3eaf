package gateway

import (
	"context"
	"log/slog"
	"time"

	icsneo "github.com/vehnet/go-icsneo"
	"github.com/vehnet/go-icsneo/internal/metrics"
)

// RunEventPoller periodically drains the device diagnostic queue into
// structured logs and the severity-labelled event counter. Runs on the
// caller's goroutine until ctx is cancelled.
func RunEventPoller(ctx context.Context, dev Device, interval time.Duration, l *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			evs, err := dev.Events()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				metrics.IncError(metrics.ErrNeoVIEvents)
				l.Warn("neovi_event_poll_error", "error", err)
				continue
			}
			for _, ev := range evs {
				logEvent(l, ev)
				metrics.IncDeviceEvent(ev.Severity.String())
			}
		}
	}
}

func logEvent(l *slog.Logger, ev icsneo.Event) {
	attrs := []any{
		"description", ev.Description,
		"event", ev.EventNumber,
		"serial", ev.Serial,
	}
	switch ev.Severity {
	case icsneo.SeverityError:
		l.Error("neovi_device_event", attrs...)
	case icsneo.SeverityWarning:
		l.Warn("neovi_device_event", attrs...)
	default:
		l.Info("neovi_device_event", attrs...)
	}
}
