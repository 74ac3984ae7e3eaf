package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/vehnet/go-icsneo/internal/metrics"
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// PumpConfig tunes the polling RX loop.
type PumpConfig struct {
	// PollTimeout is handed to the native getMessages call; the device
	// blocks up to this long waiting for traffic, so an idle bus does not
	// spin the loop.
	PollTimeout time.Duration
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

func (c *PumpConfig) defaults() {
	if c.PollTimeout <= 0 {
		c.PollTimeout = 50 * time.Millisecond
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 20 * time.Millisecond
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 500 * time.Millisecond
	}
}

// RunPump polls the device message buffer and broadcasts CAN traffic to
// the hub until ctx is cancelled. Poll errors back off exponentially;
// transmit echoes and non-CAN traffic are skipped. Runs on the caller's
// goroutine.
func RunPump(ctx context.Context, dev Device, h Broadcaster, cfg PumpConfig, l *slog.Logger) {
	cfg.defaults()
	backoff := cfg.BackoffMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		msgs, err := dev.Messages(cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.IncError(metrics.ErrNeoVIRead)
			l.Warn("neovi_poll_error", "error", err, "backoff", backoff)
			sleepFn(backoff)
			backoff *= 2
			if backoff > cfg.BackoffMax {
				backoff = cfg.BackoffMax
			}
			continue
		}
		backoff = cfg.BackoffMin
		forwarded := 0
		for _, m := range msgs {
			if m.TransmitEcho {
				continue
			}
			fr, ok := MessageToFrame(m)
			if !ok {
				continue
			}
			h.Broadcast(fr)
			forwarded++
		}
		metrics.AddNeoVIRx(forwarded)
	}
}
