package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/hub"
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// initBackend selects the backend, starts its RX loop and returns a frame
// sender and cleanup. Errors are returned, not fatal, so the caller can
// shut down cleanly.
func initBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (func(can.Frame) error, func(), error) {
	switch cfg.backend {
	case "neovi":
		return initNeoVIBackend(ctx, cfg, h, l, wg)
	case "slcan":
		return initSlcanBackend(ctx, cfg, h, l, wg)
	case "socketcan":
		return initSocketCANBackend(ctx, cfg, h, l, wg)
	default:
		return nil, func() {}, fmt.Errorf("unknown backend %q (use neovi|slcan|socketcan)", cfg.backend)
	}
}
