package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/hub"
	"github.com/vehnet/go-icsneo/internal/metrics"
	"github.com/vehnet/go-icsneo/internal/slcan"
)

// openSlcanPort is a hook for tests (overridden in unit tests).
var openSlcanPort = func(name string, baud, bitrate int, to time.Duration) (slcan.Port, error) {
	return slcan.Open(name, baud, bitrate, to)
}

// initSlcanBackend opens the serial adapter and launches the line-decoding
// RX loop.
func initSlcanBackend(ctx context.Context, cfg *appConfig, h *hub.Hub, l *slog.Logger, wg *sync.WaitGroup) (func(can.Frame) error, func(), error) {
	sp, err := openSlcanPort(cfg.slcanDev, cfg.slcanBaud, cfg.slcanBitrate, cfg.slcanReadTO)
	if err != nil {
		return nil, func() {}, fmt.Errorf("slcan open: %w", err)
	}
	l.Info("slcan_open", "device", cfg.slcanDev, "baud", cfg.slcanBaud, "bitrate", cfg.slcanBitrate)
	codec := slcan.Codec{}
	w := slcan.NewTXWriter(ctx, sp, codec, txQueueSize)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer l.Info("slcan_rx_end")
		buf := make([]byte, slcanReadBufSize)
		acc := bytes.NewBuffer(nil)
		backoff := rxBackoffMin
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			n, err := sp.Read(buf)
			if n > 0 {
				acc.Write(buf[:n])
				_ = codec.DecodeStream(acc, func(fr can.Frame) { h.Broadcast(fr) })
				if acc.Len() == 0 && cap(acc.Bytes()) > slcanReclaimThreshold {
					acc = bytes.NewBuffer(nil)
				}
				backoff = rxBackoffMin
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				var perr *os.PathError
				if errors.As(err, &perr) {
					return // adapter unplugged
				}
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					continue // read timeout surfaces as EOF on some platforms
				}
				metrics.IncError(metrics.ErrSlcanRead)
				l.Warn("slcan_read_error", "error", err, "backoff", backoff)
				sleepFn(backoff)
				backoff *= 2
				if backoff > rxBackoffMax {
					backoff = rxBackoffMax
				}
			}
		}
	}()
	cleanup := func() {
		if err := slcan.ClosePort(sp); err != nil {
			l.Warn("slcan_close_error", "error", err)
		}
		w.Close()
	}
	return w.SendFrame, cleanup, nil
}
