package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/hub"
	"github.com/vehnet/go-icsneo/internal/metrics"
	"github.com/vehnet/go-icsneo/internal/transport"
)

// readBatchMax caps the frames drained from one connection before the
// loop checks deadlines and cancellation again.
const readBatchMax = 16

// forward hands one decoded client frame to the backend, classifying
// overflow (expected under load, debug only) apart from real errors.
func (s *Server) forward(fr can.Frame, logger *slog.Logger) {
	if s.frameFilter != nil && !s.frameFilter(&fr) {
		return
	}
	metrics.IncTCPRx()
	if err := s.Send(fr); err != nil {
		if errors.Is(err, transport.ErrTxQueueFull) {
			s.totalBackendOverflow.Add(1)
			logger.Debug("backend_overflow_drop", "can_id", fmt.Sprintf("0x%X", fr.CANID), "len", fr.Len)
			return
		}
		wrap := fmt.Errorf("%w: %v", ErrBackendTx, err)
		metrics.IncError(mapErrToMetric(wrap))
		s.setError(wrap)
		s.totalBackendErrors.Add(1)
		logger.Error("backend_tx_error", "error", err, "can_id", fmt.Sprintf("0x%X", fr.CANID))
	}
}

func (s *Server) startReader(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	mfd, _ := s.Codec.(transport.MultiFrameDecoder)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = conn.Close() }()
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.readDeadline))
			var count int
			var err error
			if mfd != nil {
				count, err = mfd.DecodeN(conn, readBatchMax, func(fr can.Frame) {
					s.forward(fr, logger)
				})
			} else {
				var fr can.Frame
				fr, err = s.Codec.Decode(conn)
				if err == nil {
					s.forward(fr, logger)
					count = 1
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					return
				}
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				wrap := fmt.Errorf("%w: %v", ErrConnRead, err)
				metrics.IncError(mapErrToMetric(wrap))
				s.setError(wrap)
				return
			}
			if count == 0 {
				time.Sleep(100 * time.Microsecond)
			}
			select {
			case <-ctxDone:
				return
			default:
			}
		}
	}()
}
