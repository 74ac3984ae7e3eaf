//go:build !linux

package socketcan

import (
	"errors"
	"fmt"

	"github.com/vehnet/go-icsneo/internal/transport"
)

// Sentinels are provided on every platform so callers that classify
// backend errors compile without build tags of their own.
var (
	ErrTxOverflow    = fmt.Errorf("socketcan: %w", transport.ErrTxQueueFull)
	ErrFDUnsupported = errors.New("socketcan: CAN FD frames not supported on this socket")
)
