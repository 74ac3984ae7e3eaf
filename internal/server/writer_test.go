package server

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/cnl"
	"github.com/vehnet/go-icsneo/internal/hub"
)

// stallConn is a net.Conn stand-in behaving like a peer that stopped
// reading: Write blocks until the write deadline passes.
type stallConn struct {
	mu          sync.Mutex
	deadline    time.Time
	deadlineSet bool
	closed      bool
}

func (c *stallConn) Write(b []byte) (int, error) {
	for {
		c.mu.Lock()
		closed, dl := c.closed, c.deadline
		c.mu.Unlock()
		if closed {
			return 0, net.ErrClosed
		}
		if !dl.IsZero() && time.Now().After(dl) {
			return 0, os.ErrDeadlineExceeded
		}
		time.Sleep(time.Millisecond)
	}
}

func (c *stallConn) Read([]byte) (int, error) { return 0, io.EOF }

func (c *stallConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *stallConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *stallConn) hadDeadline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deadlineSet
}

func (c *stallConn) LocalAddr() net.Addr  { return &net.TCPAddr{} }
func (c *stallConn) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func (c *stallConn) SetDeadline(time.Time) error     { return nil }
func (c *stallConn) SetReadDeadline(time.Time) error { return nil }

func (c *stallConn) SetWriteDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.deadlineSet = true
	c.mu.Unlock()
	return nil
}

func TestWriteDeadlineDropsStalledClient(t *testing.T) {
	h := hub.New()
	s := New(WithHub(h), WithCodec(&cnl.Codec{}),
		WithBatchSize(1), WithWriteTimeout(50*time.Millisecond))

	cl := &hub.Client{Out: make(chan can.Frame, 1), Closed: make(chan struct{})}
	h.Add(cl)
	conn := &stallConn{}
	done := make(chan struct{})
	defer close(done)
	s.startWriter(done, conn, cl, s.logger)

	cl.Out <- can.Frame{CANID: 0x77, Len: 1, Data: [64]byte{1}}

	if !waitFor(time.Second, func() bool { return h.Count() == 0 && conn.isClosed() }) {
		t.Fatalf("stalled client not dropped, hub count=%d closed=%v", h.Count(), conn.isClosed())
	}
	if !conn.hadDeadline() {
		t.Fatalf("flush ran without a write deadline")
	}
	if !errors.Is(s.LastError(), ErrConnWrite) {
		t.Fatalf("LastError = %v, want ErrConnWrite wrap", s.LastError())
	}
}
