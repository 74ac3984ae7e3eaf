package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	icsneo "github.com/vehnet/go-icsneo"
	"github.com/vehnet/go-icsneo/internal/can"
	"github.com/vehnet/go-icsneo/internal/transport"
)

func TestTXWriterDeliversBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := &fakeDev{}
	w := NewTXWriter(ctx, dev, icsneo.NetIDHSCAN, 64, 16)
	defer w.Close()

	for i := 0; i < 10; i++ {
		fr := can.Frame{CANID: uint32(0x200 + i), Len: 1}
		fr.Data[0] = byte(i)
		if err := w.SendFrame(fr); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if dev.sentCount() == 10 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if n := dev.sentCount(); n != 10 {
		t.Fatalf("expected 10 transmitted messages, got %d", n)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	for _, batch := range dev.sent {
		for _, m := range batch {
			if m.NetID != icsneo.NetIDHSCAN || m.NetType != icsneo.NetTypeCAN {
				t.Fatalf("wrong network on transmit: %+v", m)
			}
		}
	}
}

func TestTXWriterOverflow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	block := make(chan struct{})
	dev := &fakeDev{block: block}
	w := NewTXWriter(ctx, dev, icsneo.NetIDHSCAN, 2, 4)
	defer func() { close(block); w.Close() }()

	var overflow error
	for i := 0; i < 8; i++ {
		if err := w.SendFrame(can.Frame{CANID: uint32(i)}); err != nil && overflow == nil {
			overflow = err
		}
	}
	if overflow == nil {
		t.Fatal("expected overflow with blocked device")
	}
	if !errors.Is(overflow, ErrTxOverflow) {
		t.Fatalf("expected ErrTxOverflow, got %v", overflow)
	}
	if !errors.Is(overflow, transport.ErrTxQueueFull) {
		t.Fatalf("overflow does not wrap the shared sentinel: %v", overflow)
	}
}

func TestTXWriterFDPassesThrough(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := &fakeDev{}
	w := NewTXWriter(ctx, dev, icsneo.NetIDHSCAN, 8, 4)
	defer w.Close()

	fr := can.Frame{CANID: 0x300, FD: true, BRS: true, Len: 32}
	if err := w.SendFrame(fr); err != nil {
		t.Fatalf("fd send: %v", err)
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && dev.sentCount() == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if len(dev.sent) != 1 || !dev.sent[0][0].CANFD || !dev.sent[0][0].BRS {
		t.Fatalf("fd flags lost: %+v", dev.sent)
	}
}
