package netio_test

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"

	"github.com/go-ospfd/ospfd/internal/netio"
)

// -------------------------------------------------------------------------
// MockOSPFConn — Test double for OSPFConn
// -------------------------------------------------------------------------

// MockOSPFConn implements netio.OSPFConn for testing without real raw
// sockets. It provides injectable read/write behavior and records written
// packets.
type MockOSPFConn struct {
	mu     sync.Mutex
	closed bool

	// ReadFunc is called by ReadPacket. Set this to control read behavior.
	ReadFunc func(buf []byte) (int, netio.PacketMeta, error)

	// WriteFunc is called by WritePacket. Set this to control write behavior.
	WriteFunc func(buf []byte, dst netip.Addr) error

	// Written records all packets sent via WritePacket.
	Written []writtenPacket
}

// writtenPacket records a single WritePacket call.
type writtenPacket struct {
	Data []byte
	Dst  netip.Addr
}

// NewMockOSPFConn creates an empty MockOSPFConn.
func NewMockOSPFConn() *MockOSPFConn {
	return &MockOSPFConn{}
}

// ReadPacket implements OSPFConn.ReadPacket using the injectable ReadFunc.
func (m *MockOSPFConn) ReadPacket(buf []byte) (int, netio.PacketMeta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, netio.PacketMeta{}, netio.ErrSocketClosed
	}
	if m.ReadFunc != nil {
		return m.ReadFunc(buf)
	}
	return 0, netio.PacketMeta{}, errors.New("mock: ReadFunc not set")
}

// WritePacket implements OSPFConn.WritePacket.
func (m *MockOSPFConn) WritePacket(buf []byte, dst netip.Addr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return netio.ErrSocketClosed
	}

	// Copy the buffer so the test can inspect it after the caller reuses it.
	data := make([]byte, len(buf))
	copy(data, buf)
	m.Written = append(m.Written, writtenPacket{Data: data, Dst: dst})

	if m.WriteFunc != nil {
		return m.WriteFunc(buf, dst)
	}
	return nil
}

// Close implements OSPFConn.Close.
func (m *MockOSPFConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// -------------------------------------------------------------------------
// Tests — Listener over a mock connection
// -------------------------------------------------------------------------

func TestListenerRecvWithMock(t *testing.T) {
	t.Parallel()

	conn := NewMockOSPFConn()
	conn.ReadFunc = func(buf []byte) (int, netio.PacketMeta, error) {
		payload := []byte{0x02, 0x01, 0x00, 0x1c}
		n := copy(buf, payload)
		return n, netio.PacketMeta{
			SrcAddr: netip.MustParseAddr("10.0.0.2"),
			DstAddr: netip.MustParseAddr("224.0.0.5"),
			IfIndex: 3,
		}, nil
	}

	ln := netio.NewListenerFromConn(conn, "eth0")

	raw, meta, err := ln.Recv(context.Background())
	if err != nil {
		t.Fatalf("Recv() error: %v", err)
	}
	if len(raw) != 4 {
		t.Fatalf("Recv() len = %d, want 4", len(raw))
	}
	if meta.SrcAddr.String() != "10.0.0.2" {
		t.Errorf("meta.SrcAddr = %s, want 10.0.0.2", meta.SrcAddr)
	}
	if meta.IfIndex != 3 {
		t.Errorf("meta.IfIndex = %d, want 3", meta.IfIndex)
	}
}

func TestListenerRecvPropagatesError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("boom")
	conn := NewMockOSPFConn()
	conn.ReadFunc = func(buf []byte) (int, netio.PacketMeta, error) {
		return 0, netio.PacketMeta{}, wantErr
	}

	ln := netio.NewListenerFromConn(conn, "eth0")

	if _, _, err := ln.Recv(context.Background()); err == nil {
		t.Fatal("Recv() returned nil error, want error")
	}
}

func TestListenerRecvRejectsCancelledContext(t *testing.T) {
	t.Parallel()

	conn := NewMockOSPFConn()
	ln := netio.NewListenerFromConn(conn, "eth0")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := ln.Recv(ctx); err == nil {
		t.Fatal("Recv() with cancelled context returned nil error, want error")
	}
}

func TestListenerSend(t *testing.T) {
	t.Parallel()

	conn := NewMockOSPFConn()
	ln := netio.NewListenerFromConn(conn, "eth0")

	dst := netip.MustParseAddr("224.0.0.5")
	if err := ln.Send([]byte{1, 2, 3}, dst); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	if len(conn.Written) != 1 {
		t.Fatalf("Written count = %d, want 1", len(conn.Written))
	}
	if conn.Written[0].Dst != dst {
		t.Errorf("Written[0].Dst = %s, want %s", conn.Written[0].Dst, dst)
	}
}

func TestListenerClose(t *testing.T) {
	t.Parallel()

	conn := NewMockOSPFConn()
	ln := netio.NewListenerFromConn(conn, "eth0")

	if err := ln.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if _, _, err := conn.ReadPacket(make([]byte, 16)); !errors.Is(err, netio.ErrSocketClosed) {
		t.Errorf("ReadPacket() after Close() error = %v, want ErrSocketClosed", err)
	}
}
