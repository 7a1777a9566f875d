package netio

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
)

// packetPool recycles read buffers across ReadPacket calls. OSPF packets
// (up to the negotiated interface MTU) have no fixed size, so every buffer
// is 65535 bytes, the largest possible IPv4 datagram.
var packetPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 65535)
		return &buf
	},
}

// ListenerConfig holds configuration for one OSPF interface's raw-socket
// listener.
type ListenerConfig struct {
	// Addr is the local IP address to bind to.
	Addr netip.Addr

	// IfName is the network interface name for SO_BINDTODEVICE and
	// multicast group membership.
	IfName string

	// JoinDR indicates this interface may become DR/BDR and must also
	// join AllDRouters (224.0.0.6).
	JoinDR bool
}

// Listener wraps an OSPFConn and provides a high-level, context-aware
// receive loop for raw OSPF packets.
type Listener struct {
	conn   OSPFConn
	ifName string
}

// NewListener creates a Listener from the given configuration.
func NewListener(cfg ListenerConfig) (*Listener, error) {
	conn, err := NewOSPFConn(cfg.IfName, cfg.Addr, cfg.JoinDR)
	if err != nil {
		return nil, fmt.Errorf("create OSPF listener on %s: %w", cfg.IfName, err)
	}
	return &Listener{conn: conn, ifName: cfg.IfName}, nil
}

// NewListenerFromConn creates a Listener from an existing OSPFConn. Used
// in tests with an in-memory fake instead of a real raw socket.
func NewListenerFromConn(conn OSPFConn, ifName string) *Listener {
	return &Listener{conn: conn, ifName: ifName}
}

// Recv returns at once with an error if ctx is already cancelled;
// otherwise it blocks until one OSPF packet is read or the read fails.
// Cancelling ctx does not interrupt a read already in progress.
func (l *Listener) Recv(ctx context.Context) ([]byte, PacketMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, PacketMeta{}, fmt.Errorf("listener recv: %w", err)
	}
	return l.recvOne()
}

func (l *Listener) recvOne() ([]byte, PacketMeta, error) {
	bufp, ok := packetPool.Get().(*[]byte)
	if !ok {
		return nil, PacketMeta{}, fmt.Errorf("listener recv: %w", ErrUnexpectedConnType)
	}

	n, meta, err := l.conn.ReadPacket(*bufp)
	if err != nil {
		packetPool.Put(bufp)
		return nil, PacketMeta{}, fmt.Errorf("listener read on %s: %w", l.ifName, err)
	}

	out := make([]byte, n)
	copy(out, (*bufp)[:n])
	packetPool.Put(bufp)
	return out, meta, nil
}

// Send writes buf to dst over this listener's connection.
func (l *Listener) Send(buf []byte, dst netip.Addr) error {
	return l.conn.WritePacket(buf, dst)
}

// Close closes the underlying OSPFConn.
func (l *Listener) Close() error {
	if err := l.conn.Close(); err != nil {
		return fmt.Errorf("close listener %s: %w", l.ifName, err)
	}
	return nil
}
