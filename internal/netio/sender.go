package netio

import (
	"log/slog"
	"sync"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// Dispatcher implements ospf.OutputDispatcher, draining one interface's
// FIFO output queue over that interface's raw-socket Listener whenever
// the engine calls Flush. One raw IP socket per OSPF interface.
type Dispatcher struct {
	mu        sync.Mutex
	listeners map[string]*Listener
	logger    *slog.Logger
}

// NewDispatcher creates an empty Dispatcher; interfaces are registered
// via Register as their Listeners are opened.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string]*Listener),
		logger:    logger.With(slog.String("component", "netio.dispatcher")),
	}
}

// Register associates an interface name with the Listener that owns its
// raw socket, so Flush can find where to send that interface's queued
// packets.
func (d *Dispatcher) Register(ifaceName string, ln *Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[ifaceName] = ln
}

// Unregister removes an interface's Listener association (e.g. when an
// interface is administratively removed).
func (d *Dispatcher) Unregister(ifaceName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, ifaceName)
}

// Flush drains iface's entire output FIFO, writing each queued packet to
// its destination over the registered Listener. Errors are logged, not
// returned: one bad write must not stall the FIFO for subsequent packets
func (d *Dispatcher) Flush(iface *ospf.Interface) {
	d.mu.Lock()
	ln, ok := d.listeners[iface.Name()]
	d.mu.Unlock()
	if !ok {
		d.logger.Warn("flush: no listener registered", slog.String("iface", iface.Name()))
		return
	}

	for {
		pkt := iface.PopOutbound()
		if pkt == nil {
			return
		}
		if err := ln.Send(pkt.Payload(), pkt.Dst()); err != nil {
			d.logger.Warn("send failed",
				slog.String("iface", iface.Name()),
				slog.String("dst", pkt.Dst().String()),
				slog.String("error", err.Error()))
		}
	}
}
