package ospf

import "net/netip"

// Demux implements internal/netio.Demuxer without importing that package
// (its method signature uses only stdlib types): a raw packet read off
// one interface's socket is handed to that Interface's Receive method,
// posted onto the event loop so it runs on the same single goroutine as
// every other engine mutation.
func (r *Router) Demux(ifIndex int, src netip.Addr, raw []byte) {
	iface, ok := r.InterfaceByIndex(ifIndex)
	if !ok {
		return
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	r.loop.Post(func() {
		iface.Receive(src, cp)
	})
}
