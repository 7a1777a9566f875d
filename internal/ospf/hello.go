package ospf

import (
	"log/slog"
	"net/netip"
	"time"
)

// SendHello generates and enqueues a Hello packet on the interface
// (RFC 2328 Section 9.5). Passive interfaces never send Hellos.
func (i *Interface) SendHello() {
	if i.cfg.Passive || i.state == IfStateDown || i.state == IfStateLoopback {
		return
	}
	nbrs := make([]uint32, 0, len(i.neighbors))
	for _, n := range i.neighbors {
		nbrs = append(nbrs, n.routerID)
	}
	pkt := HelloPacket{
		NetworkMask:        maskOf(i.cfg.Addr),
		HelloInterval:      uint16(i.cfg.HelloInterval.Seconds()),
		Options:            i.router.Options(i.area),
		RtrPriority:        i.cfg.Priority,
		RouterDeadInterval: uint32(i.cfg.RouterDeadInterval.Seconds()),
		DesignatedRouter:   i.dr,
		BackupRouter:       i.bdr,
		Neighbors:          nbrs,
	}
	wire := EncodeHello(i.router.RouterID(), i.area.ID(), pkt)
	i.enqueue(netip.MustParseAddr(AllSPFRoutersIP), wire)
	i.stats.HellosSent++
}

func maskOf(p netip.Prefix) uint32 {
	if !p.IsValid() {
		return 0
	}
	bits := p.Bits()
	if bits <= 0 {
		return 0
	}
	var mask uint32 = 0xffffffff << (32 - bits) //nolint:gosec // bits<=32 for IPv4 prefixes
	return mask
}

// HandleHello processes a received Hello (RFC 2328 Section 10.5).
// src is the sending neighbor's IP address, used as the lookup key on
// broadcast/NBMA links.
func (i *Interface) HandleHello(h Header, hp HelloPacket, src netip.Addr) {
	i.stats.HellosRecv++

	if i.cfg.Type != IfTypePointToPoint && i.cfg.Type != IfTypeVirtualLink {
		if mine := maskOf(i.cfg.Addr); mine != 0 && hp.NetworkMask != 0 && mine != hp.NetworkMask {
			i.logger.Warn("Hello netmask mismatch, discarding", slog.String("peer", src.String()))
			i.stats.Discards++
			return
		}
	}
	if time.Duration(hp.HelloInterval)*time.Second != i.cfg.HelloInterval ||
		time.Duration(hp.RouterDeadInterval)*time.Second != i.cfg.RouterDeadInterval {
		i.logger.Warn("Hello interval mismatch, discarding", slog.String("peer", src.String()))
		i.stats.Discards++
		return
	}
	if !i.compatibleOptions(hp.Options) {
		i.logger.Warn("Hello E/N-bit mismatch, discarding", slog.String("peer", src.String()))
		i.stats.Discards++
		return
	}

	n, ok := i.neighbors[i.neighborKey(src, h.RouterID)]
	if !ok {
		n = NewNeighbor(i, h.RouterID, src, i.logger)
		i.neighbors[i.neighborKey(src, h.RouterID)] = n
	}
	n.priority = hp.RtrPriority
	n.declaredDR = hp.DesignatedRouter
	n.declaredBDR = hp.BackupRouter
	n.options = hp.Options

	n.Deliver(NbrEventHelloReceived)

	seenSelf := false
	for _, id := range hp.Neighbors {
		if id == i.router.RouterID() {
			seenSelf = true
			break
		}
	}
	if seenSelf {
		i.handleTwoWay(n)
	} else if n.state > NbrInit {
		n.Deliver(NbrEvent1WayReceived)
	}

	if hp.BackupRouter == h.RouterID && i.state == IfStateWaiting {
		i.Deliver(IfEventBackupSeen)
	}
}

// handleTwoWay fires 2-WayReceived and, if the neighbor becomes
// adjacency-worthy, immediately AdjOK (RFC 2328 Section 10.4).
func (i *Interface) handleTwoWay(n *Neighbor) {
	if n.state < NbrTwoWay {
		n.Deliver(NbrEvent2WayReceived)
	}
	if n.state != NbrTwoWay {
		return
	}
	localRole := DRRoleOther
	switch i.state {
	case IfStateDR:
		localRole = DRRoleDR
	case IfStateBackup:
		localRole = DRRoleBackup
	}
	remoteRole := DRRoleOther
	switch n.routerID {
	case i.dr:
		remoteRole = DRRoleDR
	case i.bdr:
		remoteRole = DRRoleBackup
	}
	if IsAdjacencyWorthy(i.cfg.Type, localRole, remoteRole) {
		n.Deliver(NbrEventAdjOK)
	}
}

// compatibleOptions implements the asymmetric E/N-bit rule.
func (i *Interface) compatibleOptions(remote Options) bool {
	local := i.router.Options(i.area)
	if i.area.Type() == AreaNSSA {
		return remote&OptionNP != 0 && remote&OptionE == 0
	}
	return (local&OptionE != 0) == (remote&OptionE != 0)
}

func (i *Interface) neighborKey(src netip.Addr, routerID uint32) string {
	switch i.cfg.Type {
	case IfTypePointToPoint, IfTypeVirtualLink:
		return routerIDKey(routerID)
	default:
		return src.String()
	}
}

func routerIDKey(id uint32) string {
	return "rid:" + netip.AddrFrom4([4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}).String()
}
