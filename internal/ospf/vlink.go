package ospf

import "net/netip"

// Virtual link operational tracking: a virtual link's "line" is not a
// physical medium but a path through its transit area's intra-area SPF
// tree to the peer router-id. Every SPF run re-evaluates every configured
// virtual link and drives its ISM up or down accordingly.

// refreshVirtualLinks re-evaluates every virtual-link interface against
// the SPF trees just computed for each transit area, bringing the link up
// or down as reachability to the peer changes. Called once per SPF run,
// at the end of computeFullRoutingTable.
func (r *Router) refreshVirtualLinks(areaTrees map[uint32]map[uint64]*vertex) {
	for _, area := range r.areas {
		for _, iface := range area.Interfaces() {
			if iface.cfg.Type != IfTypeVirtualLink {
				continue
			}
			r.refreshOneVirtualLink(iface, areaTrees)
		}
	}
}

// vlTransitAreaOK reports whether iface's configured transit area
// (iface.cfg.TransitAreaID) can carry the virtual link: it must be a
// configured area of type default, neither stub nor NSSA. Backbone area
// 0.0.0.0 can never be a transit area (RFC 2328 Section 15 "the configured
// transit area cannot be ... the backbone").
func (i *Interface) vlTransitAreaOK() bool {
	if i.cfg.TransitAreaID == BackboneAreaID {
		return false
	}
	transit, ok := i.router.areas[i.cfg.TransitAreaID]
	return ok && transit.Type() == AreaDefault
}

// refreshOneVirtualLink implements RFC 2328 Section 15's virtual link
// "line" derivation: the transit area's intra-area SPF tree is searched
// for the peer router-id, and the link is brought up or down accordingly.
func (r *Router) refreshOneVirtualLink(iface *Interface, areaTrees map[uint32]map[uint64]*vertex) {
	if !iface.vlTransitAreaOK() {
		r.setVirtualLinkDown(iface)
		return
	}
	tree := areaTrees[iface.cfg.TransitAreaID]
	if tree == nil {
		r.setVirtualLinkDown(iface)
		return
	}
	peer, ok := tree[vertexKeyForRouter(iface.cfg.PeerRouterID)]
	if !ok || peer.lsa == nil {
		r.setVirtualLinkDown(iface)
		return
	}

	nextHop, ifIndex, ok := firstPhysicalNextHop(peer)
	if !ok {
		r.setVirtualLinkDown(iface)
		return
	}

	wasUp := iface.vlOperational
	iface.vlOperational = true
	iface.vlNextHop = nextHop
	iface.vlIfIndex = ifIndex
	iface.cfg.Cost = uint16(peer.cost)

	if !wasUp {
		iface.logger.Info("virtual link up", "peer_router_id", RouterIDString(iface.cfg.PeerRouterID))
		iface.Deliver(IfEventInterfaceUp)
	}
}

func (r *Router) setVirtualLinkDown(iface *Interface) {
	if !iface.vlOperational {
		return
	}
	iface.vlOperational = false
	iface.vlNextHop = netip.Addr{}
	iface.vlIfIndex = 0
	iface.logger.Info("virtual link down", "peer_router_id", RouterIDString(iface.cfg.PeerRouterID))
	iface.Deliver(IfEventInterfaceDown)
}

// firstPhysicalNextHop walks a vertex's next hops looking for one resolved
// against a real (non-virtual) underlying interface, since a virtual
// link's traffic must ultimately egress a physical adjacency in the
// transit area.
func firstPhysicalNextHop(v *vertex) (netip.Addr, int, bool) {
	for _, nh := range v.nextHops {
		if nh.Iface == nil || nh.Iface.cfg.Type == IfTypeVirtualLink {
			continue
		}
		return nh.Addr, nh.Iface.ifIndex, true
	}
	return netip.Addr{}, 0, false
}
