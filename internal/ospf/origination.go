package ospf

// Self-originated Router-LSA and Network-LSA origination, grounded on the same
// diff-against-installed-instance shape used throughout abr.go: build the
// wanted body, compare against whatever instance is already in the LSDB,
// and only bump the sequence number and reflood when something actually
// changed.

// refreshSelfOriginated rebuilds this router's Router-LSA in every area
// and Network-LSA on every interface where it is DR. Called at the start
// of every SPF run (RFC 2328 Section 12.4: a new Router-LSA is required
// whenever the router's set of interfaces/neighbors in an area changes,
// which is exactly when ScheduleSPF fires).
func (r *Router) refreshSelfOriginated() {
	for _, area := range r.areas {
		r.originateRouterLSA(area)
		for _, iface := range area.Interfaces() {
			if iface.state == IfStateDR {
				r.originateNetworkLSA(iface)
			}
		}
	}
}

// originateRouterLSA builds and, if changed, installs+floods this
// router's Router-LSA for area (RFC 2328 Section 12.4.1, Appendix A.4.2).
func (r *Router) originateRouterLSA(area *Area) {
	body := RouterLSABody{Bits: r.routerLSABits(area)}

	for _, iface := range area.Interfaces() {
		switch iface.cfg.Type {
		case IfTypePointToPoint:
			for _, n := range iface.neighbors {
				if n.State() != NbrFull {
					continue
				}
				body.Links = append(body.Links,
					RouterLink{LinkID: n.RouterID(), LinkData: be32ToUint32(iface.cfg.Addr.Addr().As4()), Type: LinkPointToPoint, Metric: iface.cfg.Cost},
					RouterLink{LinkID: be32ToUint32(iface.cfg.Addr.Addr().As4()) & maskOf(iface.cfg.Addr), LinkData: maskOf(iface.cfg.Addr), Type: LinkStub, Metric: iface.cfg.Cost},
				)
			}
			if len(iface.neighbors) == 0 {
				body.Links = append(body.Links, RouterLink{
					LinkID:   be32ToUint32(iface.cfg.Addr.Addr().As4()) & maskOf(iface.cfg.Addr),
					LinkData: maskOf(iface.cfg.Addr),
					Type:     LinkStub, Metric: iface.cfg.Cost,
				})
			}
		case IfTypeBroadcast, IfTypeNBMA:
			if iface.dr != 0 && (iface.fullyAdjacentToDR() || iface.state == IfStateDR) {
				body.Links = append(body.Links, RouterLink{
					LinkID: drNetworkLSID(iface), LinkData: be32ToUint32(iface.cfg.Addr.Addr().As4()),
					Type: LinkTransit, Metric: iface.cfg.Cost,
				})
			} else {
				body.Links = append(body.Links, RouterLink{
					LinkID:   be32ToUint32(iface.cfg.Addr.Addr().As4()) & maskOf(iface.cfg.Addr),
					LinkData: maskOf(iface.cfg.Addr),
					Type:     LinkStub, Metric: iface.cfg.Cost,
				})
			}
		case IfTypeVirtualLink:
			if !iface.vlOperational {
				continue
			}
			for _, n := range iface.neighbors {
				if n.State() != NbrFull {
					continue
				}
				body.Links = append(body.Links, RouterLink{LinkID: n.RouterID(), LinkData: be32ToUint32(iface.vlNextHop.As4()), Type: LinkVirtual, Metric: iface.cfg.Cost})
			}
		case IfTypePointToMultipoint:
			for _, n := range iface.neighbors {
				if n.State() != NbrFull {
					continue
				}
				body.Links = append(body.Links, RouterLink{LinkID: n.RouterID(), LinkData: be32ToUint32(iface.cfg.Addr.Addr().As4()), Type: LinkPointToPoint, Metric: iface.cfg.Cost})
			}
			body.Links = append(body.Links, RouterLink{
				LinkID:   be32ToUint32(iface.cfg.Addr.Addr().As4()),
				LinkData: 0xffffffff,
				Type:     LinkStub, Metric: 0,
			})
		}
	}

	r.installSelfLSA(area, LSTypeRouter, r.cfg.RouterID, EncodeRouterLSABody(body))
}

// routerLSABits derives the V/E/B bits of a Router-LSA (RFC 2328
// Appendix A.4.2): B set for an ABR, E set for an ASBR (any self-originated
// AS-external-LSA exists), V set for each virtual link whose transit area
// is this one and which is currently up.
func (r *Router) routerLSABits(area *Area) uint8 {
	var bits uint8
	if r.IsABR() {
		bits |= RouterBitB
	}
	if r.hasSelfOriginatedExternal() {
		bits |= RouterBitE
	}
	for _, a := range r.areas {
		for _, iface := range a.Interfaces() {
			if iface.cfg.Type == IfTypeVirtualLink && iface.cfg.TransitAreaID == area.ID() && iface.vlOperational {
				bits |= RouterBitV
			}
		}
	}
	return bits
}

func (r *Router) hasSelfOriginatedExternal() bool {
	backbone := r.areas[BackboneAreaID]
	if backbone == nil {
		return false
	}
	for _, lsa := range backbone.LSDB().ByType(LSTypeASExternal) {
		if lsa.IsSelfOriginated(r.cfg.RouterID) && !lsa.IsMaxAge() {
			return true
		}
	}
	return false
}

// originateNetworkLSA builds and, if changed, installs+floods the
// Network-LSA for a broadcast/NBMA interface where this router is DR
// (RFC 2328 Section 12.4.2, Appendix A.4.3).
func (r *Router) originateNetworkLSA(iface *Interface) {
	routers := []uint32{r.cfg.RouterID}
	for _, n := range iface.neighbors {
		if n.State() == NbrFull {
			routers = append(routers, n.RouterID())
		}
	}
	if len(routers) < 2 {
		// RFC 2328 Section 12.4.2: a Network-LSA with no full neighbors
		// besides self shouldn't be originated; withdraw any stale one.
		r.withdrawSelfLSA(iface.area, LSTypeNetwork, drNetworkLSID(iface))
		return
	}

	body := NetworkLSABody{NetworkMask: maskOf(iface.cfg.Addr), AttachedRouters: routers}
	r.installSelfLSA(iface.area, LSTypeNetwork, drNetworkLSID(iface), EncodeNetworkLSABody(body))
}

func drNetworkLSID(iface *Interface) uint32 {
	return be32ToUint32(iface.cfg.Addr.Addr().As4())
}

// fullyAdjacentToDR reports whether this router has reached Full with the
// interface's elected DR (RFC 2328 Section 12.4.1's transit-link
// condition: "is fully adjacent to the Designated Router").
func (i *Interface) fullyAdjacentToDR() bool {
	for _, n := range i.neighbors {
		if n.RouterID() == i.dr && n.State() == NbrFull {
			return true
		}
	}
	return false
}

// installSelfLSA diffs a freshly-built body against whatever self-originated
// instance already occupies that LSDB slot, re-originating only on change
// (RFC 2328 Section 12.1.6 "MinLSInterval").
func (r *Router) installSelfLSA(area *Area, typ LSType, lsid uint32, body []byte) {
	db := area.LSDB()
	key := LSAKey{Type: typ, LSID: lsid, AdvRouter: r.cfg.RouterID}
	existing := db.Lookup(key)

	seq := int32(InitialSequenceNumber)
	if existing != nil {
		if bytesEqual(existing.Body(), body) {
			return
		}
		seq = existing.Header.SeqNum + 1
	}

	lsa := BuildLSA(LSAHeader{
		Age: 0, Options: r.Options(area), Type: typ,
		LSID: lsid, AdvRouter: r.cfg.RouterID, SeqNum: seq,
	}, body)

	for _, iface := range area.Interfaces() {
		iface.floodSelfOriginated(area, lsa)
		return
	}
}

// withdrawSelfLSA prematurely ages out a self-originated LSA this router
// no longer needs to advertise (RFC 2328 Section 14.1 "premature aging").
func (r *Router) withdrawSelfLSA(area *Area, typ LSType, lsid uint32) {
	db := area.LSDB()
	key := LSAKey{Type: typ, LSID: lsid, AdvRouter: r.cfg.RouterID}
	existing := db.Lookup(key)
	if existing == nil || existing.IsMaxAge() {
		return
	}
	aged := BuildLSA(LSAHeader{
		Age: uint16(MaxAge.Seconds()), Options: existing.Header.Options, Type: typ,
		LSID: lsid, AdvRouter: r.cfg.RouterID, SeqNum: existing.Header.SeqNum + 1,
	}, existing.Body())
	for _, iface := range area.Interfaces() {
		iface.floodSelfOriginated(area, aged)
		return
	}
}
