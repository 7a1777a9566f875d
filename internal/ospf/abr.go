package ospf

// Area border router Summary-LSA export (RFC 2328 Section 16.2, grounded
// on Quagga's seven-step ospf_abr_announce_network/ospf_abr_announce_router
// procedure): for every area this router is attached to, export every route
// learned from every OTHER attached area as a type-3 (network) or type-4
// (ASBR) Summary-LSA, aggregated through any configured area-range.

// runABRExport re-derives and re-originates every Summary-LSA this router
// is responsible for, across every attached area.
// Only called when Router.IsABR() is true.
func (r *Router) runABRExport() {
	for _, target := range r.areas {
		if len(target.Interfaces()) == 0 {
			continue
		}
		r.exportSummariesInto(target)
	}
}

// summaryWant is one candidate type-3 Summary-LSA: the best (maximum, for
// an aggregated range) cost seen across every component route folded into
// lsid, and the prefix length to advertise it with.
type summaryWant struct {
	cost uint32
	bits int
}

// exportSummariesInto originates/refreshes/withdraws every Summary-LSA
// this router advertises into target, derived from the routing table
// entries learned from every other attached area. Follows the
// unapprove/approve/sweep discipline: every self-originated Summary-LSA
// already in target's LSDB is implicitly "unapproved" until this pass
// re-derives and re-originates it; whatever is never re-approved gets
// flushed via withdrawSelfLSA once the pass completes.
func (r *Router) exportSummariesInto(target *Area) {
	wanted := make(map[uint32]summaryWant) // LS-ID -> best (prefix length, metric), for type-3
	wantedASBR := make(map[uint32]uint32)

	for _, route := range r.routes {
		if route.AreaID == target.ID() {
			continue // never re-export a route learned from the target area itself
		}
		if route.Type == RouteExternalType1 || route.Type == RouteExternalType2 {
			continue // AS-external-LSAs flood everywhere already, never summarized
		}
		if target.Type() != AreaDefault && route.Type == RouteInterArea {
			// RFC 2328 Section 12.4.3: stub/NSSA areas receive only a
			// single default route from each attached ABR, not the full
			// inter-area set.
			continue
		}

		lsid := be32ToUint32(route.Prefix.Addr().As4())
		bits := route.Prefix.Bits()
		cost := route.Cost

		if srcArea := r.areas[route.AreaID]; srcArea != nil {
			if rng, matched := srcArea.MatchRange(route.Prefix); matched {
				if rng.Effect == RangeSuppress {
					continue
				}
				lsid = be32ToUint32(rng.Prefix.Addr().As4())
				bits = rng.Prefix.Bits()
				if rng.Cost != 0 {
					cost = rng.Cost
				}
			}
		}

		// RFC 2328 Section 12.4.3/16.2: a range's advertised cost is the
		// maximum of its components' costs, not the minimum -- the range
		// must never advertise reachability better than its worst member.
		if prev, ok := wanted[lsid]; !ok || cost > prev.cost {
			wanted[lsid] = summaryWant{cost: cost, bits: bits}
		}
	}

	for _, a := range r.areas {
		if a.ID() == target.ID() {
			continue
		}
		if !a.HasAttachedRouters() {
			continue
		}
		for _, lsa := range a.LSDB().ByType(LSTypeRouter) {
			body := DecodeRouterLSABody(lsa.Body())
			if body.Bits&RouterBitE == 0 || lsa.Header.AdvRouter == r.cfg.RouterID {
				continue
			}
			if cost, ok := r.distanceTo(a, lsa.Header.AdvRouter); ok {
				if prev, exists := wantedASBR[lsa.Header.AdvRouter]; !exists || cost < prev {
					wantedASBR[lsa.Header.AdvRouter] = cost
				}
			}
		}
	}

	approved := make(map[LSAKey]bool, len(wanted)+len(wantedASBR)+1)
	for lsid, w := range wanted {
		r.originateSummary(target, LSTypeSummaryNet, lsid, w.bits, w.cost)
		approved[LSAKey{Type: LSTypeSummaryNet, LSID: lsid, AdvRouter: r.cfg.RouterID}] = true
	}
	for asbr, cost := range wantedASBR {
		r.originateSummary(target, LSTypeSummaryASBR, asbr, 0, cost)
		approved[LSAKey{Type: LSTypeSummaryASBR, LSID: asbr, AdvRouter: r.cfg.RouterID}] = true
	}

	if target.Type() == AreaStub || target.Type() == AreaNSSA {
		r.originateSummary(target, LSTypeSummaryNet, 0, 0, target.stubDefaultCost)
		approved[LSAKey{Type: LSTypeSummaryNet, LSID: 0, AdvRouter: r.cfg.RouterID}] = true
	}

	r.sweepUnapprovedSummaries(target, approved)
}

// sweepUnapprovedSummaries withdraws every self-originated Summary-LSA in
// target's LSDB that this export pass did not re-approve: a route that
// disappeared (the far area lost the network, or a range swallowed it)
// must have its stale Summary-LSA prematurely aged out rather than left
// to linger until LSRefreshTime.
func (r *Router) sweepUnapprovedSummaries(target *Area, approved map[LSAKey]bool) {
	for _, lsa := range target.LSDB().ByType(LSTypeSummaryNet) {
		if lsa.IsSelfOriginated(r.cfg.RouterID) && !approved[lsa.Header.Key()] {
			r.withdrawSelfLSA(target, LSTypeSummaryNet, lsa.Header.LSID)
		}
	}
	for _, lsa := range target.LSDB().ByType(LSTypeSummaryASBR) {
		if lsa.IsSelfOriginated(r.cfg.RouterID) && !approved[lsa.Header.Key()] {
			r.withdrawSelfLSA(target, LSTypeSummaryASBR, lsa.Header.LSID)
		}
	}
}

// distanceTo looks up the cost to reach an ASBR within area's most recent
// intra-area SPF tree: the ASBR is a router-vertex in that tree, and its
// vertex cost is exactly the distance RFC 2328 Section 16.2 step 3 wants
// for a type-4 Summary-LSA.
func (r *Router) distanceTo(area *Area, routerID uint32) (uint32, bool) {
	tree := r.areaTrees[area.ID()]
	if tree == nil {
		return 0, false
	}
	v, ok := tree[vertexKeyForRouter(routerID)]
	if !ok {
		return 0, false
	}
	return v.cost, true
}

// originateSummary builds, installs, and floods a type-3 or type-4
// Summary-LSA if no self-originated instance exists yet or the metric
// changed (RFC 2328 Section 12.4.3).
func (r *Router) originateSummary(area *Area, typ LSType, lsid uint32, maskBits int, cost uint32) {
	db := area.LSDB()
	key := LSAKey{Type: typ, LSID: lsid, AdvRouter: r.cfg.RouterID}
	existing := db.Lookup(key)

	mask := uint32(0)
	if typ == LSTypeSummaryNet && maskBits > 0 {
		mask = maskFromBits(maskBits)
	}
	body := EncodeSummaryLSABody(SummaryLSABody{NetworkMask: mask, Metric: cost})

	seq := int32(InitialSequenceNumber)
	if existing != nil {
		if bytesEqual(existing.Body(), body) {
			return // unchanged, no need to re-originate
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

func maskFromBits(bits int) uint32 {
	if bits <= 0 {
		return 0
	}
	return 0xffffffff << uint(32-bits) //nolint:gosec // bits in [1,32]
}

func be32ToUint32(b [4]byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
