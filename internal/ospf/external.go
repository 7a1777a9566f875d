package ospf

import "net/netip"

// computeExternalRoutes implements RFC 2328 Section 16.4 ("Calculating AS
// external routes"): for every AS-external-LSA (or translated NSSA
// type-7), the advertising ASBR's distance is looked up across every
// attached area's SPF tree (the shortest one wins), then combined with
// the LSA's metric per the type-1/type-2 rule.
func (r *Router) computeExternalRoutes(areaTrees map[uint32]map[uint64]*vertex) []Route {
	type asbrReach struct {
		cost     uint32
		nextHops []NextHop
	}
	best := make(map[netip.Prefix]Route)
	order := make([]netip.Prefix, 0)
	seenLSA := make(map[LSAKey]bool)

	for _, area := range r.areas {
		if area.Type() != AreaDefault {
			continue // stub/NSSA areas do not carry AS-external-LSAs
		}
		for _, lsa := range area.LSDB().ByType(LSTypeASExternal) {
			if seenLSA[lsa.Header.Key()] || lsa.IsMaxAge() || lsa.IsSelfOriginated(r.cfg.RouterID) {
				continue
			}
			seenLSA[lsa.Header.Key()] = true

			reach, ok := bestASBRReach(areaTrees, lsa.Header.AdvRouter)
			if !ok {
				continue
			}
			body := DecodeASExternalLSABody(lsa.Body())
			bits, ok := maskToBits(body.NetworkMask)
			if !ok {
				continue
			}
			prefix := netip.PrefixFrom(netip.AddrFrom4(be32(lsa.Header.LSID)), bits)

			rt := Route{Prefix: prefix, AreaID: area.ID()}
			if body.EBit {
				rt.Type = RouteExternalType2
				rt.Cost = reach.cost
				rt.Type2Cost = body.Metric
				rt.NextHops = reach.nextHops
			} else {
				rt.Type = RouteExternalType1
				rt.Cost = reach.cost + body.Metric
				rt.NextHops = reach.nextHops
			}

			cur, seen := best[prefix]
			if !seen || preferExternal(rt, cur) {
				best[prefix] = rt
				if !seen {
					order = append(order, prefix)
				}
			} else if sameExternalCost(rt, cur) {
				cur.NextHops = append(cur.NextHops, rt.NextHops...)
				best[prefix] = cur
			}
		}
	}

	out := make([]Route, 0, len(order))
	for _, p := range order {
		out = append(out, best[p])
	}
	return out
}

// preferExternal implements the RFC 2328 Section 16.4 preference order:
// type-1 beats type-2 regardless of metric; within the same type, lower
// cost wins (type-2 compares Type2Cost first, then Cost as the tie-break
// on ASBR distance).
func preferExternal(a, b Route) bool {
	if a.Type != b.Type {
		return a.Type == RouteExternalType1
	}
	if a.Type == RouteExternalType2 {
		if a.Type2Cost != b.Type2Cost {
			return a.Type2Cost < b.Type2Cost
		}
		return a.Cost < b.Cost
	}
	return a.Cost < b.Cost
}

func sameExternalCost(a, b Route) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == RouteExternalType2 {
		return a.Type2Cost == b.Type2Cost && a.Cost == b.Cost
	}
	return a.Cost == b.Cost
}

func bestASBRReach(areaTrees map[uint32]map[uint64]*vertex, asbr uint32) (struct {
	cost     uint32
	nextHops []NextHop
}, bool) {
	type result = struct {
		cost     uint32
		nextHops []NextHop
	}
	var best result
	found := false
	for _, tree := range areaTrees {
		v, ok := tree[vertexKeyForRouter(asbr)]
		if !ok {
			continue
		}
		body := DecodeRouterLSABody(v.lsa.Body())
		if body.Bits&RouterBitE == 0 {
			continue // not actually an ASBR per its own Router-LSA
		}
		if !found || v.cost < best.cost {
			best = result{cost: v.cost, nextHops: v.nextHops}
			found = true
		}
	}
	return best, found
}
