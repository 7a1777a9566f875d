package ospf

import "net/netip"

// computeInterAreaRoutes implements RFC 2328 Section 16.2 ("Calculating
// the inter-area routes"): for every Summary-LSA in every attached area,
// if the advertising router is reachable as an intra-area destination in
// that area's SPF tree, the summary's metric is added to the distance to
// reach a new inter-area destination. The minimum-cost path across all
// areas wins; ties keep both next-hop sets (ECMP).
func (r *Router) computeInterAreaRoutes(areaTrees map[uint32]map[uint64]*vertex) []Route {
	type candidate struct {
		prefix netip.Prefix
		route  Route
	}
	best := make(map[netip.Prefix]Route)
	order := make([]netip.Prefix, 0)

	for _, area := range r.areas {
		tree := areaTrees[area.ID()]
		if tree == nil {
			continue
		}
		for _, lsa := range area.LSDB().ByType(LSTypeSummaryNet) {
			if lsa.IsMaxAge() || lsa.IsSelfOriginated(r.cfg.RouterID) {
				continue
			}
			abr, ok := tree[vertexKeyForRouter(lsa.Header.AdvRouter)]
			if !ok {
				continue
			}
			body := DecodeSummaryLSABody(lsa.Body())
			bits, ok := maskToBits(body.NetworkMask)
			if !ok {
				continue
			}
			prefix := netip.PrefixFrom(netip.AddrFrom4(be32(lsa.Header.LSID)), bits)
			if rng, matched := area.MatchRange(prefix); matched && rng.Effect == RangeSuppress {
				continue
			}
			total := abr.cost + body.Metric
			rt := Route{
				Prefix:   prefix,
				Type:     RouteInterArea,
				Cost:     total,
				AreaID:   area.ID(),
				NextHops: abr.nextHops,
			}
			cur, seen := best[prefix]
			switch {
			case !seen || total < cur.Cost:
				best[prefix] = rt
				if !seen {
					order = append(order, prefix)
				}
			case total == cur.Cost:
				cur.NextHops = append(cur.NextHops, abr.nextHops...)
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

func vertexKeyForRouter(routerID uint32) uint64 {
	return uint64(routerID) | 1<<32
}
