package ospf

import (
	"container/heap"
	"net/netip"
)

// RouteType classifies how a Route was computed.
type RouteType uint8

// Route classifications, in RFC 2328 Section 16.4 preference order.
const (
	RouteIntraArea RouteType = iota
	RouteInterArea
	RouteExternalType1
	RouteExternalType2
)

// String renders the route classification the way it appears in
// introspection output and log lines.
func (t RouteType) String() string {
	switch t {
	case RouteIntraArea:
		return "intra-area"
	case RouteInterArea:
		return "inter-area"
	case RouteExternalType1:
		return "external-type1"
	case RouteExternalType2:
		return "external-type2"
	default:
		return "unknown"
	}
}

// NextHop is one equal-cost next hop of a Route.
type NextHop struct {
	Addr  netip.Addr
	Iface *Interface
}

// Route is one computed routing table entry.
type Route struct {
	Prefix    netip.Prefix
	Type      RouteType
	Cost      uint32
	Type2Cost uint32 // meaningful only for RouteExternalType2 (RFC 2328 Section 16.4)
	AreaID    uint32
	NextHops  []NextHop
}

// vertex is one node of the SPF tree during Dijkstra's algorithm
// (RFC 2328 Section 16.1): either a router (keyed by router-id) or a
// transit network (keyed by the Network-LSA's LS-ID, which is the DR's
// interface address).
type vertex struct {
	isRouter  bool
	routerID  uint32 // valid when isRouter
	networkID uint32 // valid when !isRouter: the Network-LSA LS-ID
	lsa       *LSA
	cost      uint32
	nextHops  []NextHop
	parent    *vertex
}

func (v *vertex) key() uint64 {
	if v.isRouter {
		return uint64(v.routerID) | 1<<32
	}
	return uint64(v.networkID)
}

// spfHeap is a min-heap of candidate vertices ordered by cost
// (RFC 2328 Section 16.1 "the next closest vertex"), the same
// container/heap idiom internal/sched's timer wheel uses.
type spfHeap []*vertex

func (h spfHeap) Len() int            { return len(h) }
func (h spfHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h spfHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *spfHeap) Push(x any)         { *h = append(*h, x.(*vertex)) }
func (h *spfHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// computeFullRoutingTable runs the three SPF stages in RFC 2328 Section 16
// order: intra-area (16.1), inter-area via Summary-LSAs (16.2), and
// AS-external (16.4). Stage two and three both depend on stage one's
// per-area shortest-path trees, so they cannot be pipelined across areas.
func (r *Router) computeFullRoutingTable() []Route {
	var all []Route
	areaTrees := make(map[uint32]map[uint64]*vertex, len(r.areas))

	for _, area := range r.areas {
		tree := r.runIntraAreaSPF(area)
		areaTrees[area.ID()] = tree
		all = append(all, routesFromTree(area, tree)...)
	}
	r.areaTrees = areaTrees

	all = append(all, r.computeInterAreaRoutes(areaTrees)...)
	all = mergeEqualCostRoutes(all)
	all = append(all, r.computeExternalRoutes(areaTrees)...)
	r.refreshVirtualLinks(areaTrees)
	return all
}

// runIntraAreaSPF builds the shortest-path tree rooted at this router for
// one area (RFC 2328 Section 16.1).
func (r *Router) runIntraAreaSPF(area *Area) map[uint64]*vertex {
	tree := make(map[uint64]*vertex)
	root := &vertex{isRouter: true, routerID: r.cfg.RouterID, cost: 0}
	if root.lsa = area.LSDB().Lookup(LSAKey{Type: LSTypeRouter, LSID: r.cfg.RouterID, AdvRouter: r.cfg.RouterID}); root.lsa == nil {
		return tree
	}
	tree[root.key()] = root

	pq := &spfHeap{root}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*vertex)
		for _, link := range r.linksOf(area, cur) {
			next, ok := r.resolveLinkTarget(area, cur, link)
			if !ok {
				continue
			}
			newCost := cur.cost + link.cost
			existing, seen := tree[next.key()]
			switch {
			case !seen:
				next.cost = newCost
				next.parent = cur
				next.nextHops = nextHopsVia(cur, link, area)
				tree[next.key()] = next
				heap.Push(pq, next)
			case newCost < existing.cost:
				existing.cost = newCost
				existing.parent = cur
				existing.nextHops = nextHopsVia(cur, link, area)
				heap.Push(pq, existing)
			case newCost == existing.cost:
				existing.nextHops = append(existing.nextHops, nextHopsVia(cur, link, area)...)
			}
		}
	}
	return tree
}

// spfLink is one outgoing edge discovered from a vertex's LSA.
type spfLink struct {
	toRouter  bool
	routerID  uint32
	networkID uint32
	linkData  uint32
	cost      uint32
}

// linksOf returns every outgoing edge from v's LSA (RFC 2328 Section 16.1
// step 2, "examine ... the links").
func (r *Router) linksOf(area *Area, v *vertex) []spfLink {
	if v.lsa == nil {
		return nil
	}
	var out []spfLink
	if v.isRouter {
		body := DecodeRouterLSABody(v.lsa.Body())
		for _, l := range body.Links {
			switch l.Type {
			case LinkPointToPoint, LinkVirtual:
				out = append(out, spfLink{toRouter: true, routerID: l.LinkID, linkData: l.LinkData, cost: uint32(l.Metric)})
			case LinkTransit:
				out = append(out, spfLink{toRouter: false, networkID: l.LinkID, linkData: l.LinkData, cost: uint32(l.Metric)})
			}
		}
		return out
	}
	body := DecodeNetworkLSABody(v.lsa.Body())
	for _, rid := range body.AttachedRouters {
		out = append(out, spfLink{toRouter: true, routerID: rid, cost: 0})
	}
	return out
}

// resolveLinkTarget finds the vertex for link's destination and validates
// the back-link per RFC 2328 Section 16.1 step 2 ("the neighboring vertex
// ... must also have a link back to vertex V"): a router-router edge is
// only valid if the neighbor's Router-LSA lists a point-to-point/virtual
// link to from; a router-network edge is only valid if the Network-LSA's
// attached-router list includes from; a network-router edge is only valid
// if the neighbor's Router-LSA has a transit link naming the network.
func (r *Router) resolveLinkTarget(area *Area, from *vertex, link spfLink) (*vertex, bool) {
	db := area.LSDB()
	if link.toRouter {
		lsa := db.Lookup(LSAKey{Type: LSTypeRouter, LSID: link.routerID, AdvRouter: link.routerID})
		if lsa == nil || !routerLSAHasBackLink(lsa, from) {
			return nil, false
		}
		return &vertex{isRouter: true, routerID: link.routerID, lsa: lsa}, true
	}
	var lsa *LSA
	for _, cand := range db.ByType(LSTypeNetwork) {
		if cand.Header.LSID == link.networkID && !cand.IsMaxAge() {
			lsa = cand
			break
		}
	}
	if lsa == nil || !from.isRouter {
		return nil, false
	}
	body := DecodeNetworkLSABody(lsa.Body())
	for _, rid := range body.AttachedRouters {
		if rid == from.routerID {
			return &vertex{isRouter: false, networkID: link.networkID, lsa: lsa}, true
		}
	}
	return nil, false
}

// routerLSAHasBackLink reports whether target's Router-LSA has a link back
// to from: a point-to-point/virtual link naming from's router-id when from
// is a router vertex, or a transit link naming from's network-id when from
// is a network (pseudo-node) vertex.
func routerLSAHasBackLink(target *LSA, from *vertex) bool {
	body := DecodeRouterLSABody(target.Body())
	for _, l := range body.Links {
		switch {
		case from.isRouter && (l.Type == LinkPointToPoint || l.Type == LinkVirtual) && l.LinkID == from.routerID:
			return true
		case !from.isRouter && l.Type == LinkTransit && l.LinkID == from.networkID:
			return true
		}
	}
	return false
}

// nextHopsVia computes the next-hop address/interface reached by
// traversing to a neighbor of cur (RFC 2328 Section 16.1 step 2, cases for
// the root and one-hop-from-root vertices).
func nextHopsVia(cur *vertex, link spfLink, area *Area) []NextHop {
	if cur.parent == nil {
		// cur is the root: the next hop is directly link.linkData (the
		// neighbor's interface address on a PtP link) reached via
		// whichever local interface shares that subnet.
		for _, iface := range area.Interfaces() {
			if !iface.cfg.Addr.IsValid() {
				continue
			}
			addr := netip.AddrFrom4(be32(link.linkData))
			if iface.cfg.Addr.Contains(addr) || iface.cfg.Type == IfTypePointToPoint || iface.cfg.Type == IfTypeVirtualLink {
				return []NextHop{{Addr: addr, Iface: iface}}
			}
		}
		return nil
	}
	return cur.nextHops
}

func be32(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// routesFromTree converts intra-area vertices into Routes for every stub
// network and transit network reachable in the tree (RFC 2328 Section 16.1
// step 3 "stub networks").
func routesFromTree(area *Area, tree map[uint64]*vertex) []Route {
	var out []Route
	for _, v := range tree {
		if v.isRouter {
			body := DecodeRouterLSABody(v.lsa.Body())
			for _, l := range body.Links {
				if l.Type != LinkStub {
					continue
				}
				mask := l.LinkData
				addr := netip.AddrFrom4(be32(l.LinkID))
				bits, ok := maskToBits(mask)
				if !ok {
					continue
				}
				out = append(out, Route{
					Prefix:   netip.PrefixFrom(addr, bits),
					Type:     RouteIntraArea,
					Cost:     v.cost + uint32(l.Metric),
					AreaID:   area.ID(),
					NextHops: v.nextHops,
				})
			}
			continue
		}
		body := DecodeNetworkLSABody(v.lsa.Body())
		bits, ok := maskToBits(body.NetworkMask)
		if !ok {
			continue
		}
		addr := netip.AddrFrom4(be32(v.networkID))
		out = append(out, Route{
			Prefix:   netip.PrefixFrom(addr, bits),
			Type:     RouteIntraArea,
			Cost:     v.cost,
			AreaID:   area.ID(),
			NextHops: v.nextHops,
		})
	}
	return out
}

func maskToBits(mask uint32) (int, bool) {
	bits := 0
	seenZero := false
	for i := 31; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			if seenZero {
				return 0, false
			}
			bits++
		} else {
			seenZero = true
		}
	}
	return bits, true
}

// mergeEqualCostRoutes combines routes for the same prefix+type that
// arose from multiple vertices onto a single entry with the union of next
// hops, keeping only the lowest cost (RFC 2328 Section 16.1 step 3 allows
// more than one internal route per network; we fold to ECMP).
func mergeEqualCostRoutes(routes []Route) []Route {
	type key struct {
		prefix netip.Prefix
		typ    RouteType
	}
	best := make(map[key]*Route)
	order := make([]key, 0, len(routes))
	for idx := range routes {
		rt := routes[idx]
		k := key{prefix: rt.Prefix, typ: rt.Type}
		cur, ok := best[k]
		if !ok {
			cp := rt
			best[k] = &cp
			order = append(order, k)
			continue
		}
		switch {
		case rt.Cost < cur.Cost:
			cp := rt
			best[k] = &cp
		case rt.Cost == cur.Cost:
			cur.NextHops = append(cur.NextHops, rt.NextHops...)
		}
	}
	out := make([]Route, 0, len(order))
	for _, k := range order {
		out = append(out, *best[k])
	}
	return out
}
