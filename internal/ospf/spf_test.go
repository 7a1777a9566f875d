package ospf

// Internal (white-box) test package: computeFullRoutingTable and
// runIntraAreaSPF are unexported, and exercising them through the public
// async Router.ScheduleSPF path would require driving the event loop on a
// separate goroutine and synchronizing on its completion. Both functions
// only read Area/LSDB state and never touch the event loop themselves, so
// calling them directly here is the more direct test.

import (
	"io"
	"log/slog"
	"net/netip"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ipToUint32(s string) uint32 {
	b := netip.MustParseAddr(s).As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// TestIntraAreaSPFTwoRouterTopology builds a two-router point-to-point
// topology by hand-installing Router-LSAs (no ISM/NSM adjacency forming is
// involved) and checks that the resulting intra-area routing table reaches
// the remote stub network at the expected accumulated cost and next hop.
func TestIntraAreaSPFTwoRouterTopology(t *testing.T) {
	logger := testLogger()
	area := NewArea(BackboneAreaID, AreaDefault, logger)

	localAddr := netip.MustParsePrefix("10.0.0.1/30")
	ifaceA := NewInterface(IfConfig{
		Name: "eth0", Type: IfTypePointToPoint, Addr: localAddr, Cost: 10,
	}, area, nil, logger)
	area.AddInterface(ifaceA)

	routerALSA := BuildLSA(LSAHeader{
		Type: LSTypeRouter, LSID: 1, AdvRouter: 1, SeqNum: InitialSequenceNumber,
	}, EncodeRouterLSABody(RouterLSABody{
		Bits: 0,
		Links: []RouterLink{
			{LinkID: 2, LinkData: ipToUint32("10.0.0.1"), Type: LinkPointToPoint, Metric: 10},
			{LinkID: ipToUint32("10.0.0.0"), LinkData: ipToUint32("255.255.255.252"), Type: LinkStub, Metric: 10},
		},
	}))
	routerBLSA := BuildLSA(LSAHeader{
		Type: LSTypeRouter, LSID: 2, AdvRouter: 2, SeqNum: InitialSequenceNumber,
	}, EncodeRouterLSABody(RouterLSABody{
		Bits: 0,
		Links: []RouterLink{
			{LinkID: 1, LinkData: ipToUint32("10.0.0.2"), Type: LinkPointToPoint, Metric: 10},
			{LinkID: ipToUint32("192.168.1.0"), LinkData: ipToUint32("255.255.255.0"), Type: LinkStub, Metric: 5},
		},
	}))
	area.LSDB().Install(routerALSA)
	area.LSDB().Install(routerBLSA)

	r := &Router{cfg: RouterConfig{RouterID: 1}, areas: map[uint32]*Area{area.ID(): area}}

	tree := r.runIntraAreaSPF(area)

	root, ok := tree[vertexKeyForRouter(1)]
	if !ok {
		t.Fatal("root router-id 1 missing from the computed tree")
	}
	if root.cost != 0 {
		t.Errorf("root cost = %d, want 0", root.cost)
	}

	remote, ok := tree[vertexKeyForRouter(2)]
	if !ok {
		t.Fatal("remote router-id 2 missing from the computed tree")
	}
	if remote.cost != 10 {
		t.Errorf("remote router cost = %d, want 10", remote.cost)
	}

	routes := routesFromTree(area, tree)

	var remoteStub *Route
	for idx := range routes {
		if routes[idx].Prefix == netip.MustParsePrefix("192.168.1.0/24") {
			remoteStub = &routes[idx]
		}
	}
	if remoteStub == nil {
		t.Fatalf("no route found for 192.168.1.0/24, got routes: %+v", routes)
	}
	if remoteStub.Cost != 15 {
		t.Errorf("192.168.1.0/24 cost = %d, want 15 (10 to reach router + 5 stub metric)", remoteStub.Cost)
	}
	if remoteStub.Type != RouteIntraArea {
		t.Errorf("192.168.1.0/24 route type = %v, want intra-area", remoteStub.Type)
	}
	if len(remoteStub.NextHops) != 1 || remoteStub.NextHops[0].Iface != ifaceA {
		t.Errorf("192.168.1.0/24 next hops = %+v, want one hop via ifaceA", remoteStub.NextHops)
	}
}

// TestRunIntraAreaSPFMissingOwnLSAIsEmpty covers the case where this
// router has not yet originated its own Router-LSA into the area: the
// tree must come back empty rather than panicking.
func TestRunIntraAreaSPFMissingOwnLSAIsEmpty(t *testing.T) {
	logger := testLogger()
	area := NewArea(BackboneAreaID, AreaDefault, logger)
	r := &Router{cfg: RouterConfig{RouterID: 1}, areas: map[uint32]*Area{area.ID(): area}}

	tree := r.runIntraAreaSPF(area)
	if len(tree) != 0 {
		t.Errorf("tree = %v, want empty when the root's own Router-LSA is absent", tree)
	}
}

func TestMaskToBits(t *testing.T) {
	tests := []struct {
		mask     uint32
		wantBits int
		wantOK   bool
	}{
		{0xffffffff, 32, true},
		{0xffffff00, 24, true},
		{0xfffffffc, 30, true},
		{0x00000000, 0, true},
		{0xff00ff00, 0, false}, // not a contiguous mask
	}
	for _, tt := range tests {
		bits, ok := maskToBits(tt.mask)
		if ok != tt.wantOK || (ok && bits != tt.wantBits) {
			t.Errorf("maskToBits(0x%08x) = (%d, %v), want (%d, %v)", tt.mask, bits, ok, tt.wantBits, tt.wantOK)
		}
	}
}

func TestMergeEqualCostRoutesKeepsLowestCostAndUnionsNextHops(t *testing.T) {
	prefix := netip.MustParsePrefix("10.1.1.0/24")
	ifaceX := &Interface{}
	ifaceY := &Interface{}

	routes := []Route{
		{Prefix: prefix, Type: RouteIntraArea, Cost: 20, NextHops: []NextHop{{Iface: ifaceX}}},
		{Prefix: prefix, Type: RouteIntraArea, Cost: 10, NextHops: []NextHop{{Iface: ifaceY}}},
	}
	merged := mergeEqualCostRoutes(routes)
	if len(merged) != 1 {
		t.Fatalf("mergeEqualCostRoutes returned %d entries, want 1", len(merged))
	}
	if merged[0].Cost != 10 {
		t.Errorf("merged cost = %d, want the lower of the two (10)", merged[0].Cost)
	}
	if len(merged[0].NextHops) != 1 || merged[0].NextHops[0].Iface != ifaceY {
		t.Errorf("merged next hops = %+v, want only the winning (lower-cost) route's hop", merged[0].NextHops)
	}

	equalCost := []Route{
		{Prefix: prefix, Type: RouteIntraArea, Cost: 10, NextHops: []NextHop{{Iface: ifaceX}}},
		{Prefix: prefix, Type: RouteIntraArea, Cost: 10, NextHops: []NextHop{{Iface: ifaceY}}},
	}
	mergedEqual := mergeEqualCostRoutes(equalCost)
	if len(mergedEqual) != 1 || len(mergedEqual[0].NextHops) != 2 {
		t.Fatalf("mergeEqualCostRoutes on equal-cost routes = %+v, want one entry with both next hops", mergedEqual)
	}
}
