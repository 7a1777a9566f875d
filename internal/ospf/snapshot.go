package ospf

import "time"

// Call runs fn on the Router's event-loop goroutine and blocks until it
// completes. It is the one sanctioned way for an external reader (e.g.
// internal/adminapi's HTTP handlers) to inspect engine state without
// breaking the single-threaded invariant: Loop.Post is already safe to
// call from any goroutine, Call just waits for the posted callback to
// finish before returning.
func (r *Router) Call(fn func()) {
	done := make(chan struct{})
	r.loop.Post(func() {
		fn()
		close(done)
	})
	<-done
}

// NeighborSnapshot is a read-only view of a Neighbor.
type NeighborSnapshot struct {
	RouterID        string
	Address         string
	State           string
	Priority        uint8
	DeclaredDR      string
	DeclaredBDR     string
	LastStateChange time.Time
	Stats           NbrStats
}

// InterfaceSnapshot is a read-only view of an Interface and its neighbors.
type InterfaceSnapshot struct {
	Name      string
	Type      string
	Addr      string
	State     string
	DR        string
	BDR       string
	Cost      uint16
	Priority  uint8
	Neighbors []NeighborSnapshot
}

// AreaSnapshot is a read-only view of an Area and its interfaces.
type AreaSnapshot struct {
	ID         string
	Type       string
	Interfaces []InterfaceSnapshot
	LSACount   int
}

// LSASnapshot is a read-only view of one LSDB entry.
type LSASnapshot struct {
	Type      string
	LSID      string
	AdvRouter string
	Age       uint16
	SeqNum    int32
	Checksum  uint16
}

// RouteSnapshot is a read-only view of one computed routing table entry.
type RouteSnapshot struct {
	Prefix    string
	Type      string
	Cost      uint32
	Type2Cost uint32
	AreaID    string
	NextHops  []string
}

// AreaSnapshots returns a read-only view of every configured area,
// its interfaces, and their neighbors.
func (r *Router) AreaSnapshots() []AreaSnapshot {
	out := make([]AreaSnapshot, 0, len(r.areas))
	for _, a := range r.areas {
		out = append(out, snapshotArea(a))
	}
	return out
}

func snapshotArea(a *Area) AreaSnapshot {
	ifaces := a.Interfaces()
	snap := AreaSnapshot{
		ID:         AreaIDString(a.ID()),
		Type:       a.Type().String(),
		Interfaces: make([]InterfaceSnapshot, 0, len(ifaces)),
		LSACount:   len(a.LSDB().All()),
	}
	for _, iface := range ifaces {
		snap.Interfaces = append(snap.Interfaces, snapshotInterface(iface))
	}
	return snap
}

func snapshotInterface(iface *Interface) InterfaceSnapshot {
	neighbors := iface.Neighbors()
	snap := InterfaceSnapshot{
		Name:      iface.Name(),
		Type:      iface.Type().String(),
		Addr:      iface.Addr().String(),
		State:     iface.State().String(),
		DR:        RouterIDString(iface.DR()),
		BDR:       RouterIDString(iface.BDR()),
		Cost:      iface.Cost(),
		Priority:  iface.Priority(),
		Neighbors: make([]NeighborSnapshot, 0, len(neighbors)),
	}
	for _, n := range neighbors {
		snap.Neighbors = append(snap.Neighbors, NeighborSnapshot{
			RouterID:        RouterIDString(n.RouterID()),
			Address:         n.Address().String(),
			State:           n.State().String(),
			Priority:        n.Priority(),
			DeclaredDR:      RouterIDString(n.DeclaredDR()),
			DeclaredBDR:     RouterIDString(n.DeclaredBDR()),
			LastStateChange: n.LastStateChange(),
			Stats:           n.Stats(),
		})
	}
	return snap
}

// LSDBSnapshots returns a read-only view of every LSA in areaID's LSDB, or
// nil if the area is unknown.
func (r *Router) LSDBSnapshots(areaID uint32) []LSASnapshot {
	area := r.Area(areaID)
	if area == nil {
		return nil
	}
	entries := area.LSDB().All()
	out := make([]LSASnapshot, 0, len(entries))
	for _, lsa := range entries {
		out = append(out, LSASnapshot{
			Type:      lsa.Header.Type.String(),
			LSID:      RouterIDString(lsa.Header.LSID),
			AdvRouter: RouterIDString(lsa.Header.AdvRouter),
			Age:       lsa.Header.Age,
			SeqNum:    lsa.Header.SeqNum,
			Checksum:  lsa.Header.Checksum,
		})
	}
	return out
}

// RouteSnapshots returns a read-only view of the most recently computed
// routing table.
func (r *Router) RouteSnapshots() []RouteSnapshot {
	out := make([]RouteSnapshot, 0, len(r.routes))
	for _, route := range r.routes {
		nextHops := make([]string, 0, len(route.NextHops))
		for _, nh := range route.NextHops {
			nextHops = append(nextHops, nh.Addr.String())
		}
		out = append(out, RouteSnapshot{
			Prefix:    route.Prefix.String(),
			Type:      route.Type.String(),
			Cost:      route.Cost,
			Type2Cost: route.Type2Cost,
			AreaID:    AreaIDString(route.AreaID),
			NextHops:  nextHops,
		})
	}
	return out
}
