package ospf

import (
	"log/slog"
	"net/netip"
	"sort"
)

// RangeEffect controls how an address range is handled at an ABR
// (RFC 2328 Section 3.5 "area range").
type RangeEffect uint8

// Range effects.
const (
	// RangeAdvertise aggregates every contained prefix into a single
	// Summary-LSA for the range itself.
	RangeAdvertise RangeEffect = iota
	// RangeSuppress (area-range ... not-advertise) hides every contained
	// prefix; no Summary-LSA is generated for the range at all.
	RangeSuppress
)

// AreaRange is one configured area-range aggregate.
type AreaRange struct {
	Prefix netip.Prefix
	Effect RangeEffect
	Cost   uint32 // explicit cost override; 0 means "use the max contained cost"
}

// Area is one OSPF area.
type Area struct {
	id     uint32
	typ    AreaType
	logger *slog.Logger

	ifaces []*Interface
	ranges []AreaRange

	lsdb *LSDB

	// stubDefaultCost is the cost advertised in the Type-3 default route a
	// stub/NSSA ABR originates into the area (RFC 2328 Section 12.4.3).
	stubDefaultCost uint32
}

// NewArea constructs an Area with an empty LSDB.
func NewArea(id uint32, typ AreaType, logger *slog.Logger) *Area {
	l := logger.With(slog.String("area", AreaIDString(id)))
	return &Area{
		id:     id,
		typ:    typ,
		logger: l,
		lsdb:   NewLSDB(ScopeArea, l),
	}
}

// ID returns the area identifier.
func (a *Area) ID() uint32 { return a.id }

// Type reports whether this is the backbone, a normal area, a stub, or an
// NSSA.
func (a *Area) Type() AreaType { return a.typ }

// IsBackbone reports whether this is Area 0.0.0.0.
func (a *Area) IsBackbone() bool { return a.id == 0 }

// LSDB returns the area-scoped link-state database.
func (a *Area) LSDB() *LSDB { return a.lsdb }

// Interfaces returns the interfaces assigned to this area.
func (a *Area) Interfaces() []*Interface { return a.ifaces }

// AddInterface assigns iface to this area.
func (a *Area) AddInterface(iface *Interface) {
	a.ifaces = append(a.ifaces, iface)
}

// SetRanges replaces the configured area-range list.
func (a *Area) SetRanges(ranges []AreaRange) {
	sorted := make([]AreaRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Prefix.Bits() > sorted[j].Prefix.Bits() // longest prefix first
	})
	a.ranges = sorted
}

// Ranges returns the configured area-range list, longest-prefix first.
func (a *Area) Ranges() []AreaRange { return a.ranges }

// MatchRange returns the most specific configured range containing p, and
// whether one was found.
func (a *Area) MatchRange(p netip.Prefix) (AreaRange, bool) {
	for _, r := range a.ranges {
		if r.Prefix.Contains(p.Addr()) && r.Prefix.Bits() <= p.Bits() {
			return r, true
		}
	}
	return AreaRange{}, false
}

// HasAttachedRouters reports whether any active adjacency in this area is
// Full, used by the ABR export procedure to decide whether to withdraw the
// area's summaries entirely (RFC 2328 Section 16.2 step 1).
func (a *Area) HasAttachedRouters() bool {
	for _, iface := range a.ifaces {
		for _, n := range iface.neighbors {
			if n.State() == NbrFull {
				return true
			}
		}
	}
	return false
}

// AreaIDString renders a 32-bit area id in dotted-quad form, matching the
// convention used throughout logging and the admin API.
func AreaIDString(id uint32) string {
	return netip.AddrFrom4([4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}).String()
}

// RouterIDString renders a router-id in dotted-quad form.
func RouterIDString(id uint32) string {
	return AreaIDString(id)
}
