package ospf

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/go-ospfd/ospfd/internal/sched"
)

// RouteInstaller receives the SPF/ABR computed routing table for export to
// the kernel RIB. Implemented by internal/ribclient; kept as a local
// interface here to avoid an import cycle between internal/ospf and
// internal/ribclient.
type RouteInstaller interface {
	Install(routes []Route)
}

// OutputDispatcher delivers one interface's queued outbound packets to the
// network.
type OutputDispatcher interface {
	Flush(iface *Interface)
}

// RouterConfig holds the attributes of the OSPF process as a whole
type RouterConfig struct {
	RouterID uint32
	ABRType  ABRType

	// RFC1583Compat selects the pre-Section-16.4 (RFC 1583) external-path
	// preference rule instead of the RFC 2328 Section 16.4 rule.
	RFC1583Compat bool

	// SPFDelay is the quiet period after the first trigger before an SPF
	// run fires, coalescing bursts of LSA changes into one run
	// (RFC 2328 Section 16.5 recommends a short delay; Quagga default 0s
	// for the initial timer with an exponential backoff on flaps -- this
	// implementation uses a fixed delay, see SPFHoldtime).
	SPFDelay time.Duration

	// SPFHoldtime is the minimum interval between successive SPF runs.
	SPFHoldtime time.Duration
}

// Router is the single OSPF process instance, owning every Area and the
// cooperative event loop that drives the whole engine.
type Router struct {
	cfg    RouterConfig
	logger *slog.Logger
	loop   *sched.Loop

	areas map[uint32]*Area

	installer RouteInstaller
	output    OutputDispatcher

	spfPending   map[uint32]*sched.Task // area id -> debounce task
	lastSPFRun   time.Time
	abrPending   bool

	ageTask *sched.Task

	routes []Route

	// areaTrees holds the most recent per-area intra-area SPF tree,
	// keyed by vertex.key(); runABRExport's type-4 (Summary-ASBR) export
	// reads the ASBR's vertex cost straight out of it rather than
	// approximating from the Routes table.
	areaTrees map[uint32]map[uint64]*vertex
}

// NewRouter constructs a Router bound to loop. installer and output may be
// nil during tests that only exercise FSM/LSDB logic.
func NewRouter(cfg RouterConfig, loop *sched.Loop, installer RouteInstaller, output OutputDispatcher, logger *slog.Logger) *Router {
	if cfg.SPFDelay == 0 {
		cfg.SPFDelay = 200 * time.Millisecond
	}
	if cfg.SPFHoldtime == 0 {
		cfg.SPFHoldtime = 1 * time.Second
	}
	r := &Router{
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "ospf.router")),
		loop:       loop,
		areas:      make(map[uint32]*Area),
		installer:  installer,
		output:     output,
		spfPending: make(map[uint32]*sched.Task),
	}
	r.ageTask = loop.Every(time.Second, r.tickLSDBAges)
	return r
}

// RouterID returns the configured OSPF router identifier.
func (r *Router) RouterID() uint32 { return r.cfg.RouterID }

// ABRType returns the configured ABR compatibility flavor.
func (r *Router) ABRType() ABRType { return r.cfg.ABRType }

// Loop returns the cooperative event loop every Interface/Neighbor
// schedules timers on.
func (r *Router) Loop() *sched.Loop { return r.loop }

// IsABR reports whether this router has active interfaces in more than one
// area, one of which is the backbone or reachable via a virtual link
// (RFC 2328 Section 3 "area border routers").
func (r *Router) IsABR() bool {
	attached := 0
	backbone := false
	for _, a := range r.areas {
		if len(a.Interfaces()) == 0 {
			continue
		}
		attached++
		if a.IsBackbone() {
			backbone = true
		}
	}
	return attached > 1 && backbone
}

// Options returns the Option bits this router advertises on interfaces or
// LSA headers within area (RFC 2328 Section 9.5 table 13, Section 12.1.2).
// Stub areas never set the E-bit; NSSAs set the N/P-bit instead.
func (r *Router) Options(area *Area) Options {
	opts := OptionEA
	switch area.Type() {
	case AreaStub:
		return opts
	case AreaNSSA:
		return opts | OptionNP
	default:
		return opts | OptionE
	}
}

// AddArea registers area under the router.
func (r *Router) AddArea(area *Area) {
	r.areas[area.ID()] = area
}

// Area returns the area with the given id, or nil.
func (r *Router) Area(id uint32) *Area {
	return r.areas[id]
}

// Areas returns every configured area.
func (r *Router) Areas() []*Area {
	out := make([]*Area, 0, len(r.areas))
	for _, a := range r.areas {
		out = append(out, a)
	}
	return out
}

// InterfaceByIndex finds the interface with the given kernel ifindex
// across every attached area, used by internal/netio to demux an inbound
// packet's IP_PKTINFO ifindex back to the Interface that should process it.
func (r *Router) InterfaceByIndex(idx int) (*Interface, bool) {
	for _, a := range r.areas {
		for _, iface := range a.Interfaces() {
			if iface.IfIndex() == idx {
				return iface, true
			}
		}
	}
	return nil, false
}

// NotifyOutputReady informs the dispatcher that iface has packets queued
func (r *Router) NotifyOutputReady(iface *Interface) {
	if r.output != nil {
		r.output.Flush(iface)
	}
}

// ScheduleSPF debounces a full SPF run for area, coalescing a burst of LSA
// changes into a single recomputation after SPFDelay. A full run always
// recomputes every area's intra-area routes since inter-area/external
// stages depend on all of them; area is accepted for logging/attribution
// only.
func (r *Router) ScheduleSPF(area *Area) {
	id := uint32(0)
	if area != nil {
		id = area.ID()
	}
	if _, pending := r.spfPending[id]; pending {
		return
	}
	r.spfPending[id] = r.loop.After(r.cfg.SPFDelay, func() {
		delete(r.spfPending, id)
		r.runSPF()
	})
}

func (r *Router) runSPF() {
	if since := time.Since(r.lastSPFRun); since < r.cfg.SPFHoldtime {
		r.loop.After(r.cfg.SPFHoldtime-since, func() { r.runSPF() })
		return
	}
	r.lastSPFRun = time.Now()

	r.refreshSelfOriginated()
	routes := r.computeFullRoutingTable()
	r.routes = routes
	if r.installer != nil {
		r.installer.Install(routes)
	}
	r.ScheduleABRTask()
}

// ScheduleABRTask debounces the ABR Summary-LSA export procedure, run once
// per event-loop tick regardless of how many areas/adjacencies changed.
func (r *Router) ScheduleABRTask() {
	if r.abrPending {
		return
	}
	r.abrPending = true
	r.loop.Post(func() {
		r.abrPending = false
		if r.IsABR() {
			r.runABRExport()
			r.runNSSATranslation()
		}
	})
}

// Routes returns the most recently computed routing table.
func (r *Router) Routes() []Route {
	return r.routes
}

func (r *Router) tickLSDBAges() {
	for _, a := range r.areas {
		a.LSDB().Tick()
	}
}

// routerIDFromAddr parses a dotted-quad router-id/area-id string back into
// its wire uint32 form, the inverse of AreaIDString/RouterIDString.
func routerIDFromAddr(s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, err
	}
	b := addr.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}
