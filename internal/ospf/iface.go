package ospf

import (
	"log/slog"
	"net/netip"
	"sort"
	"time"

	"github.com/go-ospfd/ospfd/internal/sched"
)

// IfType classifies the link an Interface runs over.
type IfType uint8

// Interface link types.
const (
	IfTypeBroadcast IfType = iota
	IfTypeNBMA
	IfTypePointToPoint
	IfTypePointToMultipoint
	IfTypeVirtualLink
	IfTypeLoopback
)

// String returns the human-readable link type name.
func (t IfType) String() string {
	switch t {
	case IfTypeBroadcast:
		return "Broadcast"
	case IfTypeNBMA:
		return "NBMA"
	case IfTypePointToPoint:
		return "PointToPoint"
	case IfTypePointToMultipoint:
		return "PointToMultipoint"
	case IfTypeVirtualLink:
		return "VirtualLink"
	case IfTypeLoopback:
		return "Loopback"
	default:
		return "Unknown"
	}
}

// IfConfig holds the configured, as opposed to derived, attributes of an
// Interface.
type IfConfig struct {
	Name             string
	Type             IfType
	Addr             netip.Prefix
	Cost             uint16
	Priority         uint8
	HelloInterval    time.Duration
	RouterDeadInterval time.Duration
	RxmtInterval     time.Duration
	TransmitDelay    time.Duration
	Passive          bool
	MTU              uint16
	AuthType         AuthType
	AuthSimpleKey    []byte
	AuthMD5Keys      map[uint8][]byte // key id -> key, supports rollover
	AuthMD5ActiveKey uint8

	// VirtualLink fields, meaningful only when Type == IfTypeVirtualLink.
	TransitAreaID uint32
	PeerRouterID  uint32
}

// Interface is one OSPF-enabled link.
type Interface struct {
	cfg IfConfig

	area   *Area
	router *Router
	logger *slog.Logger

	state IfState

	// DR/BDR as elected (RFC 2328 Section 9.4). Zero value means "none".
	dr, bdr uint32

	neighbors map[string]*Neighbor // keyed by IP on broadcast/NBMA, by router-id (as string) on PtP/VL

	outFIFO     []*outboundPacket
	delayedAcks []LSAHeader

	helloTask    *sched.Task
	waitTask     *sched.Task
	ackTask      *sched.Task
	flushTask    *sched.Task

	// vlOperational is true once a virtual link's transit-area path is up
	vlOperational bool
	vlNextHop     netip.Addr
	vlIfIndex     int

	ifIndex int
	ifName  string

	stats IfStats
}

// IfStats are interface packet counters.
type IfStats struct {
	HellosSent, HellosRecv         uint64
	DBDSent, DBDRecv               uint64
	LSRequestSent, LSRequestRecv   uint64
	LSUpdateSent, LSUpdateRecv     uint64
	LSAckSent, LSAckRecv           uint64
	Discards                       uint64
}

type outboundPacket struct {
	dst     netip.Addr
	payload []byte
}

// Dst returns the destination address of an outbound packet (exported so
// internal/netio, which has no visibility into this unexported type's
// fields, can still drive transmission via PopOutbound).
func (p *outboundPacket) Dst() netip.Addr { return p.dst }

// Payload returns the wire bytes of an outbound packet.
func (p *outboundPacket) Payload() []byte { return p.payload }

// NewInterface constructs an Interface in state Down, owned by area.
func NewInterface(cfg IfConfig, area *Area, router *Router, logger *slog.Logger) *Interface {
	if cfg.HelloInterval == 0 {
		cfg.HelloInterval = 10 * time.Second
	}
	if cfg.RouterDeadInterval == 0 {
		cfg.RouterDeadInterval = 4 * cfg.HelloInterval
	}
	if cfg.RxmtInterval == 0 {
		cfg.RxmtInterval = RxmtIntervalDefault
	}
	if cfg.MTU == 0 {
		cfg.MTU = 1500
	}
	return &Interface{
		cfg:       cfg,
		area:      area,
		router:    router,
		logger:    logger.With(slog.String("iface", cfg.Name)),
		state:     IfStateDown,
		neighbors: make(map[string]*Neighbor),
		ifName:    cfg.Name,
	}
}

// State returns the current ISM state.
func (i *Interface) State() IfState { return i.state }

// DR reports the elected designated router's router-id, or 0 if none.
func (i *Interface) DR() uint32 { return i.dr }

// BDR reports the elected backup designated router's router-id, or 0 if none.
func (i *Interface) BDR() uint32 { return i.bdr }

// IsDRorBDR reports whether this router is the DR or BDR on the interface.
func (i *Interface) IsDRorBDR() bool {
	return i.state == IfStateDR || i.state == IfStateBackup
}

// Cost returns the configured output cost for the interface.
func (i *Interface) Cost() uint16 { return i.cfg.Cost }

// Type returns the configured link type.
func (i *Interface) Type() IfType { return i.cfg.Type }

// Addr returns the configured local address/netmask prefix.
func (i *Interface) Addr() netip.Prefix { return i.cfg.Addr }

// Priority returns the configured router priority.
func (i *Interface) Priority() uint8 { return i.cfg.Priority }

// Neighbors returns every neighbor currently tracked on this interface, used
// by internal/adminapi for read-only introspection.
func (i *Interface) Neighbors() []*Neighbor {
	out := make([]*Neighbor, 0, len(i.neighbors))
	for _, n := range i.neighbors {
		out = append(out, n)
	}
	return out
}

// Name returns the configured interface name, used by internal/netio to bind the raw socket
// and by internal/adminapi for introspection.
func (i *Interface) Name() string { return i.cfg.Name }

// IfIndex returns the kernel interface index set by internal/netio after
// the raw socket for this interface is opened.
func (i *Interface) IfIndex() int { return i.ifIndex }

// SetIfIndex records the kernel interface index (called once by
// internal/netio at startup).
func (i *Interface) SetIfIndex(idx int) { i.ifIndex = idx }

// Deliver applies one event to the ISM at once and executes its actions.
// Always invoked from the event loop, never concurrently.
func (i *Interface) Deliver(event IfEvent) {
	result := ApplyISMEvent(i.state, event)
	old := i.state
	i.state = result.NewState

	if result.Changed {
		i.logger.Info("ISM transition",
			slog.String("event", event.String()),
			slog.String("old_state", old.String()),
			slog.String("new_state", i.state.String()),
		)
	}

	for _, action := range result.Actions {
		i.runAction(action, event)
	}

	if result.Changed && (old == IfStateDR || old == IfStateBackup || i.state == IfStateDR || i.state == IfStateBackup) {
		i.router.ScheduleABRTask()
	}
}

// runAction executes one ISM side effect.
func (i *Interface) runAction(action IfAction, event IfEvent) {
	switch action {
	case IfActionStartHello:
		i.startHelloTimer()
		if i.cfg.Type == IfTypeBroadcast || i.cfg.Type == IfTypeNBMA {
			i.startWaitTimer()
		} else {
			// PointToPoint/PointToMultipoint/VirtualLink skip election.
			i.state = IfStatePointToPoint
		}
	case IfActionElectDR:
		i.runElection()
	case IfActionResetNeighbors:
		i.cancelTimers()
		for _, n := range i.neighbors {
			n.Deliver(NbrEventKillNbr)
		}
	case IfActionReevaluateAdjacencies:
		i.reevaluateAdjacencies()
	}
	_ = event
}

func (i *Interface) cancelTimers() {
	i.helloTask = sched.CancelAndClear(i.helloTask)
	i.waitTask = sched.CancelAndClear(i.waitTask)
	i.ackTask = sched.CancelAndClear(i.ackTask)
}

func (i *Interface) startHelloTimer() {
	i.helloTask = i.router.Loop().Every(i.cfg.HelloInterval, func() {
		i.SendHello()
	})
}

func (i *Interface) startWaitTimer() {
	i.waitTask = i.router.Loop().After(i.cfg.RouterDeadInterval, func() {
		i.Deliver(IfEventWaitTimer)
	})
}

// eligibleCandidate is a snapshot of one DR election participant
// (RFC 2328 Section 9.4).
type eligibleCandidate struct {
	routerID uint32
	priority uint8
	declaredDR, declaredBDR uint32
	self     bool
}

// runElection applies the RFC 2328 Section 9.4 two-step algorithm.
// Re-entrant: if the local router's own role changes across the two steps,
// Section 9.4(5) requires re-running the whole calculation once.
func (i *Interface) runElection() {
	if i.cfg.Priority == 0 && i.state != IfStateWaiting {
		// Priority-0 routers never become DR/BDR and do not participate
		// beyond being counted as "seen" by others (RFC 2328 Section 9.4).
	}

	prevDR, prevBDR := i.dr, i.bdr
	prevState := i.state

	for attempt := 0; attempt < 2; attempt++ {
		candidates := i.electionCandidates()
		newBDR := electBDR(candidates)
		newDR := electDR(candidates, newBDR)

		i.dr, i.bdr = newDR, newBDR
		newState := i.roleForElection()

		if attempt == 1 || newState == prevState {
			i.state = newState
			break
		}
		// Section 9.4(5): role changed (e.g. we became DR/BDR); redo once
		// with our own declared role now reflecting the new state.
		prevState = newState
		i.state = newState
	}

	if i.dr != prevDR || i.bdr != prevBDR {
		i.logger.Info("DR election result",
			slog.Uint64("dr", uint64(i.dr)), slog.Uint64("bdr", uint64(i.bdr)))
		i.reevaluateAdjacencies()
		i.router.ScheduleABRTask()
	}
}

func (i *Interface) electionCandidates() []eligibleCandidate {
	candidates := make([]eligibleCandidate, 0, len(i.neighbors)+1)
	if i.cfg.Priority > 0 {
		candidates = append(candidates, eligibleCandidate{
			routerID: i.router.RouterID(), priority: i.cfg.Priority,
			declaredDR: i.selfDeclaredDR(), declaredBDR: i.selfDeclaredBDR(), self: true,
		})
	}
	for _, n := range i.neighbors {
		if n.priority == 0 || n.state < NbrTwoWay {
			continue
		}
		candidates = append(candidates, eligibleCandidate{
			routerID: n.routerID, priority: n.priority,
			declaredDR: n.declaredDR, declaredBDR: n.declaredBDR,
		})
	}
	return candidates
}

func (i *Interface) selfDeclaredDR() uint32 {
	if i.state == IfStateDR {
		return i.router.RouterID()
	}
	return i.dr
}

func (i *Interface) selfDeclaredBDR() uint32 {
	if i.state == IfStateBackup {
		return i.router.RouterID()
	}
	return i.bdr
}

// electBDR implements RFC 2328 Section 9.4 step 1: among routers that do
// not declare themselves DR, pick the one declaring itself BDR with the
// highest priority (router-id tie-break); if none declares itself BDR,
// pick the highest-priority non-DR-declaring router.
func electBDR(candidates []eligibleCandidate) uint32 {
	var declaring []eligibleCandidate
	var notDR []eligibleCandidate
	for _, c := range candidates {
		if c.declaredDR == c.routerID {
			continue
		}
		notDR = append(notDR, c)
		if c.declaredBDR == c.routerID {
			declaring = append(declaring, c)
		}
	}
	if len(declaring) > 0 {
		return highestPriority(declaring)
	}
	if len(notDR) > 0 {
		return highestPriority(notDR)
	}
	return 0
}

// electDR implements RFC 2328 Section 9.4 step 2: among routers declaring
// themselves DR, pick the highest priority; if none, the BDR just elected
// becomes DR.
func electDR(candidates []eligibleCandidate, bdr uint32) uint32 {
	var declaring []eligibleCandidate
	for _, c := range candidates {
		if c.declaredDR == c.routerID {
			declaring = append(declaring, c)
		}
	}
	if len(declaring) > 0 {
		return highestPriority(declaring)
	}
	return bdr
}

func highestPriority(candidates []eligibleCandidate) uint32 {
	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].priority != candidates[b].priority {
			return candidates[a].priority > candidates[b].priority
		}
		return candidates[a].routerID > candidates[b].routerID
	})
	return candidates[0].routerID
}

func (i *Interface) roleForElection() IfState {
	switch {
	case i.dr == i.router.RouterID():
		return IfStateDR
	case i.bdr == i.router.RouterID():
		return IfStateBackup
	default:
		return IfStateDROther
	}
}

// reevaluateAdjacencies re-derives adjacency-worthiness for every neighbor
// after a DR/BDR change (RFC 2328 Section 9.2, "Whenever a router's view of
// the Designated Router ... changes, ... the set of adjacencies ...
// must be reexamined").
func (i *Interface) reevaluateAdjacencies() {
	for _, n := range i.neighbors {
		if n.state < NbrTwoWay {
			continue
		}
		localRole := DRRoleOther
		if i.state == IfStateDR {
			localRole = DRRoleDR
		} else if i.state == IfStateBackup {
			localRole = DRRoleBackup
		}
		remoteRole := DRRoleOther
		if n.routerID == i.dr {
			remoteRole = DRRoleDR
		} else if n.routerID == i.bdr {
			remoteRole = DRRoleBackup
		}
		worthy := IsAdjacencyWorthy(i.cfg.Type, localRole, remoteRole)
		if worthy && n.state == NbrTwoWay {
			n.Deliver(NbrEventAdjOK)
		} else if !worthy && n.state > NbrTwoWay {
			n.Deliver(NbrEventAdjOK) // handler drops back to 2-Way
		}
	}
}

// QueueAck appends an LSA header to the delayed-ack batch, flushing
// immediately if the batch would overflow MTU.
func (i *Interface) QueueAck(h LSAHeader) {
	i.delayedAcks = append(i.delayedAcks, h)
	if (len(i.delayedAcks)+1)*LSAHeaderSize+HeaderSize > int(i.cfg.MTU) {
		i.FlushAcks()
		return
	}
	if i.ackTask == nil {
		i.ackTask = i.router.Loop().After(lsAckInterval, i.FlushAcks)
	}
}

const lsAckInterval = 1 * time.Second

// FlushAcks sends one LSAck packet containing all batched headers.
func (i *Interface) FlushAcks() {
	if len(i.delayedAcks) == 0 {
		i.ackTask = nil
		return
	}
	pkt := EncodeLSAck(i.router.RouterID(), i.area.ID(), i.delayedAcks)
	i.enqueue(i.multicastDest(), pkt)
	i.delayedAcks = nil
	i.ackTask = nil
}

func (i *Interface) multicastDest() netip.Addr {
	if i.state == IfStateDR || i.state == IfStateBackup {
		return netip.MustParseAddr(AllSPFRoutersIP)
	}
	return netip.MustParseAddr(AllSPFRoutersIP)
}

// enqueue pushes a packet to the tail of the interface output FIFO
func (i *Interface) enqueue(dst netip.Addr, payload []byte) {
	i.outFIFO = append(i.outFIFO, &outboundPacket{dst: dst, payload: payload})
	i.router.NotifyOutputReady(i)
}

// PopOutbound removes and returns the head of the output FIFO, or nil if
// empty.
func (i *Interface) PopOutbound() *outboundPacket {
	if len(i.outFIFO) == 0 {
		return nil
	}
	p := i.outFIFO[0]
	i.outFIFO = i.outFIFO[1:]
	return p
}
