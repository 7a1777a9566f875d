package ospf

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/go-ospfd/ospfd/internal/sched"
)

// Neighbor is one adjacency candidate/peer on an Interface.
type Neighbor struct {
	iface  *Interface
	logger *slog.Logger

	routerID   uint32
	srcAddr    netip.Addr
	options    Options
	declaredDR, declaredBDR uint32
	priority   uint8

	state NbrState

	// DD exchange state (RFC 2328 Section 10.6-10.8).
	ddSeq      uint32
	isMaster   bool
	lastDBD    []byte // last DBD sent, for retransmission on duplicate
	lastRecvDBDFingerprint uint32

	summaryList    []LSAKey // headers to announce during Exchange
	requestList    []LSAKey
	retransmitList map[LSAKey]time.Time // key -> time added, for RxmtInterval throttling

	cryptoSeq     uint32
	lastCryptoSeq uint32

	inactivityTask *sched.Task
	ddTask         *sched.Task
	lsrTask        *sched.Task
	rxmtTask       *sched.Task

	stats NbrStats

	lastStateChange time.Time
}

// NbrStats are per-neighbor packet/transition counters.
type NbrStats struct {
	PacketsSent, PacketsReceived uint64
	StateTransitions             uint64
}

// NewNeighbor constructs a Neighbor in state Down.
func NewNeighbor(iface *Interface, routerID uint32, src netip.Addr, logger *slog.Logger) *Neighbor {
	return &Neighbor{
		iface:          iface,
		routerID:       routerID,
		srcAddr:        src,
		state:          NbrDown,
		retransmitList: make(map[LSAKey]time.Time),
		logger: logger.With(
			slog.String("iface", iface.cfg.Name),
			slog.Uint64("neighbor", uint64(routerID)),
		),
	}
}

// State returns the current NSM state.
func (n *Neighbor) State() NbrState { return n.state }

// RouterID returns the neighbor's router-id.
func (n *Neighbor) RouterID() uint32 { return n.routerID }

// Address returns the source IP address this neighbor was last heard from.
func (n *Neighbor) Address() netip.Addr { return n.srcAddr }

// Priority returns the router priority last seen in this neighbor's Hello.
func (n *Neighbor) Priority() uint8 { return n.priority }

// DeclaredDR returns the DR this neighbor last declared in its Hello.
func (n *Neighbor) DeclaredDR() uint32 { return n.declaredDR }

// DeclaredBDR returns the BDR this neighbor last declared in its Hello.
func (n *Neighbor) DeclaredBDR() uint32 { return n.declaredBDR }

// Stats returns a copy of this neighbor's packet/transition counters.
func (n *Neighbor) Stats() NbrStats { return n.stats }

// LastStateChange returns when this neighbor's NSM state last changed.
func (n *Neighbor) LastStateChange() time.Time { return n.lastStateChange }

// Deliver applies one NSM event, handling the state-independent teardown
// events before consulting the transition table (RFC 2328 Section 10.2).
func (n *Neighbor) Deliver(event NbrEvent) {
	switch event {
	case NbrEvent1WayReceived:
		n.transition(NbrInit, nil)
		n.teardownAdjacency()
		return
	case NbrEventKillNbr, NbrEventLLDown, NbrEventInactivityTimer:
		diag := event
		n.transition(NbrDown, nil)
		n.teardownAdjacency()
		if diag == NbrEventInactivityTimer {
			n.logger.Warn("neighbor inactivity timeout")
		}
		return
	}

	result := ApplyNSMEvent(n.state, event)
	n.transition(result.NewState, result.Actions)
}

func (n *Neighbor) transition(newState NbrState, actions []NbrAction) {
	old := n.state
	changed := old != newState
	n.state = newState
	if changed {
		n.stats.StateTransitions++
		n.lastStateChange = time.Now()
		n.logger.Info("NSM transition",
			slog.String("old_state", old.String()), slog.String("new_state", newState.String()))
		n.iface.Deliver(IfEventNeighborChange)
	}
	for _, a := range actions {
		n.runAction(a)
	}
	if changed && (old == NbrFull || newState == NbrFull) {
		n.iface.router.ScheduleSPF(n.iface.area)
	}
}

func (n *Neighbor) runAction(action NbrAction) {
	switch action {
	case NbrActionStartInactivity:
		n.rearmInactivity()
	case NbrActionClearLists:
		n.clearLists()
	case NbrActionCancelTimers:
		n.cancelAllTimers()
	case NbrActionStartExStart:
		n.startExStart()
	case NbrActionGenerateDBD:
		n.sendNextDBD()
	case NbrActionScheduleSPF:
		n.iface.router.ScheduleSPF(n.iface.area)
	case NbrActionReevaluateISM:
		n.iface.Deliver(IfEventNeighborChange)
	}
}

func (n *Neighbor) rearmInactivity() {
	n.inactivityTask = sched.CancelAndClear(n.inactivityTask)
	n.inactivityTask = n.iface.router.Loop().After(n.iface.cfg.RouterDeadInterval, func() {
		n.Deliver(NbrEventInactivityTimer)
	})
}

// teardownAdjacency cancels all timers and empties all three lists,
// releasing LSDB retransmit references.
func (n *Neighbor) teardownAdjacency() {
	n.cancelAllTimers()
	n.clearLists()
}

func (n *Neighbor) cancelAllTimers() {
	n.inactivityTask = sched.CancelAndClear(n.inactivityTask)
	n.ddTask = sched.CancelAndClear(n.ddTask)
	n.lsrTask = sched.CancelAndClear(n.lsrTask)
	n.rxmtTask = sched.CancelAndClear(n.rxmtTask)
}

func (n *Neighbor) clearLists() {
	db := n.iface.area.LSDB()
	for key := range n.retransmitList {
		db.ReleaseRetransmitRef(key)
	}
	n.retransmitList = make(map[LSAKey]time.Time)
	n.summaryList = nil
	n.requestList = nil
}

// startExStart begins master/slave negotiation (RFC 2328 Section 10.8).
func (n *Neighbor) startExStart() {
	n.ddSeq++
	n.isMaster = true // provisional; resolved when the peer's DBD is seen
	pkt := DBDPacket{
		MTU:     n.iface.cfg.MTU,
		Options: n.iface.router.Options(n.iface.area),
		Flags:   DBDFlagI | DBDFlagM | DBDFlagMS,
		SeqNum:  n.ddSeq,
	}
	n.sendDBD(pkt)
	n.ddTask = n.iface.router.Loop().Every(n.iface.cfg.RxmtInterval, func() {
		if n.state != NbrExStart {
			n.ddTask = sched.CancelAndClear(n.ddTask)
			return
		}
		n.sendDBD(pkt)
	})
}

func (n *Neighbor) sendDBD(pkt DBDPacket) {
	wire := EncodeDBD(n.iface.router.RouterID(), n.iface.area.ID(), pkt)
	n.lastDBD = wire
	n.iface.enqueue(n.srcAddr, wire)
	n.stats.PacketsSent++
	n.iface.stats.DBDSent++
}

// sendNextDBD is invoked when Exchange begins (NegotiationDone) and after
// each master-driven round: Master increments seq and sends the next
// window of summary-list headers, Slave resends its last DBD only on
// duplicate detection (handled in handleDBD).
func (n *Neighbor) sendNextDBD() {
	const maxHeadersPerDBD = 32

	more := len(n.summaryList) > maxHeadersPerDBD
	batch := n.summaryList
	if more {
		batch = n.summaryList[:maxHeadersPerDBD]
	}

	flags := DBDFlags(0)
	if n.isMaster {
		flags |= DBDFlagMS
	}
	if more {
		flags |= DBDFlagM
	}

	db := n.iface.area.LSDB()
	headers := make([]LSAHeader, 0, len(batch))
	for _, key := range batch {
		if lsa := db.Lookup(key); lsa != nil {
			headers = append(headers, lsa.Header)
		}
	}

	n.sendDBD(DBDPacket{
		MTU:     n.iface.cfg.MTU,
		Options: n.iface.router.Options(n.iface.area),
		Flags:   flags,
		SeqNum:  n.ddSeq,
		LSAs:    headers,
	})

	n.summaryList = n.summaryList[len(batch):]
}

// checkExchangeDone fires NbrEventExchangeDone once both sides have
// cleared the M-bit, then immediately Full if the request list is already
// empty.
func (n *Neighbor) checkExchangeDone() {
	if n.state != NbrExchange {
		return
	}
	n.Deliver(NbrEventExchangeDone)
	if n.state == NbrLoading {
		n.drainOrRequest()
	}
}

// drainOrRequest sends the next batch of LS-Requests, or fires
// LoadingDone if the request list is already empty.
func (n *Neighbor) drainOrRequest() {
	if len(n.requestList) == 0 {
		n.Deliver(NbrEventLoadingDone)
		return
	}
	n.sendLSRequest()
}

func (n *Neighbor) sendLSRequest() {
	const maxPerRequest = 64
	batch := n.requestList
	if len(batch) > maxPerRequest {
		batch = batch[:maxPerRequest]
	}
	entries := make([]LSRequestEntry, len(batch))
	for i, k := range batch {
		entries[i] = LSRequestEntry{Type: k.Type, LSID: k.LSID, AdvRouter: k.AdvRouter}
	}
	wire := EncodeLSRequest(n.iface.router.RouterID(), n.iface.area.ID(), entries)
	n.iface.enqueue(n.srcAddr, wire)
	n.stats.PacketsSent++
	n.iface.stats.LSRequestSent++

	n.lsrTask = n.iface.router.Loop().After(n.iface.cfg.RxmtInterval, func() {
		if n.state == NbrLoading || n.state == NbrExchange {
			n.sendLSRequest()
		}
	})
}

// isDuplicateDBD reports whether d repeats the last DBD we accepted from
// this neighbor, by sequence number and flags (RFC 2328 Section 10.8
// "duplicate ... if the Options field, the MS bit, and the sequence
// number are the same as the last received packet").
func (n *Neighbor) isDuplicateDBD(d DBDPacket) bool {
	fp := dbdFingerprint(d)
	dup := fp == n.lastRecvDBDFingerprint && n.lastRecvDBDFingerprint != 0
	n.lastRecvDBDFingerprint = fp
	return dup
}

func dbdFingerprint(d DBDPacket) uint32 {
	return uint32(d.Flags)<<24 | d.SeqNum&0x00ffffff //nolint:gosec // collision-tolerant fingerprint, not a hash
}

// AddToRetransmitList adds key to the neighbor's retransmit list, taking a
// reference on the LSDB entry.
func (n *Neighbor) AddToRetransmitList(key LSAKey) {
	if _, exists := n.retransmitList[key]; exists {
		return
	}
	n.retransmitList[key] = time.Now()
	n.iface.area.LSDB().AddRetransmitRef(key)
	n.armRetransmitTimer()
}

// RemoveFromRetransmitList removes key (explicit ack or implied ack),
// releasing the LSDB reference.
func (n *Neighbor) RemoveFromRetransmitList(key LSAKey) {
	if _, exists := n.retransmitList[key]; !exists {
		return
	}
	delete(n.retransmitList, key)
	n.iface.area.LSDB().ReleaseRetransmitRef(key)
}

func (n *Neighbor) armRetransmitTimer() {
	if n.rxmtTask != nil {
		return
	}
	n.rxmtTask = n.iface.router.Loop().Every(n.iface.cfg.RxmtInterval, n.retransmitPending)
}

// retransmitPending resends every LSA still on the retransmit list that
// was not received fresh within the last RxmtInterval.
func (n *Neighbor) retransmitPending() {
	if len(n.retransmitList) == 0 {
		n.rxmtTask = sched.CancelAndClear(n.rxmtTask)
		return
	}
	db := n.iface.area.LSDB()
	cutoff := time.Now().Add(-n.iface.cfg.RxmtInterval)
	var lsas [][]byte
	for key, added := range n.retransmitList {
		if added.After(cutoff) {
			continue
		}
		if lsa := db.Lookup(key); lsa != nil {
			lsas = append(lsas, lsa.Raw)
		}
	}
	if len(lsas) == 0 {
		return
	}
	wire := EncodeLSUpdate(n.iface.router.RouterID(), n.iface.area.ID(), lsas)
	n.iface.enqueue(n.srcAddr, wire)
	n.stats.PacketsSent++
	n.iface.stats.LSUpdateSent++
}
