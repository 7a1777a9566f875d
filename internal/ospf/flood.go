package ospf

import (
	"log/slog"
)

// scopeDB returns iface's area LSDB, which holds every LSA type received
// on the interface, AS-scoped ones included.
func (i *Interface) scopeDB() *LSDB {
	return i.area.LSDB()
}

// ReceiveLSUpdate implements RFC 2328 Section 13 ("The Flooding Procedure")
// for one LS-Update packet: each contained LSA is validated, compared
// against the existing database copy, and either installed-and-reflooded,
// acknowledged as a duplicate, or dropped.
func (i *Interface) ReceiveLSUpdate(n *Neighbor, raws [][]byte) {
	i.stats.LSUpdateRecv++
	n.stats.PacketsReceived++

	if n.state < NbrExchange {
		return
	}

	for _, raw := range raws {
		lsa, err := ParseLSA(raw)
		if err != nil {
			i.logger.Warn("dropping malformed LSA in LSUpdate", slog.String("error", err.Error()))
			i.stats.Discards++
			continue
		}
		i.receiveOneLSA(n, lsa)
	}
}

// receiveOneLSA runs the per-LSA steps of RFC 2328 Section 13.
func (i *Interface) receiveOneLSA(n *Neighbor, lsa *LSA) {
	db := i.scopeDB()

	// Step 5: if this is a self-originated LSA we don't recognize as our
	// own current instance, treat as MaxAge to trigger premature aging
	// and reflooding of a fresher self-originated copy (handled by the
	// caller's re-origination path; here we just accept and flush it).
	if lsa.IsSelfOriginated(i.router.RouterID()) {
		i.handleSelfOriginatedConflict(n, lsa)
		return
	}

	local := db.Lookup(lsa.Header.Key())

	// Step 4: MaxAge LSA not in the database and no neighbor in
	// Exchange/Loading: discard and ack without installing.
	if lsa.IsMaxAge() && local == nil && !i.anyNeighborExchanging() {
		i.directAck(n, lsa.Header)
		return
	}

	if local == nil || Compare(lsa, local) > 0 {
		i.installAndFlood(n, lsa, local)
		return
	}

	if Compare(lsa, local) == 0 {
		i.handleDuplicate(n, lsa)
		return
	}

	// Local copy is more recent (step 7): if the neighbor has the stale
	// copy on its own request list, this is BadLSReq; otherwise
	// send our more recent copy back (implicit in RFC 2328 step 7, "send
	// ... database copy back to the sending neighbor").
	for _, k := range n.requestList {
		if k == lsa.Header.Key() {
			n.Deliver(NbrEventBadLSReq)
			return
		}
	}
	i.sendDirectLSA(n, local)
}

// handleSelfOriginatedConflict implements RFC 2328 Section 13 step 5: a
// newer self-originated instance than what we have means someone else is
// advertising on our behalf (stale adjacency, restart); we must either
// accept it as more recent (rare) or flush it immediately by reflooding
// our own higher-sequence instance, causing the stale copy to age out.
func (i *Interface) handleSelfOriginatedConflict(n *Neighbor, remote *LSA) {
	db := i.scopeDB()
	local := db.Lookup(remote.Header.Key())
	if local == nil {
		// We have no record of ever originating this; treat the MaxAge
		// case specially (step 6: immediately flush by reflooding as
		// MaxAge), otherwise simply discard per step 5 "no instance ...
		// and ... not MaxAge: discard".
		if remote.IsMaxAge() {
			i.directAck(n, remote.Header)
		}
		return
	}
	if Compare(remote, local) > 0 {
		// Originate a new instance with a higher sequence number than
		// the one just received, per RFC 2328 Section 13 step 5.
		bumped := BuildLSA(LSAHeader{
			Age: 0, Options: local.Header.Options, Type: local.Header.Type,
			LSID: local.Header.LSID, AdvRouter: local.Header.AdvRouter,
			SeqNum: remote.Header.SeqNum + 1,
		}, local.Body())
		bumped.SetChecksum()
		i.installAndFlood(n, bumped, local)
		return
	}
	i.directAck(n, remote.Header)
}

// installAndFlood implements RFC 2328 Section 13 steps 5-6: the received
// instance replaces any local copy, is reflooded out every interface
// except the receiving one (and the neighbor that sent it if the packet
// demands acknowledgment only), and is acked per Section 13.5.
func (i *Interface) installAndFlood(n *Neighbor, lsa *LSA, prev *LSA) {
	db := i.scopeDB()

	if prev != nil {
		i.removeFromAllRetransmitLists(prev.Header.Key())
	}
	db.Install(lsa)

	floodedBack := i.floodToAllInterfaces(lsa, n)
	if !floodedBack {
		i.directAck(n, lsa.Header)
	}

	i.iface2EventScheduleSPF(lsa)
}

func (i *Interface) iface2EventScheduleSPF(lsa *LSA) {
	if lsa.Header.Type == LSTypeRouter || lsa.Header.Type == LSTypeNetwork {
		i.router.ScheduleSPF(i.area)
	} else {
		i.router.ScheduleABRTask()
	}
}

// removeFromAllRetransmitLists drops key from every neighbor's retransmit
// list on this interface, releasing the superseded instance's references
// (RFC 2328 Section 13 step 6 "remove the old instance from all neighbors'
// Link state retransmission lists").
func (i *Interface) removeFromAllRetransmitLists(key LSAKey) {
	for _, nb := range i.neighbors {
		nb.RemoveFromRetransmitList(key)
	}
}

// floodToAllInterfaces sends lsa out every adjacency-worthy neighbor on
// every interface in the same area (area-scoped) or the whole router
// (AS-scoped), skipping the neighbor the LSA arrived from per RFC 2328
// Section 13.3. Returns true if the received-from neighbor was itself one
// of the flood targets (i.e. would receive an implicit ack).
func (i *Interface) floodToAllInterfaces(lsa *LSA, from *Neighbor) bool {
	targets := i.area.Interfaces()
	receivedBackByFrom := false

	for _, iface := range targets {
		if lsa.Header.Type.Scope() != ScopeAS && iface.area.ID() != i.area.ID() {
			continue
		}
		for _, nb := range iface.neighbors {
			if nb.State() < NbrExchange {
				continue
			}
			if nb == from {
				receivedBackByFrom = true
				continue
			}
			iface.addToFloodSet(nb, lsa)
		}
	}
	return receivedBackByFrom
}

// addToFloodSet sends lsa to nb immediately and arms retransmission until
// acknowledged (RFC 2328 Section 13.3).
func (i *Interface) addToFloodSet(nb *Neighbor, lsa *LSA) {
	nb.AddToRetransmitList(lsa.Header.Key())
	wire := EncodeLSUpdate(i.router.RouterID(), i.area.ID(), [][]byte{lsa.Raw})
	i.enqueue(nb.srcAddr, wire)
	nb.stats.PacketsSent++
	i.stats.LSUpdateSent++
}

// handleDuplicate implements RFC 2328 Section 13 step 8: if the LSA is on
// the sending neighbor's retransmit list, this is an implied ack and the
// entry is removed; otherwise it is a plain duplicate and gets a direct
// ack only if the packet's ack-requested semantics apply (this engine
// always directly acks plain duplicates, matching ospf_flood.c).
func (i *Interface) handleDuplicate(n *Neighbor, lsa *LSA) {
	if _, onList := n.retransmitList[lsa.Header.Key()]; onList {
		n.RemoveFromRetransmitList(lsa.Header.Key())
		return
	}
	i.directAck(n, lsa.Header)
}

func (i *Interface) anyNeighborExchanging() bool {
	for _, nb := range i.neighbors {
		if nb.State() == NbrExchange || nb.State() == NbrLoading {
			return true
		}
	}
	return false
}

// directAck sends (or queues, on broadcast media) an LSAck for exactly one
// header, used for duplicates and MaxAge-not-installed LSAs
// (RFC 2328 Section 13.5).
func (i *Interface) directAck(n *Neighbor, h LSAHeader) {
	if i.cfg.Type == IfTypeBroadcast || i.cfg.Type == IfTypeNBMA {
		i.QueueAck(h)
		return
	}
	wire := EncodeLSAck(i.router.RouterID(), i.area.ID(), []LSAHeader{h})
	i.enqueue(n.srcAddr, wire)
	i.stats.LSAckSent++
}

// sendDirectLSA resends our more recent database copy directly to n
// (RFC 2328 Section 13 step 7).
func (i *Interface) sendDirectLSA(n *Neighbor, lsa *LSA) {
	wire := EncodeLSUpdate(i.router.RouterID(), i.area.ID(), [][]byte{lsa.Raw})
	i.enqueue(n.srcAddr, wire)
	i.stats.LSUpdateSent++
}

// ReceiveLSAck implements RFC 2328 Section 13.7: each acknowledged header
// is removed from the sending neighbor's retransmit list if present; a
// mismatched (stale or unexpected) ack is ignored.
func (i *Interface) ReceiveLSAck(n *Neighbor, headers []LSAHeader) {
	i.stats.LSAckRecv++
	n.stats.PacketsReceived++
	if n.state < NbrExchange {
		return
	}
	for _, h := range headers {
		if _, onList := n.retransmitList[h.Key()]; !onList {
			continue
		}
		n.RemoveFromRetransmitList(h.Key())
	}
}

// ReceiveLSRequest implements RFC 2328 Section 10.7 ("Receive Link State
// Request"): every requested (type, LS-ID, adv-router) must be in the
// database at least as recent as what's implied by the request, or the
// adjacency is torn down via BadLSReq.
func (i *Interface) ReceiveLSRequest(n *Neighbor, entries []LSRequestEntry) {
	i.stats.LSRequestRecv++
	n.stats.PacketsReceived++
	if n.state < NbrExchange {
		return
	}

	db := i.scopeDB()
	var raws [][]byte
	for _, e := range entries {
		key := LSAKey{Type: e.Type, LSID: e.LSID, AdvRouter: e.AdvRouter}
		lsa := db.Lookup(key)
		if lsa == nil {
			n.Deliver(NbrEventBadLSReq)
			return
		}
		raws = append(raws, lsa.Raw)
	}
	if len(raws) == 0 {
		return
	}
	wire := EncodeLSUpdate(i.router.RouterID(), i.area.ID(), raws)
	i.enqueue(n.srcAddr, wire)
	i.stats.LSUpdateSent++
}

// floodSelfOriginated reinstalls and floods a freshly (re-)originated LSA,
// the counterpart to installAndFlood used when the engine itself produces
// a new instance (initial origination, refresh, or premature aging).
func (i *Interface) floodSelfOriginated(area *Area, lsa *LSA) {
	db := area.LSDB()
	prev := db.Lookup(lsa.Header.Key())
	if prev != nil {
		for _, iface := range area.Interfaces() {
			iface.removeFromAllRetransmitLists(prev.Header.Key())
		}
	}
	db.Install(lsa)
	for _, iface := range area.Interfaces() {
		for _, nb := range iface.neighbors {
			if nb.State() < NbrExchange {
				continue
			}
			iface.addToFloodSet(nb, lsa)
		}
	}
}
