package ospf

import (
	"log/slog"
)

// HandleDBD processes a received Database Description packet
// (RFC 2328 Section 10.6 "Receive Database Description", Section 10.8 for
// the negotiation/exchange state machine side effects). i is the interface
// the packet arrived on; n is the already-resolved neighbor.
func (i *Interface) HandleDBD(n *Neighbor, d DBDPacket) {
	i.stats.DBDRecv++
	n.stats.PacketsReceived++

	switch n.state {
	case NbrDown, NbrAttempt, NbrTwoWay:
		return // RFC 2328 Section 10.6: silently discarded below ExStart
	case NbrInit:
		n.Deliver(NbrEvent2WayReceived)
		if n.state != NbrExStart {
			return
		}
		fallthrough
	case NbrExStart:
		i.handleDBDExStart(n, d)
	case NbrExchange:
		i.handleDBDExchange(n, d)
	case NbrLoading, NbrFull:
		i.handleDBDPostExchange(n, d)
	}
}

// handleDBDExStart resolves Master/Slave per RFC 2328 Section 10.8 and
// fires NegotiationDone once the initial conditions are satisfied.
func (i *Interface) handleDBDExStart(n *Neighbor, d DBDPacket) {
	switch {
	case d.Flags&DBDFlagI != 0 && d.Flags&DBDFlagM != 0 && d.Flags&DBDFlagMS != 0 && len(d.LSAs) == 0:
		if n.routerID > i.router.RouterID() {
			// Peer wins the Master/Slave negotiation: we are Slave.
			n.isMaster = false
			n.ddSeq = d.SeqNum
			n.Deliver(NbrEventNegotiationDone)
			i.buildSummaryList(n)
			n.sendNextDBD()
		}
		// If our own router-id is higher we stay silent: our own initial
		// DBD (sent from startExStart) will eventually win the peer over.
	case d.Flags&DBDFlagMS == 0 && d.SeqNum == n.ddSeq && n.isMaster:
		// Peer accepted us as Master (echoes our sequence number, clears MS).
		n.Deliver(NbrEventNegotiationDone)
		i.buildSummaryList(n)
		n.ddSeq++
		n.sendNextDBD()
	default:
		i.logger.Warn("DBD in ExStart failed negotiation", slog.Uint64("neighbor", uint64(n.routerID)))
		n.Deliver(NbrEventSeqNumberMismatch)
	}
}

// buildSummaryList populates n.summaryList with every LSDB entry not at
// MaxAge, at the moment Exchange begins (RFC 2328 Section 10.8, "the
// neighbor's Database summary list is set to a list of all LSAs ...
// currently contained in the area structure").
func (i *Interface) buildSummaryList(n *Neighbor) {
	var keys []LSAKey
	for _, lsa := range i.area.LSDB().All() {
		if !lsa.IsMaxAge() {
			keys = append(keys, lsa.Header.Key())
		}
	}
	n.summaryList = keys
}

// handleDBDExchange implements the steady-state Exchange exchange
// (RFC 2328 Section 10.8 bullets under "The next step ... depends on
// whether the router is Master or Slave").
func (i *Interface) handleDBDExchange(n *Neighbor, d DBDPacket) {
	if !i.validateDBDExchange(n, d) {
		n.Deliver(NbrEventSeqNumberMismatch)
		return
	}

	if n.isMaster {
		// We are Master: the packet must echo our last sequence number.
		if d.SeqNum != n.ddSeq {
			n.Deliver(NbrEventSeqNumberMismatch)
			return
		}
		n.ddSeq++
	} else {
		// We are Slave: accept, echo back SeqNum, and advance ours.
		n.ddSeq = d.SeqNum
	}

	i.appendRequestable(n, d.LSAs)
	n.sendNextDBD()

	if len(n.summaryList) == 0 && d.Flags&DBDFlagM == 0 {
		n.checkExchangeDone()
	}
}

// validateDBDExchange re-checks the options/MS-bit consistency that must
// hold throughout Exchange (RFC 2328 Section 10.8: "if the state of the
// I, M, or MS-bits is inconsistent with the last Database Description
// packet received ... generate SeqNumberMismatch").
func (i *Interface) validateDBDExchange(n *Neighbor, d DBDPacket) bool {
	if d.Flags&DBDFlagI != 0 {
		return false
	}
	wantMS := !n.isMaster // if we are Master, peer (Slave) must clear MS
	gotMS := d.Flags&DBDFlagMS != 0
	return wantMS == gotMS
}

// appendRequestable scans the received summary headers and queues any that
// we either don't have or have an older instance of onto the request list
// (RFC 2328 Section 10.8: "if ... this LSA is more recent ... add to list").
func (i *Interface) appendRequestable(n *Neighbor, headers []LSAHeader) {
	db := i.area.LSDB()
	for _, h := range headers {
		local := db.Lookup(h.Key())
		if local == nil {
			n.requestList = append(n.requestList, h.Key())
			continue
		}
		remote := &LSA{Header: h}
		if Compare(local, remote) < 0 {
			n.requestList = append(n.requestList, h.Key())
		}
	}
}

// handleDBDPostExchange re-sends the last DBD on a duplicate from the
// Slave side, or treats any other DBD as a protocol error
// (RFC 2328 Section 10.8: "In states Loading and Full ... if the packet is
// a duplicate ... discard it if Master, or respond with the last DBD
// packet if Slave; any other ... generate SeqNumberMismatch").
func (i *Interface) handleDBDPostExchange(n *Neighbor, d DBDPacket) {
	if n.isDuplicateDBD(d) {
		if !n.isMaster {
			n.iface.enqueue(n.srcAddr, n.lastDBD)
		}
		return
	}
	n.Deliver(NbrEventSeqNumberMismatch)
}
