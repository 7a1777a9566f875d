package ospf

// This file implements the Neighbor State Machine (RFC 2328 Section 10.1,
// 10.3). As in ism.go, the transition table is a pure function over
// (state, event); Neighbor.Deliver executes the returned actions
// (list resets, timer cancellation, SPF scheduling) against live state.

// NbrState is the Neighbor State Machine state (RFC 2328 Section 10.1).
type NbrState uint8

// Neighbor states, in RFC 2328 Section 10.1 order (used for numeric
// comparisons such as "state >= 2-Way").
const (
	NbrDown NbrState = iota
	NbrAttempt
	NbrInit
	NbrTwoWay
	NbrExStart
	NbrExchange
	NbrLoading
	NbrFull
)

// String returns the human-readable neighbor state name.
func (s NbrState) String() string {
	switch s {
	case NbrDown:
		return "Down"
	case NbrAttempt:
		return "Attempt"
	case NbrInit:
		return "Init"
	case NbrTwoWay:
		return "2-Way"
	case NbrExStart:
		return "ExStart"
	case NbrExchange:
		return "Exchange"
	case NbrLoading:
		return "Loading"
	case NbrFull:
		return "Full"
	default:
		return "Unknown"
	}
}

// NbrEvent is a Neighbor State Machine event (RFC 2328 Section 10.2).
type NbrEvent uint8

// Neighbor events.
const (
	NbrEventHelloReceived NbrEvent = iota
	NbrEventStart                  // NBMA only
	NbrEvent2WayReceived
	NbrEventNegotiationDone
	NbrEventExchangeDone
	NbrEventBadLSReq
	NbrEventLoadingDone
	NbrEventAdjOK
	NbrEventSeqNumberMismatch
	NbrEvent1WayReceived
	NbrEventKillNbr
	NbrEventInactivityTimer
	NbrEventLLDown
)

// String returns the human-readable event name.
func (e NbrEvent) String() string {
	switch e {
	case NbrEventHelloReceived:
		return "HelloReceived"
	case NbrEventStart:
		return "Start"
	case NbrEvent2WayReceived:
		return "2-WayReceived"
	case NbrEventNegotiationDone:
		return "NegotiationDone"
	case NbrEventExchangeDone:
		return "ExchangeDone"
	case NbrEventBadLSReq:
		return "BadLSReq"
	case NbrEventLoadingDone:
		return "LoadingDone"
	case NbrEventAdjOK:
		return "AdjOK"
	case NbrEventSeqNumberMismatch:
		return "SeqNumberMismatch"
	case NbrEvent1WayReceived:
		return "1-WayReceived"
	case NbrEventKillNbr:
		return "KillNbr"
	case NbrEventInactivityTimer:
		return "InactivityTimer"
	case NbrEventLLDown:
		return "LinkDown"
	default:
		return "Unknown"
	}
}

// NbrAction is a side effect the caller executes after an NSM transition.
type NbrAction uint8

// Neighbor actions.
const (
	// NbrActionStartInactivity (re)arms the RouterDeadInterval timer.
	NbrActionStartInactivity NbrAction = iota + 1

	// NbrActionClearLists empties the summary, request, and retransmit
	// lists, releasing LSDB references (RFC 2328 Section 10.3, state < 2-Way).
	NbrActionClearLists

	// NbrActionCancelTimers cancels DD/LSR/LSU/inactivity timers.
	NbrActionCancelTimers

	// NbrActionStartExStart begins the DBD master/slave negotiation
	// (RFC 2328 Section 10.8, event AdjOK? when the neighbor becomes
	// adjacency-worthy).
	NbrActionStartExStart

	// NbrActionGenerateDBD sends the next DBD packet of an Exchange round.
	NbrActionGenerateDBD

	// NbrActionScheduleSPF requests a debounced SPF run; fired whenever a
	// transition crosses the Full boundary in either direction
	NbrActionScheduleSPF

	// NbrActionReevaluateISM re-triggers NeighborChange on the owning
	// interface (DR election depends on neighbor 2-Way/Full status).
	NbrActionReevaluateISM
)

type nbrStateEvent struct {
	state NbrState
	event NbrEvent
}

type nbrTransition struct {
	newState NbrState
	actions  []NbrAction
}

//nolint:gochecknoglobals // FSM transition table is intentionally package-level.
var nsmTable = map[nbrStateEvent]nbrTransition{
	{NbrDown, NbrEventStart}:         {NbrAttempt, []NbrAction{NbrActionStartInactivity}},
	{NbrDown, NbrEventHelloReceived}: {NbrInit, []NbrAction{NbrActionStartInactivity}},

	{NbrAttempt, NbrEventHelloReceived}: {NbrInit, []NbrAction{NbrActionStartInactivity}},

	{NbrInit, NbrEventHelloReceived}: {NbrInit, []NbrAction{NbrActionStartInactivity}},
	{NbrInit, NbrEvent2WayReceived}:  {NbrTwoWay, []NbrAction{NbrActionReevaluateISM}},
	// AdjOK? after 2-WayReceived is resolved by the caller: once the
	// neighbor is at 2-Way and adjacency-worthy, Interface.handleTwoWay
	// (hello.go) delivers AdjOK.

	{NbrTwoWay, NbrEventHelloReceived}: {NbrTwoWay, []NbrAction{NbrActionStartInactivity}},
	{NbrTwoWay, NbrEventAdjOK}:         {NbrExStart, []NbrAction{NbrActionStartExStart}},

	{NbrExStart, NbrEventHelloReceived}:    {NbrExStart, []NbrAction{NbrActionStartInactivity}},
	{NbrExStart, NbrEventNegotiationDone}:  {NbrExchange, []NbrAction{NbrActionGenerateDBD}},
	{NbrExStart, NbrEventAdjOK}:            {NbrExStart, []NbrAction{NbrActionStartExStart}},
	{NbrExStart, NbrEventSeqNumberMismatch}: {NbrExStart, []NbrAction{NbrActionClearLists, NbrActionStartExStart}},

	{NbrExchange, NbrEventHelloReceived}:     {NbrExchange, []NbrAction{NbrActionStartInactivity}},
	{NbrExchange, NbrEventExchangeDone}:       {NbrLoading, nil}, // transitions to Full in handler if request list empty
	{NbrExchange, NbrEventBadLSReq}:           {NbrExStart, []NbrAction{NbrActionClearLists, NbrActionStartExStart}},
	{NbrExchange, NbrEventSeqNumberMismatch}:  {NbrExStart, []NbrAction{NbrActionClearLists, NbrActionStartExStart}},
	{NbrExchange, NbrEventAdjOK}:              {NbrExchange, nil},

	{NbrLoading, NbrEventHelloReceived}:    {NbrLoading, []NbrAction{NbrActionStartInactivity}},
	{NbrLoading, NbrEventLoadingDone}:      {NbrFull, []NbrAction{NbrActionScheduleSPF, NbrActionReevaluateISM}},
	{NbrLoading, NbrEventBadLSReq}:         {NbrExStart, []NbrAction{NbrActionClearLists, NbrActionStartExStart}},
	{NbrLoading, NbrEventSeqNumberMismatch}: {NbrExStart, []NbrAction{NbrActionClearLists, NbrActionStartExStart}},
	{NbrLoading, NbrEventAdjOK}:             {NbrLoading, nil},

	{NbrFull, NbrEventHelloReceived}: {NbrFull, []NbrAction{NbrActionStartInactivity}},
	{NbrFull, NbrEventAdjOK}:         {NbrFull, nil},

	// Any state >= 2-Way, 1-WayReceived drops to Init.
	// Any state, KillNbr/LLDown/InactivityTimer drops to Down and tears
	// down. These are state-independent so Neighbor.Deliver handles
	// them directly rather than enumerating every (state, event) pair.
}

// NSMResult holds the outcome of applying an NSM event.
type NSMResult struct {
	OldState NbrState
	NewState NbrState
	Actions  []NbrAction
	Changed  bool
}

// ApplyNSMEvent applies event to state and returns the pure transition
// result. The state-independent teardown events (1-WayReceived, KillNbr,
// LLDown, InactivityTimer) are not in the table; Neighbor.Deliver
// intercepts them before consulting ApplyNSMEvent.
func ApplyNSMEvent(state NbrState, event NbrEvent) NSMResult {
	tr, ok := nsmTable[nbrStateEvent{state, event}]
	if !ok {
		return NSMResult{OldState: state, NewState: state}
	}
	return NSMResult{
		OldState: state,
		NewState: tr.newState,
		Actions:  tr.actions,
		Changed:  state != tr.newState,
	}
}

// IsAdjacencyWorthy reports whether a local interface state/role combination
// warrants forming a full adjacency with a neighbor declaring the given
// role, per RFC 2328 Section 10.4: "the local router is itself the DR or
// Backup, or ... the neighboring router is the DR or Backup, or ... the
// network is a point-to-point, Point-to-MultiPoint or virtual link".
func IsAdjacencyWorthy(ifType IfType, localRole, remoteRole DRRole) bool {
	switch ifType {
	case IfTypePointToPoint, IfTypePointToMultipoint, IfTypeVirtualLink:
		return true
	default:
		return localRole == DRRoleDR || localRole == DRRoleBackup ||
			remoteRole == DRRoleDR || remoteRole == DRRoleBackup
	}
}

// DRRole classifies a router's relationship to DR/BDR election for
// IsAdjacencyWorthy.
type DRRole uint8

// DR roles.
const (
	DRRoleOther DRRole = iota
	DRRoleBackup
	DRRoleDR
)
