package ospf

// This file implements the Interface State Machine (RFC 2328 Section 9.3).
// Like the neighbor FSM in nsm.go, the transition table is a pure function
// over (state, event) with no Interface dependency, so it can be audited
// against the RFC state diagram and unit tested in isolation. Side effects
// (DR election, adjacency re-evaluation, Hello scheduling) are actions the
// caller (Interface.Deliver, via runAction) executes after the pure
// transition.

// IfState is the Interface State Machine state (RFC 2328 Section 9.1).
type IfState uint8

// Interface states.
const (
	IfStateDown IfState = iota
	IfStateLoopback
	IfStateWaiting
	IfStatePointToPoint
	IfStateDROther
	IfStateBackup
	IfStateDR
)

// String returns the human-readable interface state name.
func (s IfState) String() string {
	switch s {
	case IfStateDown:
		return "Down"
	case IfStateLoopback:
		return "Loopback"
	case IfStateWaiting:
		return "Waiting"
	case IfStatePointToPoint:
		return "PointToPoint"
	case IfStateDROther:
		return "DROther"
	case IfStateBackup:
		return "Backup"
	case IfStateDR:
		return "DR"
	default:
		return "Unknown"
	}
}

// IfEvent is an Interface State Machine event (RFC 2328 Section 9.3).
type IfEvent uint8

// Interface events.
const (
	IfEventInterfaceUp IfEvent = iota
	IfEventWaitTimer
	IfEventBackupSeen
	IfEventNeighborChange
	IfEventLoopInd
	IfEventUnloopInd
	IfEventInterfaceDown
)

// String returns the human-readable event name.
func (e IfEvent) String() string {
	switch e {
	case IfEventInterfaceUp:
		return "InterfaceUp"
	case IfEventWaitTimer:
		return "WaitTimer"
	case IfEventBackupSeen:
		return "BackupSeen"
	case IfEventNeighborChange:
		return "NeighborChange"
	case IfEventLoopInd:
		return "LoopInd"
	case IfEventUnloopInd:
		return "UnloopInd"
	case IfEventInterfaceDown:
		return "InterfaceDown"
	default:
		return "Unknown"
	}
}

// IfAction is a side-effect the caller must execute after an ISM transition.
type IfAction uint8

// Interface actions.
const (
	// IfActionStartHello starts periodic Hello generation and, on
	// broadcast/NBMA links, the wait timer.
	IfActionStartHello IfAction = iota + 1

	// IfActionElectDR runs (or re-runs) the DR/BDR election procedure
	// (RFC 2328 Section 9.4).
	IfActionElectDR

	// IfActionResetNeighbors kills every neighbor on the interface without
	// sending a final Hello (InterfaceDown, LoopInd).
	IfActionResetNeighbors

	// IfActionReevaluateAdjacencies walks every neighbor and brings
	// adjacency-worthy ones through ExStart, and drops adjacencies that
	// are no longer worthy (RFC 2328 Section 9.2, used after DR change).
	IfActionReevaluateAdjacencies
)

type ifStateEvent struct {
	state IfState
	event IfEvent
}

type ifTransition struct {
	newState IfState
	actions  []IfAction
}

//nolint:gochecknoglobals // FSM transition table is intentionally package-level.
var ismTable = map[ifStateEvent]ifTransition{
	{IfStateDown, IfEventInterfaceUp}: {IfStateWaiting, []IfAction{IfActionStartHello}},
	{IfStateDown, IfEventLoopInd}:     {IfStateLoopback, nil},

	{IfStateLoopback, IfEventUnloopInd}: {IfStateDown, nil},

	// Waiting: broadcast/NBMA wait for WaitTimer or BackupSeen before
	// electing DR/BDR (RFC 2328 Section 9.3).
	{IfStateWaiting, IfEventBackupSeen}:     {IfStateDROther, []IfAction{IfActionElectDR}},
	{IfStateWaiting, IfEventWaitTimer}:      {IfStateDROther, []IfAction{IfActionElectDR}},
	{IfStateWaiting, IfEventInterfaceDown}:  {IfStateDown, []IfAction{IfActionResetNeighbors}},
	{IfStateWaiting, IfEventLoopInd}:        {IfStateLoopback, []IfAction{IfActionResetNeighbors}},
	{IfStateWaiting, IfEventNeighborChange}: {IfStateWaiting, nil},

	// PointToPoint, PtMP, and virtual links go directly to PointToPoint on
	// InterfaceUp (no election needed); the concrete link-type check lives
	// in Interface.runAction (IfActionStartHello), which moves a
	// non-broadcast/NBMA interface on to PointToPoint.
	{IfStatePointToPoint, IfEventInterfaceDown}: {IfStateDown, []IfAction{IfActionResetNeighbors}},
	{IfStatePointToPoint, IfEventLoopInd}:       {IfStateLoopback, []IfAction{IfActionResetNeighbors}},

	{IfStateDROther, IfEventNeighborChange}: {IfStateDROther, []IfAction{IfActionElectDR}},
	{IfStateDROther, IfEventInterfaceDown}:  {IfStateDown, []IfAction{IfActionResetNeighbors}},
	{IfStateDROther, IfEventLoopInd}:        {IfStateLoopback, []IfAction{IfActionResetNeighbors}},

	{IfStateBackup, IfEventNeighborChange}: {IfStateBackup, []IfAction{IfActionElectDR}},
	{IfStateBackup, IfEventInterfaceDown}:  {IfStateDown, []IfAction{IfActionResetNeighbors}},
	{IfStateBackup, IfEventLoopInd}:        {IfStateLoopback, []IfAction{IfActionResetNeighbors}},

	{IfStateDR, IfEventNeighborChange}: {IfStateDR, []IfAction{IfActionElectDR}},
	{IfStateDR, IfEventInterfaceDown}:  {IfStateDown, []IfAction{IfActionResetNeighbors}},
	{IfStateDR, IfEventLoopInd}:        {IfStateLoopback, []IfAction{IfActionResetNeighbors}},
}

// ISMResult holds the outcome of applying an ISM event.
type ISMResult struct {
	OldState IfState
	NewState IfState
	Actions  []IfAction
	Changed  bool
}

// ApplyISMEvent applies event to state and returns the pure transition
// result. DR election outcomes (which land in IfStateDR/Backup/DROther)
// are applied separately by Interface.runElection once IfActionElectDR
// executes; this table only encodes the RFC 2328 Section 9.3 diagram
// edges that do not depend on runtime election data.
func ApplyISMEvent(state IfState, event IfEvent) ISMResult {
	tr, ok := ismTable[ifStateEvent{state, event}]
	if !ok {
		return ISMResult{OldState: state, NewState: state}
	}
	return ISMResult{
		OldState: state,
		NewState: tr.newState,
		Actions:  tr.actions,
		Changed:  state != tr.newState,
	}
}
