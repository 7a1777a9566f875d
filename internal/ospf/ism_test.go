package ospf_test

import (
	"testing"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// TestApplyISMEventTransitions checks a representative sample of the RFC
// 2328 Section 9.3 state diagram edges.
func TestApplyISMEventTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		state      ospf.IfState
		event      ospf.IfEvent
		wantState  ospf.IfState
		wantAction ospf.IfAction
		wantChange bool
	}{
		{
			name:       "down to waiting on interface up",
			state:      ospf.IfStateDown,
			event:      ospf.IfEventInterfaceUp,
			wantState:  ospf.IfStateWaiting,
			wantAction: ospf.IfActionStartHello,
			wantChange: true,
		},
		{
			name:       "waiting to DROther on wait timer",
			state:      ospf.IfStateWaiting,
			event:      ospf.IfEventWaitTimer,
			wantState:  ospf.IfStateDROther,
			wantAction: ospf.IfActionElectDR,
			wantChange: true,
		},
		{
			name:       "waiting to DROther on backup seen",
			state:      ospf.IfStateWaiting,
			event:      ospf.IfEventBackupSeen,
			wantState:  ospf.IfStateDROther,
			wantAction: ospf.IfActionElectDR,
			wantChange: true,
		},
		{
			name:       "DR re-elects on neighbor change",
			state:      ospf.IfStateDR,
			event:      ospf.IfEventNeighborChange,
			wantState:  ospf.IfStateDR,
			wantAction: ospf.IfActionElectDR,
			wantChange: false,
		},
		{
			name:       "any state to down on interface down",
			state:      ospf.IfStateBackup,
			event:      ospf.IfEventInterfaceDown,
			wantState:  ospf.IfStateDown,
			wantAction: ospf.IfActionResetNeighbors,
			wantChange: true,
		},
		{
			name:       "down to loopback",
			state:      ospf.IfStateDown,
			event:      ospf.IfEventLoopInd,
			wantState:  ospf.IfStateLoopback,
			wantChange: true,
		},
		{
			name:       "loopback to down on unloop",
			state:      ospf.IfStateLoopback,
			event:      ospf.IfEventUnloopInd,
			wantState:  ospf.IfStateDown,
			wantChange: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := ospf.ApplyISMEvent(tt.state, tt.event)

			if result.NewState != tt.wantState {
				t.Errorf("NewState = %v, want %v", result.NewState, tt.wantState)
			}
			if result.Changed != tt.wantChange {
				t.Errorf("Changed = %v, want %v", result.Changed, tt.wantChange)
			}
			if tt.wantAction != 0 {
				if !containsIfAction(result.Actions, tt.wantAction) {
					t.Errorf("Actions = %v, want to contain %v", result.Actions, tt.wantAction)
				}
			}
		})
	}
}

// TestApplyISMEventUnknownIsNoop verifies that an event with no table entry
// for the given state leaves the state unchanged and emits no actions.
func TestApplyISMEventUnknownIsNoop(t *testing.T) {
	t.Parallel()

	result := ospf.ApplyISMEvent(ospf.IfStateDown, ospf.IfEventNeighborChange)

	if result.Changed {
		t.Errorf("Changed = true, want false for an event with no transition")
	}
	if result.NewState != ospf.IfStateDown {
		t.Errorf("NewState = %v, want unchanged IfStateDown", result.NewState)
	}
	if len(result.Actions) != 0 {
		t.Errorf("Actions = %v, want none", result.Actions)
	}
}

// TestIfStateString guards against the default case silently swallowing a
// newly added enum value.
func TestIfStateString(t *testing.T) {
	t.Parallel()

	states := []ospf.IfState{
		ospf.IfStateDown, ospf.IfStateLoopback, ospf.IfStateWaiting,
		ospf.IfStatePointToPoint, ospf.IfStateDROther, ospf.IfStateBackup, ospf.IfStateDR,
	}
	for _, s := range states {
		if s.String() == "Unknown" {
			t.Errorf("IfState(%d).String() = Unknown, want a named state", s)
		}
	}
}

func containsIfAction(actions []ospf.IfAction, target ospf.IfAction) bool {
	for _, a := range actions {
		if a == target {
			return true
		}
	}
	return false
}
