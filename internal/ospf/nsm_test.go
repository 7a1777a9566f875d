package ospf_test

import (
	"testing"

	"github.com/go-ospfd/ospfd/internal/ospf"
)

// TestApplyNSMEventTransitions checks a representative sample of the RFC
// 2328 Section 10.3 neighbor state diagram edges, including the
// ExStart/Exchange/Loading error-recovery transitions back to ExStart.
func TestApplyNSMEventTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		state      ospf.NbrState
		event      ospf.NbrEvent
		wantState  ospf.NbrState
		wantAction ospf.NbrAction
		wantChange bool
	}{
		{
			name:       "down to init on hello received",
			state:      ospf.NbrDown,
			event:      ospf.NbrEventHelloReceived,
			wantState:  ospf.NbrInit,
			wantAction: ospf.NbrActionStartInactivity,
			wantChange: true,
		},
		{
			name:       "init to 2-way",
			state:      ospf.NbrInit,
			event:      ospf.NbrEvent2WayReceived,
			wantState:  ospf.NbrTwoWay,
			wantAction: ospf.NbrActionReevaluateISM,
			wantChange: true,
		},
		{
			name:       "2-way to ExStart on AdjOK",
			state:      ospf.NbrTwoWay,
			event:      ospf.NbrEventAdjOK,
			wantState:  ospf.NbrExStart,
			wantAction: ospf.NbrActionStartExStart,
			wantChange: true,
		},
		{
			name:       "ExStart to Exchange on negotiation done",
			state:      ospf.NbrExStart,
			event:      ospf.NbrEventNegotiationDone,
			wantState:  ospf.NbrExchange,
			wantAction: ospf.NbrActionGenerateDBD,
			wantChange: true,
		},
		{
			name:       "Exchange to Loading on exchange done",
			state:      ospf.NbrExchange,
			event:      ospf.NbrEventExchangeDone,
			wantState:  ospf.NbrLoading,
			wantChange: true,
		},
		{
			name:       "Loading to Full on loading done",
			state:      ospf.NbrLoading,
			event:      ospf.NbrEventLoadingDone,
			wantState:  ospf.NbrFull,
			wantAction: ospf.NbrActionScheduleSPF,
			wantChange: true,
		},
		{
			name:       "Exchange drops to ExStart on bad LS request",
			state:      ospf.NbrExchange,
			event:      ospf.NbrEventBadLSReq,
			wantState:  ospf.NbrExStart,
			wantAction: ospf.NbrActionClearLists,
			wantChange: true,
		},
		{
			name:       "Loading drops to ExStart on sequence number mismatch",
			state:      ospf.NbrLoading,
			event:      ospf.NbrEventSeqNumberMismatch,
			wantState:  ospf.NbrExStart,
			wantAction: ospf.NbrActionClearLists,
			wantChange: true,
		},
		{
			name:       "Full stays Full on AdjOK when nothing changed",
			state:      ospf.NbrFull,
			event:      ospf.NbrEventAdjOK,
			wantState:  ospf.NbrFull,
			wantChange: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := ospf.ApplyNSMEvent(tt.state, tt.event)

			if result.NewState != tt.wantState {
				t.Errorf("NewState = %v, want %v", result.NewState, tt.wantState)
			}
			if result.Changed != tt.wantChange {
				t.Errorf("Changed = %v, want %v", result.Changed, tt.wantChange)
			}
			if tt.wantAction != 0 && !containsNbrAction(result.Actions, tt.wantAction) {
				t.Errorf("Actions = %v, want to contain %v", result.Actions, tt.wantAction)
			}
		})
	}
}

// TestIsAdjacencyWorthy covers the RFC 2328 Section 10.4 adjacency-worthy
// rule: point-to-point-family links always form, broadcast/NBMA links
// only form with a DR or BDR on either end.
func TestIsAdjacencyWorthy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		ifType     ospf.IfType
		localRole  ospf.DRRole
		remoteRole ospf.DRRole
		want       bool
	}{
		{"point-to-point always worthy", ospf.IfTypePointToPoint, ospf.DRRoleOther, ospf.DRRoleOther, true},
		{"point-to-multipoint always worthy", ospf.IfTypePointToMultipoint, ospf.DRRoleOther, ospf.DRRoleOther, true},
		{"virtual link always worthy", ospf.IfTypeVirtualLink, ospf.DRRoleOther, ospf.DRRoleOther, true},
		{"broadcast, neither DR nor BDR", ospf.IfTypeBroadcast, ospf.DRRoleOther, ospf.DRRoleOther, false},
		{"broadcast, local is DR", ospf.IfTypeBroadcast, ospf.DRRoleDR, ospf.DRRoleOther, true},
		{"broadcast, remote is BDR", ospf.IfTypeBroadcast, ospf.DRRoleOther, ospf.DRRoleBackup, true},
		{"NBMA, local is backup", ospf.IfTypeNBMA, ospf.DRRoleBackup, ospf.DRRoleOther, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ospf.IsAdjacencyWorthy(tt.ifType, tt.localRole, tt.remoteRole)
			if got != tt.want {
				t.Errorf("IsAdjacencyWorthy(%v, %v, %v) = %v, want %v",
					tt.ifType, tt.localRole, tt.remoteRole, got, tt.want)
			}
		})
	}
}

func containsNbrAction(actions []ospf.NbrAction, target ospf.NbrAction) bool {
	for _, a := range actions {
		if a == target {
			return true
		}
	}
	return false
}
