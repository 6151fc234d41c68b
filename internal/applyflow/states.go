// Package applyflow drives one in-site application through its modal.
//
// State graph of an attempt:
//
//	IDLE ──► NAVIGATED ──► DETECTING ──► MODAL_OPEN ──► FILLING_FIELDS ──► AWAITING_ACTION ──► VALIDATING
//	             │              │                            ▲                   │                 │
//	             │              └──► DISMISSED               └───────────────────┴─────────────────┤
//	             └──► SUCCESS (already applied)                                                    ├──► SUCCESS
//	                                                                                               └──► STUCK ──► DISMISSED
//
// The FILLING_FIELDS → AWAITING_ACTION → VALIDATING cycle runs at most
// MaxSteps times. AWAITING_ACTION also reaches SUCCESS when the modal is gone
// after a clean submit, and MODAL_OPEN reaches STUCK on cancellation.
package applyflow

// State is a step of one application attempt.
type State string

const (
	StateIdle           State = "IDLE"
	StateNavigated      State = "NAVIGATED"
	StateDetecting      State = "DETECTING"
	StateModalOpen      State = "MODAL_OPEN"
	StateFillingFields  State = "FILLING_FIELDS"
	StateAwaitingAction State = "AWAITING_ACTION"
	StateValidating     State = "VALIDATING"
	StateSuccess        State = "SUCCESS"
	StateStuck          State = "STUCK"
	StateDismissed      State = "DISMISSED"
)

var validTransitions = map[State][]State{
	StateIdle:           {StateNavigated},
	StateNavigated:      {StateDetecting, StateSuccess},
	StateDetecting:      {StateModalOpen, StateDismissed},
	StateModalOpen:      {StateFillingFields, StateStuck},
	StateFillingFields:  {StateAwaitingAction},
	StateAwaitingAction: {StateValidating, StateFillingFields, StateSuccess, StateStuck},
	StateValidating:     {StateFillingFields, StateSuccess, StateStuck},
	StateStuck:          {StateDismissed},
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for states that end an attempt.
func IsTerminal(s State) bool {
	return s == StateSuccess || s == StateDismissed
}
