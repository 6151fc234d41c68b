package applyflow_test

import (
	"testing"

	"jobmate/autoapply-service/internal/applyflow"
)

func TestIsTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to applyflow.State
		want     bool
	}{
		{applyflow.StateIdle, applyflow.StateNavigated, true},
		{applyflow.StateNavigated, applyflow.StateSuccess, true},
		{applyflow.StateNavigated, applyflow.StateDetecting, true},
		{applyflow.StateDetecting, applyflow.StateDismissed, true},
		{applyflow.StateAwaitingAction, applyflow.StateValidating, true},
		{applyflow.StateValidating, applyflow.StateFillingFields, true},
		{applyflow.StateStuck, applyflow.StateDismissed, true},
		{applyflow.StateAwaitingAction, applyflow.StateSuccess, true},
		{applyflow.StateModalOpen, applyflow.StateStuck, true},

		{applyflow.StateIdle, applyflow.StateModalOpen, false},
		{applyflow.StateModalOpen, applyflow.StateSuccess, false},
		{applyflow.StateSuccess, applyflow.StateFillingFields, false},
		{applyflow.StateDismissed, applyflow.StateIdle, false},
	}
	for _, c := range cases {
		if got := applyflow.IsTransitionAllowed(c.from, c.to); got != c.want {
			t.Errorf("IsTransitionAllowed(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []applyflow.State{applyflow.StateSuccess, applyflow.StateDismissed} {
		if !applyflow.IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []applyflow.State{applyflow.StateIdle, applyflow.StateStuck, applyflow.StateValidating} {
		if applyflow.IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
