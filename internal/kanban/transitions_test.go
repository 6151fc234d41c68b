package kanban_test

import (
	"testing"

	"jobmate/autoapply-service/internal/kanban"
)

var allStatuses = []kanban.Status{
	kanban.StatusToApply, kanban.StatusApplied, kanban.StatusScreening,
	kanban.StatusInterview, kanban.StatusOffer, kanban.StatusAccepted,
	kanban.StatusRejected, kanban.StatusWithdrawn, kanban.StatusGhosted,
}

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_AllConstantsRoundTrip(t *testing.T) {
	for _, s := range allStatuses {
		got, err := kanban.ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_Rejects(t *testing.T) {
	for _, s := range []string{"", "UNKNOWN", "applied", " APPLIED", "HIRED"} {
		if _, err := kanban.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed ───────────────────────────────────────────────────

func TestIsTransitionAllowed_Forward(t *testing.T) {
	cases := []struct {
		from kanban.Status
		to   kanban.Status
	}{
		{kanban.StatusToApply, kanban.StatusApplied},
		{kanban.StatusApplied, kanban.StatusScreening},
		{kanban.StatusApplied, kanban.StatusInterview},
		{kanban.StatusScreening, kanban.StatusInterview},
		{kanban.StatusInterview, kanban.StatusOffer},
		{kanban.StatusOffer, kanban.StatusAccepted},
		{kanban.StatusApplied, kanban.StatusGhosted},
		{kanban.StatusGhosted, kanban.StatusInterview},
	}
	for _, c := range cases {
		if !kanban.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_Backwards(t *testing.T) {
	cases := []struct {
		from kanban.Status
		to   kanban.Status
	}{
		{kanban.StatusApplied, kanban.StatusToApply},
		{kanban.StatusInterview, kanban.StatusScreening},
		{kanban.StatusOffer, kanban.StatusInterview},
		{kanban.StatusGhosted, kanban.StatusApplied},
	}
	for _, c := range cases {
		if kanban.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (backwards)", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_TerminalStatesHaveNoOutgoing(t *testing.T) {
	for _, from := range []kanban.Status{kanban.StatusAccepted, kanban.StatusRejected, kanban.StatusWithdrawn} {
		if !kanban.IsTerminal(from) {
			t.Errorf("IsTerminal(%s) should be true", from)
		}
		for _, to := range allStatuses {
			if kanban.IsTransitionAllowed(from, to) {
				t.Errorf("IsTransitionAllowed(%s → %s) should be false (terminal)", from, to)
			}
		}
	}
}

func TestIsTransitionAllowed_Self(t *testing.T) {
	for _, s := range allStatuses {
		if kanban.IsTransitionAllowed(s, s) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (self)", s, s)
		}
	}
}
