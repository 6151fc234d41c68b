// Package kanban tracks what happened to an application after it was sent.
//
// Status graph of an applied record:
//
//	TO_APPLY ──► APPLIED ──► SCREENING ──► INTERVIEW ──► OFFER ──► ACCEPTED
//	                │            │              │           │
//	                └────────────┴──────────────┴───────────┴──► REJECTED | WITHDRAWN
//
// APPLIED may also move straight to INTERVIEW, and to GHOSTED after silence.
// GHOSTED can come back to life as SCREENING or INTERVIEW.
// ACCEPTED, REJECTED and WITHDRAWN are terminal.
package kanban

import "fmt"

// Status is the tag stored on an applied record.
type Status string

const (
	StatusToApply   Status = "TO_APPLY"
	StatusApplied   Status = "APPLIED"
	StatusScreening Status = "SCREENING"
	StatusInterview Status = "INTERVIEW"
	StatusOffer     Status = "OFFER"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusWithdrawn Status = "WITHDRAWN"
	StatusGhosted   Status = "GHOSTED"
)

var validTransitions = map[Status][]Status{
	StatusToApply:   {StatusApplied, StatusWithdrawn},
	StatusApplied:   {StatusScreening, StatusInterview, StatusRejected, StatusWithdrawn, StatusGhosted},
	StatusScreening: {StatusInterview, StatusRejected, StatusWithdrawn, StatusGhosted},
	StatusInterview: {StatusOffer, StatusRejected, StatusWithdrawn, StatusGhosted},
	StatusOffer:     {StatusAccepted, StatusRejected, StatusWithdrawn},
	StatusGhosted:   {StatusScreening, StatusInterview, StatusRejected},
}

// ParseStatus converts a raw string to a Status. Matching is exact.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusToApply, StatusApplied, StatusScreening, StatusInterview, StatusOffer,
		StatusAccepted, StatusRejected, StatusWithdrawn, StatusGhosted:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	_, ok := validTransitions[s]
	return !ok
}
