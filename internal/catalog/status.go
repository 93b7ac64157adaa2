package catalog

import "errors"

// ErrInvalidTransition is returned when a status change is not in the
// transition table. Field-only updates that keep the current status are not
// transitions and never hit this error.
var ErrInvalidTransition = errors.New("invalid product status transition")

// Status is the product approval workflow state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
)

// transitions is the full workflow:
//
//	draft -> pending_approval
//	pending_approval -> approved | rejected
//	rejected -> pending_approval   (resubmission)
//
// approved is terminal.
var transitions = map[Status][]Status{
	StatusDraft:           {StatusPendingApproval},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusRejected:        {StatusPendingApproval},
	StatusApproved:        {},
}

// Valid reports whether s is a known workflow status.
func Valid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is in the transition table.
// A same-status write is not a transition and reports true.
func CanTransition(from, to Status) bool {
	if from == to {
		return Valid(from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns ErrInvalidTransition when the
// change is not allowed.
func Transition(from, to Status) error {
	if !Valid(to) {
		return ErrInvalidTransition
	}
	if !CanTransition(from, to) {
		return ErrInvalidTransition
	}
	return nil
}

// Statuses lists every workflow status, in workflow order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected}
}
