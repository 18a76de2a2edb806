package workflow

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/harentsoaR/armline-api/internal/models"
)

var (
	ErrUnknownStatus = errors.New("unknown status")
	ErrNoChange      = errors.New("report already has this status")
	ErrNotAllowed    = errors.New("status transition not allowed")
)

var transitions = map[string][]string{
	models.StatusSubmitted:   {models.StatusUnderReview},
	models.StatusUnderReview: {models.StatusActionTaken, models.StatusResolved},
	models.StatusActionTaken: {models.StatusResolved},
	models.StatusResolved:    {},
}

// Statuses lists every report status in workflow order.
func Statuses() []string {
	return []string{
		models.StatusSubmitted,
		models.StatusUnderReview,
		models.StatusActionTaken,
		models.StatusResolved,
	}
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// NextStatuses returns the statuses a report in status s may move to.
// Unknown statuses have no successors.
func NextStatuses(s string) []string {
	return append([]string{}, transitions[s]...)
}

// IsFinal reports whether no transition leaves s.
func IsFinal(s string) bool {
	return ValidStatus(s) && len(transitions[s]) == 0
}

// CanTransition checks a requested change against the transition table.
func CanTransition(from, to string) error {
	if !ValidStatus(from) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	if !ValidStatus(to) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if from == to {
		return ErrNoChange
	}
	if !lo.Contains(transitions[from], to) {
		return fmt.Errorf("%w: %q to %q", ErrNotAllowed, from, to)
	}
	return nil
}

// TransitionMessage is the system log line recorded for a status change.
func TransitionMessage(from, to string) string {
	return fmt.Sprintf("Status changed from %q to %q", from, to)
}
