package decision

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
)

// Status describes where a decision is in its lifecycle.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusPassed   Status = "passed"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// transitions lists the statuses reachable from each status. Terminal
// statuses have no entry.
var transitions = map[Status][]Status{
	StatusDraft:  {StatusActive},
	StatusActive: {StatusPassed, StatusRejected, StatusExpired},
}

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPassed, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// ParseStatus canonicalizes a status label.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	return status, status.Valid()
}

// IsStatusTransitionAllowed reports whether a status transition is permitted.
func IsStatusTransitionAllowed(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applies a status change and updates timestamps. It fails before
// touching anything when the transition table does not allow it.
func Transition(decision Decision, target Status, now func() time.Time) (Decision, error) {
	if now == nil {
		now = time.Now
	}
	if !IsStatusTransitionAllowed(decision.Status, target) {
		return Decision{}, apperrors.WithMetadata(
			apperrors.CodeDecisionInvalidStatusTransition,
			fmt.Sprintf("decision status transition not allowed: %s -> %s", decision.Status, target),
			map[string]string{"FromStatus": string(decision.Status), "ToStatus": string(target)},
		)
	}

	updated := decision
	updated.Status = target
	updatedAt := now().UTC()
	updated.UpdatedAt = updatedAt
	if target == StatusActive && updated.ActivatedAt == nil {
		updated.ActivatedAt = &updatedAt
	}
	if target.Terminal() && updated.ResolvedAt == nil {
		updated.ResolvedAt = &updatedAt
	}
	return updated, nil
}
