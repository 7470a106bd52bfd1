package decision

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/louisbranch/moltcompany/internal/platform/id"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
	"github.com/shopspring/decimal"
)

// Default quorums by voting method. Equity-weighted quorum is a percentage
// of snapshot equity; one-agent-one-vote quorum is an absolute voter count.
// Unanimous decisions always require every snapshot agent, so its value is
// informational.
var (
	DefaultEquityWeightedQuorum  = decimal.NewFromInt(50)
	DefaultOneAgentOneVoteQuorum = decimal.NewFromInt(1)
	DefaultUnanimousQuorum       = decimal.NewFromInt(100)
)

// Decision is a governance proposal voted on by company members.
type Decision struct {
	ID           string
	CompanyID    string
	ProposerID   string
	Title        string
	Description  string
	Status       Status
	VotingMethod equity.VotingMethod
	// Options are the choices voters pick from, frozen once active.
	Options   []string
	QuorumPct decimal.Decimal
	// VotingEndsAt is zero until the decision is activated.
	VotingEndsAt  time.Time
	WinningOption string
	// Snapshot is captured on activation and never replaced.
	Snapshot    equity.Snapshot
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ActivatedAt *time.Time
	ResolvedAt  *time.Time
}

// CreateInput describes a new decision.
type CreateInput struct {
	CompanyID    string
	ProposerID   string
	Title        string
	Description  string
	VotingMethod equity.VotingMethod
	Options      []string
	// QuorumPct falls back to the method's default when unset.
	QuorumPct decimal.NullDecimal
}

// Create builds a draft decision with a generated ID and timestamps.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Decision, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	companyID := strings.TrimSpace(input.CompanyID)
	if companyID == "" {
		return Decision{}, ErrEmptyCompanyID
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Decision{}, ErrEmptyTitle
	}
	method, err := equity.ParseVotingMethod(string(input.VotingMethod))
	if err != nil {
		return Decision{}, err
	}
	options, err := NormalizeOptions(input.Options)
	if err != nil {
		return Decision{}, err
	}
	quorum, err := normalizeQuorum(method, input.QuorumPct)
	if err != nil {
		return Decision{}, err
	}

	decisionID, err := idGenerator()
	if err != nil {
		return Decision{}, fmt.Errorf("generate decision id: %w", err)
	}
	createdAt := now().UTC()
	return Decision{
		ID:           decisionID,
		CompanyID:    companyID,
		ProposerID:   strings.TrimSpace(input.ProposerID),
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       StatusDraft,
		VotingMethod: method,
		Options:      options,
		QuorumPct:    quorum,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}

// NormalizeOptions trims options and requires at least two unique, non-empty
// values. Order is preserved.
func NormalizeOptions(options []string) ([]string, error) {
	normalized := make([]string, 0, len(options))
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			return nil, invalidOptions("options must not be empty")
		}
		if _, ok := seen[trimmed]; ok {
			return nil, invalidOptions(fmt.Sprintf("option %q is duplicated", trimmed))
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	if len(normalized) < 2 {
		return nil, invalidOptions("at least two options are required")
	}
	return normalized, nil
}

func invalidOptions(reason string) error {
	return apperrors.WithMetadata(
		apperrors.CodeDecisionInvalidOptions,
		"decision options are invalid: "+reason,
		map[string]string{"Reason": reason},
	)
}

// DefaultQuorum returns the quorum used when none is supplied.
func DefaultQuorum(method equity.VotingMethod) decimal.Decimal {
	switch method {
	case equity.VotingMethodOneAgentOneVote:
		return DefaultOneAgentOneVoteQuorum
	case equity.VotingMethodUnanimous:
		return DefaultUnanimousQuorum
	default:
		return DefaultEquityWeightedQuorum
	}
}

func normalizeQuorum(method equity.VotingMethod, quorum decimal.NullDecimal) (decimal.Decimal, error) {
	if !quorum.Valid {
		return DefaultQuorum(method), nil
	}
	invalid := func(reason string) error {
		return apperrors.WithMetadata(
			apperrors.CodeDecisionInvalidQuorum,
			"decision quorum is invalid: "+reason,
			map[string]string{"QuorumPct": quorum.Decimal.String(), "Reason": reason},
		)
	}
	if quorum.Decimal.IsNegative() {
		return decimal.Zero, invalid("quorum must not be negative")
	}
	if method != equity.VotingMethodOneAgentOneVote && quorum.Decimal.GreaterThan(equity.Hundred()) {
		return decimal.Zero, invalid("quorum percentage exceeds 100")
	}
	return quorum.Decimal, nil
}

// Activate opens voting: the decision moves to active, its options are frozen
// and snapshot is captured. The snapshot is taken exactly once.
func Activate(decision Decision, snapshot equity.Snapshot, votingEndsAt time.Time, now func() time.Time) (Decision, error) {
	if now == nil {
		now = time.Now
	}
	at := now().UTC()
	activated, err := Transition(decision, StatusActive, func() time.Time { return at })
	if err != nil {
		return Decision{}, err
	}
	if decision.ActivatedAt != nil || decision.Snapshot.Len() > 0 {
		return Decision{}, ErrSnapshotFrozen
	}
	if !votingEndsAt.After(at) {
		return Decision{}, apperrors.WithMetadata(
			apperrors.CodeDecisionInvalidVotingWindow,
			fmt.Sprintf("voting must end after %s", at.Format(time.RFC3339)),
			map[string]string{"VotingEndsAt": votingEndsAt.UTC().Format(time.RFC3339)},
		)
	}
	activated.Options = append([]string(nil), decision.Options...)
	activated.Snapshot = snapshot
	activated.VotingEndsAt = votingEndsAt.UTC()
	return activated, nil
}

// HasOption reports whether option is one of the decision's options.
func (d Decision) HasOption(option string) bool {
	for _, candidate := range d.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

// IsDue reports whether an active decision's voting window has closed.
func IsDue(decision Decision, now time.Time) bool {
	return decision.Status == StatusActive && !decision.VotingEndsAt.After(now)
}

// Close resolves an active decision's votes and moves it to its terminal
// status: passed with a winner, expired when quorum was not met, rejected
// otherwise. Before the deadline a decision closes only once quorum is met;
// an early close without quorum fails with ErrVotingOpen and leaves the
// decision active.
func Close(decision Decision, votes []Vote, now func() time.Time) (Decision, Result, error) {
	if now == nil {
		now = time.Now
	}
	if decision.Status != StatusActive {
		return Decision{}, Result{}, apperrors.WithMetadata(
			apperrors.CodeDecisionInvalidStatusTransition,
			fmt.Sprintf("decision status transition not allowed: %s -> closed", decision.Status),
			map[string]string{"FromStatus": string(decision.Status), "ToStatus": "closed"},
		)
	}
	result, err := Resolve(votes, decision.Options, decision.VotingMethod, decision.Snapshot, decision.QuorumPct)
	if err != nil {
		return Decision{}, Result{}, err
	}
	if !result.QuorumMet && !IsDue(decision, now()) {
		return Decision{}, result, ErrVotingOpen
	}
	closed, err := Transition(decision, TerminalStatus(result), now)
	if err != nil {
		return Decision{}, Result{}, err
	}
	closed.WinningOption = result.WinningOption
	return closed, result, nil
}

// TerminalStatus maps a resolution to the status a decision closes in.
func TerminalStatus(result Result) Status {
	switch {
	case result.Passed:
		return StatusPassed
	case !result.QuorumMet:
		return StatusExpired
	default:
		return StatusRejected
	}
}
