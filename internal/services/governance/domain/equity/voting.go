package equity

import (
	"strings"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/shopspring/decimal"
)

// VotingMethod selects how votes are weighted and how quorum is measured.
type VotingMethod string

const (
	VotingMethodEquityWeighted  VotingMethod = "equity_weighted"
	VotingMethodOneAgentOneVote VotingMethod = "one_agent_one_vote"
	VotingMethodUnanimous       VotingMethod = "unanimous"
)

// Valid reports whether the method is supported.
func (m VotingMethod) Valid() bool {
	switch m {
	case VotingMethodEquityWeighted, VotingMethodOneAgentOneVote, VotingMethodUnanimous:
		return true
	default:
		return false
	}
}

// ParseVotingMethod canonicalizes a voting method label.
func ParseVotingMethod(value string) (VotingMethod, error) {
	method := VotingMethod(strings.ToLower(strings.TrimSpace(value)))
	if !method.Valid() {
		return "", UnknownVotingMethodError(method)
	}
	return method, nil
}

// CalculateVoteWeight returns the weight agentID carries under method.
//
// Equity-weighted votes weigh the agent's snapshot equity; agents missing from
// the snapshot weigh zero. Every other method gives each agent weight one.
func CalculateVoteWeight(agentID string, snapshot Snapshot, method VotingMethod) (decimal.Decimal, error) {
	switch method {
	case VotingMethodEquityWeighted:
		value, ok := snapshot.Equity(agentID)
		if !ok {
			return decimal.Zero, nil
		}
		return value, nil
	case VotingMethodOneAgentOneVote, VotingMethodUnanimous:
		return one, nil
	default:
		return decimal.Zero, UnknownVotingMethodError(method)
	}
}

// UnknownVotingMethodError reports a voting method outside the supported set.
func UnknownVotingMethodError(method VotingMethod) error {
	return apperrors.WithMetadata(
		apperrors.CodeDecisionUnknownVotingMethod,
		"Unknown voting method: "+string(method),
		map[string]string{"VotingMethod": string(method)},
	)
}
