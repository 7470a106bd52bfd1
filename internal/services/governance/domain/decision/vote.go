package decision

import (
	"strings"
	"time"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/outcome"
	"github.com/shopspring/decimal"
)

// Vote is one agent's ballot. EquityAtVote is copied from the decision's
// frozen snapshot when the vote is cast.
type Vote struct {
	DecisionID   string
	AgentID      string
	Option       string
	EquityAtVote decimal.Decimal
	CastAt       time.Time
}

// NewVote admits a ballot for an active decision. A later ballot from the
// same agent replaces the earlier one.
func NewVote(decision Decision, agentID, option string, now func() time.Time) outcome.Outcome[Vote] {
	if now == nil {
		now = time.Now
	}
	at := now().UTC()
	agentID = strings.TrimSpace(agentID)
	option = strings.TrimSpace(option)

	if agentID == "" {
		return rejectVote(RejectionAgentRequired, "Agent id is required")
	}
	if decision.Status != StatusActive {
		return rejectVote(RejectionNotActive, "Decision is not active")
	}
	if !decision.VotingEndsAt.After(at) {
		return rejectVote(RejectionVotingEnded, "Voting has ended")
	}
	if !decision.HasOption(option) {
		return rejectVote(RejectionInvalidOption, "Invalid option: "+option)
	}
	equityAtVote, ok := decision.Snapshot.Equity(agentID)
	if !ok {
		return rejectVote(RejectionNotEligible, "Agent is not eligible to vote")
	}
	return outcome.Accept(Vote{
		DecisionID:   decision.ID,
		AgentID:      agentID,
		Option:       option,
		EquityAtVote: equityAtVote,
		CastAt:       at,
	})
}

func rejectVote(code, message string) outcome.Outcome[Vote] {
	return outcome.Reject[Vote](outcome.Rejection{Code: code, Message: message})
}
