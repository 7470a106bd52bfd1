package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/louisbranch/moltcompany/internal/platform/timeouts"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/decision"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/outcome"
	"go.opentelemetry.io/otel/attribute"
)

// Rejection codes raised by the service around decisions.
const (
	RejectionProposerNotMember = "DECISION_PROPOSER_NOT_MEMBER"
)

// ProposeDecision stores a draft decision for a company.
func (s *Service) ProposeDecision(ctx context.Context, input decision.CreateInput) (created decision.Decision, err error) {
	ctx, span := s.startSpan(ctx, "propose_decision", attribute.String("company.id", input.CompanyID))
	defer func() { finishSpan(span, err) }()

	created, err = decision.Create(input, s.now, s.idGenerator)
	if err != nil {
		return decision.Decision{}, err
	}
	ledger, err := s.Ledger(ctx, created.CompanyID)
	if err != nil {
		return decision.Decision{}, err
	}
	if created.ProposerID != "" {
		if _, ok := ledger.Member(created.ProposerID); !ok {
			return decision.Decision{}, s.reject("propose_decision", rejected("propose_decision", []outcome.Rejection{{
				Code:    RejectionProposerNotMember,
				Message: "Proposer is not a member of the company",
			}}))
		}
	}
	if err := s.store.CreateDecision(ctx, created); err != nil {
		return decision.Decision{}, wrap("create decision", err)
	}
	s.metrics.decision(string(created.Status))
	s.record(ctx, AuditRecord{
		Action:     AuditDecisionProposed,
		ActorID:    created.ProposerID,
		CompanyID:  created.CompanyID,
		ResourceID: created.ID,
		Metadata: map[string]string{
			"title":         created.Title,
			"voting_method": string(created.VotingMethod),
			"options":       strings.Join(created.Options, ","),
			"quorum_pct":    created.QuorumPct.String(),
		},
	})
	return created, nil
}

// ActivateDecision opens voting until votingEndsAt. The equity snapshot is
// frozen under the company lock so concurrent ledger changes cannot leak
// into the vote.
func (s *Service) ActivateDecision(ctx context.Context, decisionID string, votingEndsAt time.Time) (activated decision.Decision, err error) {
	decisionID = strings.TrimSpace(decisionID)
	ctx, span := s.startSpan(ctx, "activate_decision", attribute.String("decision.id", decisionID))
	defer func() { finishSpan(span, err) }()

	unlockDecision := s.decisionLocks.Lock(decisionID)
	defer unlockDecision()

	current, err := s.store.GetDecision(ctx, decisionID)
	if err != nil {
		return decision.Decision{}, wrap("load decision", err)
	}
	unlockCompany := s.companyLocks.Lock(current.CompanyID)
	defer unlockCompany()

	ledger, err := s.Ledger(ctx, current.CompanyID)
	if err != nil {
		return decision.Decision{}, err
	}
	activated, err = decision.Activate(current, ledger.Snapshot(), votingEndsAt, s.now)
	if err != nil {
		return decision.Decision{}, err
	}
	if err := s.store.UpdateDecision(ctx, activated); err != nil {
		return decision.Decision{}, wrap("update decision", err)
	}

	s.metrics.decision(string(activated.Status))
	s.record(ctx, AuditRecord{
		Action:     AuditDecisionActivated,
		ActorID:    activated.ProposerID,
		CompanyID:  activated.CompanyID,
		ResourceID: activated.ID,
		Metadata: map[string]string{
			"voting_ends_at": activated.VotingEndsAt.Format(time.RFC3339),
			"eligible":       formatID(int64(activated.Snapshot.Len())),
		},
	})
	s.notify(ctx, Notification{
		Type:       "decision.activated",
		CompanyID:  activated.CompanyID,
		ResourceID: activated.ID,
		Payload:    map[string]string{"title": activated.Title},
	})
	return activated, nil
}

// CastVote records an agent's ballot, replacing any earlier one.
func (s *Service) CastVote(ctx context.Context, decisionID, agentID, option string) (vote decision.Vote, err error) {
	decisionID = strings.TrimSpace(decisionID)
	ctx, span := s.startSpan(ctx, "cast_vote", attribute.String("decision.id", decisionID))
	defer func() { finishSpan(span, err) }()

	unlock := s.decisionLocks.Lock(decisionID)
	defer unlock()

	current, err := s.store.GetDecision(ctx, decisionID)
	if err != nil {
		return decision.Vote{}, wrap("load decision", err)
	}
	result := decision.NewVote(current, agentID, option, s.now)
	if !result.Accepted() {
		return decision.Vote{}, s.reject("cast_vote", rejected("cast_vote", result.Rejections))
	}
	if err := s.store.PutVote(ctx, result.Value); err != nil {
		return decision.Vote{}, wrap("store vote", err)
	}
	s.metrics.vote()
	return result.Value, nil
}

// CloseDecision resolves an active decision's votes and stores its terminal
// status. Before the deadline it closes only decisions that met quorum.
func (s *Service) CloseDecision(ctx context.Context, decisionID string) (closed decision.Decision, result decision.Result, err error) {
	decisionID = strings.TrimSpace(decisionID)
	ctx, span := s.startSpan(ctx, "close_decision", attribute.String("decision.id", decisionID))
	defer func() { finishSpan(span, err) }()

	unlock := s.decisionLocks.Lock(decisionID)
	defer unlock()

	started := time.Now()
	current, err := s.store.GetDecision(ctx, decisionID)
	if err != nil {
		return decision.Decision{}, decision.Result{}, wrap("load decision", err)
	}
	votes, err := s.store.ListVotes(ctx, decisionID)
	if err != nil {
		return decision.Decision{}, decision.Result{}, wrap("load votes", err)
	}
	closed, result, err = decision.Close(current, votes, s.now)
	if errors.Is(err, decision.ErrVotingOpen) {
		return decision.Decision{}, result, s.reject("close_decision", rejected("close_decision", []outcome.Rejection{{
			Code:    decision.RejectionVotingOpen,
			Message: "Voting is still open and quorum is not met",
		}}))
	}
	if err != nil {
		return decision.Decision{}, decision.Result{}, err
	}
	if err := s.store.UpdateDecision(ctx, closed); err != nil {
		return decision.Decision{}, decision.Result{}, wrap("update decision", err)
	}
	s.metrics.observeResolution(time.Since(started))
	s.metrics.decision(string(closed.Status))
	span.SetAttributes(attribute.String("decision.status", string(closed.Status)))

	s.record(ctx, AuditRecord{
		Action:     AuditDecisionResolved,
		CompanyID:  closed.CompanyID,
		ResourceID: closed.ID,
		Metadata: map[string]string{
			"status":            string(closed.Status),
			"winning_option":    closed.WinningOption,
			"reason":            result.Reason,
			"total_vote_weight": result.TotalVoteWeight.String(),
			"voter_count":       formatID(int64(result.VoterCount)),
		},
	})
	s.notify(ctx, Notification{
		Type:       "decision.resolved",
		CompanyID:  closed.CompanyID,
		ResourceID: closed.ID,
		Payload: map[string]string{
			"status":         string(closed.Status),
			"winning_option": closed.WinningOption,
		},
	})
	s.logger.Info().
		Str("decision_id", closed.ID).
		Str("status", string(closed.Status)).
		Str("reason", result.Reason).
		Msg("decision closed")
	return closed, result, nil
}

// ExpireDue closes every active decision whose voting window has ended.
// Failures are logged and the sweep continues; the count of closed
// decisions is returned.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Sweep)
	defer cancel()

	due, err := s.store.ListDueDecisions(ctx, s.now())
	if err != nil {
		return 0, wrap("list due decisions", err)
	}
	closed := 0
	for _, record := range due {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		if _, _, err := s.CloseDecision(ctx, record.ID); err != nil {
			s.logger.Error().Err(err).Str("decision_id", record.ID).Msg("close due decision")
			continue
		}
		closed++
	}
	return closed, nil
}

// GetDecision loads one decision.
func (s *Service) GetDecision(ctx context.Context, decisionID string) (decision.Decision, error) {
	record, err := s.store.GetDecision(ctx, decisionID)
	return record, wrap("get decision", err)
}

// ListDecisions lists a company's decisions, optionally by status.
func (s *Service) ListDecisions(ctx context.Context, companyID string, status decision.Status) ([]decision.Decision, error) {
	records, err := s.store.ListDecisions(ctx, companyID, status)
	return records, wrap("list decisions", err)
}

// Votes lists a decision's ballots.
func (s *Service) Votes(ctx context.Context, decisionID string) ([]decision.Vote, error) {
	votes, err := s.store.ListVotes(ctx, decisionID)
	return votes, wrap("list votes", err)
}
