package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/decision"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func (f serviceFixture) activeDecision(t *testing.T, company equity.Company, method equity.VotingMethod) decision.Decision {
	t.Helper()
	ctx := context.Background()
	draft, err := f.service.ProposeDecision(ctx, decision.CreateInput{
		CompanyID:    company.ID,
		ProposerID:   "admin",
		Title:        "Adopt the roadmap",
		VotingMethod: method,
		Options:      []string{"approve", "reject"},
	})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	active, err := f.service.ActivateDecision(ctx, draft.ID, f.clock.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	return active
}

func TestDecisionFlowEquityWeighted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.foundCompany(t, "alice", "bob")
	active := f.activeDecision(t, company, equity.VotingMethodEquityWeighted)

	if weight, _ := active.Snapshot.Equity("alice"); !weight.Equal(d("24.5")) {
		t.Fatalf("snapshot alice = %s, want 24.5", weight)
	}

	// Equity moved after activation must not change the vote.
	if _, err := f.service.Transfer(ctx, TransferInput{CompanyID: company.ID, FromAgentID: "alice", ToAgentID: "bob", Amount: d("20")}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	for agentID, option := range map[string]string{"admin": "approve", "alice": "reject", "bob": "reject"} {
		vote, err := f.service.CastVote(ctx, active.ID, agentID, option)
		if err != nil {
			t.Fatalf("vote %s: %v", agentID, err)
		}
		if agentID == "alice" && !vote.EquityAtVote.Equal(d("24.5")) {
			t.Fatalf("alice equity at vote = %s, want frozen 24.5", vote.EquityAtVote)
		}
	}

	closed, result, err := f.service.CloseDecision(ctx, active.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.Status != decision.StatusPassed || closed.WinningOption != "approve" {
		t.Fatalf("closed = %+v, want passed with approve", closed)
	}
	if !result.Tally["approve"].Weight.Equal(d("51")) {
		t.Fatalf("approve weight = %s, want 51", result.Tally["approve"].Weight)
	}

	stored, err := f.service.GetDecision(ctx, active.ID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if stored.Status != decision.StatusPassed || stored.ResolvedAt == nil {
		t.Fatalf("stored = %+v, want passed with resolved timestamp", stored)
	}
	if got := len(f.audit.actions(AuditDecisionResolved)); got != 1 {
		t.Fatalf("resolved audits = %d, want 1", got)
	}
	if got := testutil.ToFloat64(f.metrics.decisions.WithLabelValues(string(decision.StatusPassed))); got != 1 {
		t.Fatalf("passed metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.metrics.votes); got != 3 {
		t.Fatalf("vote metric = %v, want 3", got)
	}
}

func TestCastVoteRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.foundCompany(t, "alice")
	active := f.activeDecision(t, company, equity.VotingMethodOneAgentOneVote)

	if _, err := f.service.Join(ctx, JoinInput{CompanyID: company.ID, AgentID: "late", Role: equity.RoleMember}); err != nil {
		t.Fatalf("join late: %v", err)
	}

	tests := []struct {
		agentID string
		option  string
		code    string
	}{
		{"late", "approve", decision.RejectionNotEligible},
		{"alice", "maybe", decision.RejectionInvalidOption},
	}
	for _, tt := range tests {
		_, err := f.service.CastVote(ctx, active.ID, tt.agentID, tt.option)
		var rejection *RejectedError
		if !errors.As(err, &rejection) || rejection.Code() != tt.code {
			t.Fatalf("vote %s/%s err = %v, want %s", tt.agentID, tt.option, err, tt.code)
		}
	}

	f.clock.Advance(2 * time.Hour)
	_, err := f.service.CastVote(ctx, active.ID, "alice", "approve")
	var rejection *RejectedError
	if !errors.As(err, &rejection) || rejection.Code() != decision.RejectionVotingEnded {
		t.Fatalf("late vote err = %v, want voting ended", err)
	}
}

func TestProposeDecisionRequiresMemberProposer(t *testing.T) {
	f := newFixture(t)
	company := f.foundCompany(t)
	_, err := f.service.ProposeDecision(context.Background(), decision.CreateInput{
		CompanyID:    company.ID,
		ProposerID:   "stranger",
		Title:        "Take over",
		VotingMethod: equity.VotingMethodEquityWeighted,
		Options:      []string{"yes", "no"},
	})
	var rejection *RejectedError
	if !errors.As(err, &rejection) || rejection.Code() != RejectionProposerNotMember {
		t.Fatalf("err = %v, want proposer rejection", err)
	}
}

func TestActivateTwiceFails(t *testing.T) {
	f := newFixture(t)
	company := f.foundCompany(t, "alice")
	active := f.activeDecision(t, company, equity.VotingMethodEquityWeighted)

	_, err := f.service.ActivateDecision(context.Background(), active.ID, f.clock.Now().Add(time.Hour))
	if !errors.Is(err, decision.ErrInvalidStatusTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
}

func TestExpireDueClosesOnlyDueDecisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.foundCompany(t, "alice", "bob")

	quiet := f.activeDecision(t, company, equity.VotingMethodEquityWeighted)
	tied := f.activeDecision(t, company, equity.VotingMethodOneAgentOneVote)
	if _, err := f.service.CastVote(ctx, tied.ID, "alice", "approve"); err != nil {
		t.Fatalf("vote alice: %v", err)
	}
	if _, err := f.service.CastVote(ctx, tied.ID, "bob", "reject"); err != nil {
		t.Fatalf("vote bob: %v", err)
	}

	closed, err := f.service.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("expire due: %v", err)
	}
	if closed != 0 {
		t.Fatalf("closed = %d before deadline, want 0", closed)
	}

	f.clock.Advance(time.Hour)
	closed, err = f.service.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("expire due: %v", err)
	}
	if closed != 2 {
		t.Fatalf("closed = %d, want 2", closed)
	}

	quietStored, _ := f.service.GetDecision(ctx, quiet.ID)
	if quietStored.Status != decision.StatusExpired {
		t.Fatalf("quiet status = %s, want expired", quietStored.Status)
	}
	tiedStored, _ := f.service.GetDecision(ctx, tied.ID)
	if tiedStored.Status != decision.StatusRejected {
		t.Fatalf("tied status = %s, want rejected", tiedStored.Status)
	}

	remaining, err := f.service.ListDecisions(ctx, company.ID, decision.StatusActive)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("active decisions = %d, want 0", len(remaining))
	}
	if f.service.decisionLocks.size() != 0 {
		t.Fatalf("decision locks = %d, want released", f.service.decisionLocks.size())
	}
}

func TestCloseDecisionBeforeDeadlineNeedsQuorum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.foundCompany(t, "alice", "bob")
	active := f.activeDecision(t, company, equity.VotingMethodEquityWeighted)

	if _, err := f.service.CastVote(ctx, active.ID, "alice", "approve"); err != nil {
		t.Fatalf("vote alice: %v", err)
	}
	_, _, err := f.service.CloseDecision(ctx, active.ID)
	var rejection *RejectedError
	if !errors.As(err, &rejection) || rejection.Code() != decision.RejectionVotingOpen {
		t.Fatalf("err = %v, want voting open rejection", err)
	}
	stored, err := f.service.GetDecision(ctx, active.ID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	if stored.Status != decision.StatusActive || stored.ResolvedAt != nil {
		t.Fatalf("stored = %+v, want still active", stored)
	}

	if _, err := f.service.CastVote(ctx, active.ID, "admin", "approve"); err != nil {
		t.Fatalf("vote admin: %v", err)
	}
	closed, _, err := f.service.CloseDecision(ctx, active.ID)
	if err != nil {
		t.Fatalf("close with quorum: %v", err)
	}
	if closed.Status != decision.StatusPassed {
		t.Fatalf("status = %s, want passed", closed.Status)
	}
}

func TestVotesReplaceEarlierBallot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := f.foundCompany(t, "alice")
	active := f.activeDecision(t, company, equity.VotingMethodOneAgentOneVote)

	if _, err := f.service.CastVote(ctx, active.ID, "alice", "reject"); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	f.clock.Advance(time.Minute)
	if _, err := f.service.CastVote(ctx, active.ID, "alice", "approve"); err != nil {
		t.Fatalf("second vote: %v", err)
	}
	votes, err := f.service.Votes(ctx, active.ID)
	if err != nil {
		t.Fatalf("votes: %v", err)
	}
	if len(votes) != 1 || votes[0].Option != "approve" {
		t.Fatalf("votes = %+v, want single approve", votes)
	}
}
