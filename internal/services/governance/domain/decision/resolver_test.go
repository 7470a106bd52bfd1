package decision

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
	"github.com/shopspring/decimal"
)

var approveReject = []string{"approve", "reject"}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func foundingSnapshot() equity.Snapshot {
	return equity.NewSnapshot(map[string]decimal.Decimal{
		"admin": d("51"),
		"alice": d("24.5"),
		"bob":   d("24.5"),
	})
}

func ballot(snapshot equity.Snapshot, agentID, option string) Vote {
	weight, _ := snapshot.Equity(agentID)
	return Vote{DecisionID: "dec-1", AgentID: agentID, Option: option, EquityAtVote: weight}
}

func adminAgainstMembers(snapshot equity.Snapshot) []Vote {
	return []Vote{
		ballot(snapshot, "admin", "approve"),
		ballot(snapshot, "alice", "reject"),
		ballot(snapshot, "bob", "reject"),
	}
}

func TestResolveEquityWeightedFavorsEquity(t *testing.T) {
	snapshot := foundingSnapshot()
	result, err := Resolve(adminAgainstMembers(snapshot), approveReject, equity.VotingMethodEquityWeighted, snapshot, d("50"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !result.Passed || result.WinningOption != "approve" {
		t.Fatalf("result = %+v, want approve to pass", result)
	}
	if got := result.Tally["approve"].Weight; !got.Equal(d("51")) {
		t.Fatalf("approve weight = %s, want 51", got)
	}
	if got := result.Tally["reject"].Weight; !got.Equal(d("49")) {
		t.Fatalf("reject weight = %s, want 49", got)
	}
	if !result.TotalVoteWeight.Equal(d("100")) || result.VoterCount != 3 {
		t.Fatalf("total = %s voters = %d, want 100 and 3", result.TotalVoteWeight, result.VoterCount)
	}
}

func TestResolveOneAgentOneVoteIgnoresEquity(t *testing.T) {
	snapshot := foundingSnapshot()
	result, err := Resolve(adminAgainstMembers(snapshot), approveReject, equity.VotingMethodOneAgentOneVote, snapshot, d("2"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !result.Passed || result.WinningOption != "reject" {
		t.Fatalf("result = %+v, want reject to pass", result)
	}
	if got := result.Tally["reject"].Count; got != 2 {
		t.Fatalf("reject count = %d, want 2", got)
	}
}

func TestResolveUnanimous(t *testing.T) {
	snapshot := foundingSnapshot()
	all := []Vote{
		ballot(snapshot, "admin", "approve"),
		ballot(snapshot, "alice", "approve"),
		ballot(snapshot, "bob", "approve"),
	}

	result, err := Resolve(all, approveReject, equity.VotingMethodUnanimous, snapshot, DefaultUnanimousQuorum)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !result.Passed || result.WinningOption != "approve" {
		t.Fatalf("result = %+v, want approve to pass", result)
	}

	result, _ = Resolve(all[:2], approveReject, equity.VotingMethodUnanimous, snapshot, DefaultUnanimousQuorum)
	if result.Passed || result.Reason != ReasonNotAllMembers {
		t.Fatalf("result = %+v, want missing participation", result)
	}

	split := append(all[:2:2], ballot(snapshot, "bob", "reject"))
	result, _ = Resolve(split, approveReject, equity.VotingMethodUnanimous, snapshot, DefaultUnanimousQuorum)
	if result.Passed || !result.QuorumMet || result.Reason != ReasonNoConsensus {
		t.Fatalf("result = %+v, want no consensus", result)
	}
}

func TestResolveQuorumNotMet(t *testing.T) {
	snapshot := foundingSnapshot()
	votes := []Vote{ballot(snapshot, "alice", "approve")}

	result, _ := Resolve(votes, approveReject, equity.VotingMethodEquityWeighted, snapshot, d("50"))
	if result.Passed || result.QuorumMet || result.Reason != ReasonQuorumNotMet {
		t.Fatalf("result = %+v, want quorum not met", result)
	}
	if result.WinningOption != "" {
		t.Fatalf("winning option = %q, want empty", result.WinningOption)
	}

	empty := equity.NewSnapshot(nil)
	result, _ = Resolve(nil, approveReject, equity.VotingMethodEquityWeighted, empty, decimal.Zero)
	if result.QuorumMet {
		t.Fatal("zero snapshot equity must not meet quorum")
	}
}

func TestResolveKeepsLastVotePerAgent(t *testing.T) {
	snapshot := foundingSnapshot()
	votes := []Vote{
		ballot(snapshot, "alice", "reject"),
		ballot(snapshot, "bob", "reject"),
		ballot(snapshot, "alice", "approve"),
	}
	result, err := Resolve(votes, approveReject, equity.VotingMethodOneAgentOneVote, snapshot, d("1"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.VoterCount != 2 {
		t.Fatalf("voter count = %d, want 2", result.VoterCount)
	}
	if got := result.Tally["approve"].Voters; !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("approve voters = %v, want [alice]", got)
	}
	if got := result.Tally["reject"].Voters; !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("reject voters = %v, want [bob]", got)
	}
}

func TestResolveIgnoresUnknownOptions(t *testing.T) {
	snapshot := foundingSnapshot()
	votes := []Vote{
		ballot(snapshot, "admin", "approve"),
		ballot(snapshot, "alice", "maybe"),
	}
	result, _ := Resolve(votes, approveReject, equity.VotingMethodOneAgentOneVote, snapshot, d("1"))
	if result.VoterCount != 1 {
		t.Fatalf("voter count = %d, want 1", result.VoterCount)
	}
	if _, ok := result.Tally["maybe"]; ok {
		t.Fatal("unknown option must not be tallied")
	}
}

func TestResolveTieDoesNotPass(t *testing.T) {
	snapshot := foundingSnapshot()
	votes := []Vote{
		ballot(snapshot, "alice", "reject"),
		ballot(snapshot, "bob", "approve"),
	}
	result, err := Resolve(votes, approveReject, equity.VotingMethodEquityWeighted, snapshot, d("40"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Passed || !result.QuorumMet {
		t.Fatalf("result = %+v, want quorum met without winner", result)
	}
	if !reflect.DeepEqual(result.Tied, []string{"approve", "reject"}) {
		t.Fatalf("tied = %v, want option order", result.Tied)
	}
	if result.Reason != "Tie between options: approve, reject" {
		t.Fatalf("reason = %q", result.Reason)
	}
	if got := TerminalStatus(result); got != StatusRejected {
		t.Fatalf("terminal status = %s, want rejected", got)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	snapshot := foundingSnapshot()
	votes := adminAgainstMembers(snapshot)
	first, _ := Resolve(votes, approveReject, equity.VotingMethodEquityWeighted, snapshot, d("50"))
	for i := 0; i < 20; i++ {
		next, _ := Resolve(votes, approveReject, equity.VotingMethodEquityWeighted, snapshot, d("50"))
		if !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d = %+v, want %+v", i, next, first)
		}
	}
}

func TestResolveProgrammerErrors(t *testing.T) {
	snapshot := foundingSnapshot()
	if _, err := Resolve(nil, approveReject, equity.VotingMethod("ranked"), snapshot, d("1")); !errors.Is(err, equity.ErrUnknownVotingMethod) {
		t.Fatalf("err = %v, want unknown voting method", err)
	}
	for _, options := range [][]string{{"approve"}, {"approve", "approve"}, {"", "reject"}} {
		_, err := Resolve(nil, options, equity.VotingMethodOneAgentOneVote, snapshot, d("1"))
		if apperrors.CodeOf(err) != apperrors.CodeDecisionInvalidOptions {
			t.Fatalf("options %v: err = %v, want invalid options", options, err)
		}
	}
}
