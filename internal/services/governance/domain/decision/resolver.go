package decision

import (
	"fmt"
	"strings"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
	"github.com/shopspring/decimal"
)

// OptionTally is the counted support for one option.
type OptionTally struct {
	Count  int
	Weight decimal.Decimal
	// Voters lists agents in the order their counted ballots appear.
	Voters []string
}

// Result is the outcome of resolving a decision's votes.
type Result struct {
	Passed        bool
	WinningOption string
	Reason        string
	Tally         map[string]OptionTally
	// TotalVoteWeight sums the weight of every counted vote.
	TotalVoteWeight decimal.Decimal
	VoterCount      int
	QuorumMet       bool
	// Tied lists the options sharing the top weight, in option order.
	Tied []string
}

// Resolve tallies votes into a result. It is pure: the same inputs always
// produce the same result.
//
// Only each agent's last vote counts, and votes for unknown options are
// ignored. An unknown method or a malformed option set is an error; every
// other failure is reported on the result.
func Resolve(votes []Vote, options []string, method equity.VotingMethod, snapshot equity.Snapshot, quorumPct decimal.Decimal) (Result, error) {
	if !method.Valid() {
		return Result{}, equity.UnknownVotingMethodError(method)
	}
	if err := validateOptions(options); err != nil {
		return Result{}, err
	}

	result := Result{
		Tally:           make(map[string]OptionTally, len(options)),
		TotalVoteWeight: decimal.Zero,
	}
	for _, option := range options {
		result.Tally[option] = OptionTally{Weight: decimal.Zero, Voters: []string{}}
	}

	counted := latestVotes(votes)
	for _, vote := range counted {
		tally, ok := result.Tally[vote.Option]
		if !ok {
			continue
		}
		weight := decimal.NewFromInt(1)
		if method == equity.VotingMethodEquityWeighted {
			weight = vote.EquityAtVote
		}
		tally.Count++
		tally.Weight = tally.Weight.Add(weight)
		tally.Voters = append(tally.Voters, vote.AgentID)
		result.Tally[vote.Option] = tally
		result.TotalVoteWeight = result.TotalVoteWeight.Add(weight)
		result.VoterCount++
	}

	result.QuorumMet = quorumMet(result, method, snapshot, quorumPct)
	if !result.QuorumMet {
		result.Reason = ReasonQuorumNotMet
		if method == equity.VotingMethodUnanimous {
			result.Reason = ReasonNotAllMembers
		}
		return result, nil
	}

	if method == equity.VotingMethodUnanimous {
		return resolveUnanimous(result, options), nil
	}
	return resolvePlurality(result, options), nil
}

// latestVotes keeps each agent's last vote, ordered by where that vote appears.
func latestVotes(votes []Vote) []Vote {
	last := make(map[string]int, len(votes))
	for i, vote := range votes {
		last[vote.AgentID] = i
	}
	counted := make([]Vote, 0, len(last))
	for i, vote := range votes {
		if last[vote.AgentID] == i {
			counted = append(counted, vote)
		}
	}
	return counted
}

func quorumMet(result Result, method equity.VotingMethod, snapshot equity.Snapshot, quorumPct decimal.Decimal) bool {
	switch method {
	case equity.VotingMethodEquityWeighted:
		total := snapshot.Total()
		if !total.IsPositive() {
			return false
		}
		participation := result.TotalVoteWeight.Mul(equity.Hundred()).Div(total)
		return participation.GreaterThanOrEqual(quorumPct)
	case equity.VotingMethodOneAgentOneVote:
		return decimal.NewFromInt(int64(result.VoterCount)).GreaterThanOrEqual(quorumPct)
	default:
		if snapshot.Len() == 0 {
			return false
		}
		voted := make(map[string]struct{}, result.VoterCount)
		for _, tally := range result.Tally {
			for _, agentID := range tally.Voters {
				voted[agentID] = struct{}{}
			}
		}
		for _, agentID := range snapshot.AgentIDs() {
			if _, ok := voted[agentID]; !ok {
				return false
			}
		}
		return true
	}
}

func resolveUnanimous(result Result, options []string) Result {
	for _, option := range options {
		if result.Tally[option].Count == result.VoterCount && result.VoterCount > 0 {
			result.Passed = true
			result.WinningOption = option
			result.Reason = "Winning option: " + option
			return result
		}
	}
	result.Reason = ReasonNoConsensus
	return result
}

// resolvePlurality picks the option with the greatest weight. An exact tie
// at the top does not pass.
func resolvePlurality(result Result, options []string) Result {
	top := decimal.Zero
	var leaders []string
	for _, option := range options {
		weight := result.Tally[option].Weight
		switch {
		case weight.GreaterThan(top):
			top = weight
			leaders = []string{option}
		case weight.Equal(top) && top.IsPositive():
			leaders = append(leaders, option)
		}
	}
	switch len(leaders) {
	case 0:
		result.Reason = ReasonNoConsensus
	case 1:
		result.Passed = true
		result.WinningOption = leaders[0]
		result.Reason = "Winning option: " + leaders[0]
	default:
		result.Tied = leaders
		result.Reason = "Tie between options: " + strings.Join(leaders, ", ")
	}
	return result
}

func validateOptions(options []string) error {
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		if option == "" {
			return invalidOptions("options must not be empty")
		}
		if _, ok := seen[option]; ok {
			return invalidOptions(fmt.Sprintf("option %q is duplicated", option))
		}
		seen[option] = struct{}{}
	}
	if len(options) < 2 {
		return invalidOptions("at least two options are required")
	}
	return nil
}
