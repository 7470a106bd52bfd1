package equity

import (
	"fmt"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/shopspring/decimal"
)

// DefaultJoinPoolPct is the pool CalculateDilutionOnJoin callers fall back to
// when they have no company configuration at hand.
var DefaultJoinPoolPct = decimal.NewFromInt(40)

// Adjustment describes one member's equity change.
type Adjustment struct {
	AgentID   string
	OldEquity decimal.Decimal
	NewEquity decimal.Decimal
	Delta     decimal.Decimal
}

func newAdjustment(agentID string, oldEquity, newEquity decimal.Decimal) Adjustment {
	return Adjustment{
		AgentID:   agentID,
		OldEquity: oldEquity,
		NewEquity: newEquity,
		Delta:     newEquity.Sub(oldEquity),
	}
}

// CalculateDilutionOnJoin returns each non-admin member's share after one
// more member joins: memberPoolPct / (existingNonAdminCount + 1), truncated
// to ShareScale places. Ledger changes cut it further to Precision.
func CalculateDilutionOnJoin(existingNonAdminCount int, memberPoolPct decimal.Decimal) decimal.Decimal {
	if existingNonAdminCount < 0 {
		existingNonAdminCount = 0
	}
	divisor := decimal.NewFromInt(int64(existingNonAdminCount) + 1)
	return memberPoolPct.DivRound(divisor, ShareScale+4).Truncate(ShareScale)
}

// NewMemberEquity is the equal-split result of admitting one member.
type NewMemberEquity struct {
	AgentID           string
	NewMemberEquity   decimal.Decimal
	MemberAdjustments []Adjustment
}

// CalculateEquityOnNewMember computes the equal re-split when newAgentID joins:
// the newcomer and every existing non-admin member end at the same share of
// the member pool. The admin and the treasury's claim on the admin floor are
// not touched.
func CalculateEquityOnNewMember(company Company, existingMembers []Member, newAgentID string) NewMemberEquity {
	nonAdmins := make([]Member, 0, len(existingMembers))
	for _, member := range existingMembers {
		if company.IsAdmin(member.AgentID) || member.AgentID == newAgentID {
			continue
		}
		nonAdmins = append(nonAdmins, member)
	}

	target := CalculateDilutionOnJoin(len(nonAdmins), company.MemberPoolPct).Truncate(Precision)
	adjustments := make([]Adjustment, 0, len(nonAdmins))
	for _, member := range nonAdmins {
		adjustments = append(adjustments, newAdjustment(member.AgentID, member.Equity, target))
	}
	return NewMemberEquity{
		AgentID:           newAgentID,
		NewMemberEquity:   target,
		MemberAdjustments: adjustments,
	}
}

// Dilution is the proportional result of issuing new equity.
type Dilution struct {
	// Factor is OldTotal / NewTotal.
	Factor      decimal.Decimal
	OldTotal    decimal.Decimal
	NewTotal    decimal.Decimal
	Adjustments []Adjustment
}

// CalculateProportionalDilution scales every member by
// oldTotal / (oldTotal + newEquityPct) and grows the company total by
// newEquityPct. The new equity lands in the treasury.
func CalculateProportionalDilution(company Company, members []Member, newEquityPct decimal.Decimal) (Dilution, error) {
	if !newEquityPct.IsPositive() {
		return Dilution{}, apperrors.WithMetadata(
			apperrors.CodeEquityInvalidIssuance,
			fmt.Sprintf("issuance must be positive, got %s", newEquityPct),
			map[string]string{"NewEquityPct": newEquityPct.String()},
		)
	}

	oldTotal := company.TotalEquity
	newTotal := oldTotal.Add(newEquityPct)
	dilution := Dilution{
		Factor:      oldTotal.DivRound(newTotal, Precision+4),
		OldTotal:    oldTotal,
		NewTotal:    newTotal,
		Adjustments: make([]Adjustment, 0, len(members)),
	}
	for _, member := range members {
		scaled := quotient(member.Equity.Mul(oldTotal), newTotal)
		dilution.Adjustments = append(dilution.Adjustments, newAdjustment(member.AgentID, member.Equity, scaled))
	}
	return dilution, nil
}
