package equity

import "github.com/shopspring/decimal"

// Allocation is one agent's slice of a distribution.
type Allocation struct {
	AgentID string
	Equity  decimal.Decimal
	// Percentage is Equity as a share of the company's total equity.
	Percentage decimal.Decimal
}

// Distribution reports how a company's equity is (or should be) allocated.
type Distribution struct {
	// Admin is nil when the admin agent holds no membership.
	Admin            *Allocation
	Members          []Allocation
	TotalDistributed decimal.Decimal
	// Treasury is TotalEquity - TotalDistributed, reported as the data
	// implies; malformed data can make it negative.
	Treasury decimal.Decimal
}

// CalculateEquityDistribution reports the equity members currently hold.
func CalculateEquityDistribution(company Company, members []Member) Distribution {
	distribution := Distribution{
		Members:          make([]Allocation, 0, len(members)),
		TotalDistributed: decimal.Zero,
	}
	for _, member := range members {
		allocation := Allocation{
			AgentID:    member.AgentID,
			Equity:     member.Equity,
			Percentage: percentOf(member.Equity, company.TotalEquity),
		}
		distribution.TotalDistributed = distribution.TotalDistributed.Add(member.Equity)
		if company.IsAdmin(member.AgentID) {
			admin := allocation
			distribution.Admin = &admin
			continue
		}
		distribution.Members = append(distribution.Members, allocation)
	}
	distribution.Treasury = company.TotalEquity.Sub(distribution.TotalDistributed)
	return distribution
}

// CalculateTargetDistribution reports the allocation the equity policy calls
// for: the admin at exactly AdminFloorPct and MemberPoolPct split equally
// across non-admin members. With no non-admin members the whole pool stays
// in the treasury.
func CalculateTargetDistribution(company Company, members []Member) Distribution {
	nonAdmins := 0
	for _, member := range members {
		if !company.IsAdmin(member.AgentID) {
			nonAdmins++
		}
	}
	share := decimal.Zero
	if nonAdmins > 0 {
		share = quotient(company.MemberPoolPct, decimal.NewFromInt(int64(nonAdmins)))
	}

	distribution := Distribution{
		Members:          make([]Allocation, 0, nonAdmins),
		TotalDistributed: decimal.Zero,
	}
	for _, member := range members {
		if company.IsAdmin(member.AgentID) {
			distribution.Admin = &Allocation{
				AgentID:    member.AgentID,
				Equity:     company.AdminFloorPct,
				Percentage: percentOf(company.AdminFloorPct, company.TotalEquity),
			}
			distribution.TotalDistributed = distribution.TotalDistributed.Add(company.AdminFloorPct)
			continue
		}
		distribution.Members = append(distribution.Members, Allocation{
			AgentID:    member.AgentID,
			Equity:     share,
			Percentage: percentOf(share, company.TotalEquity),
		})
		distribution.TotalDistributed = distribution.TotalDistributed.Add(share)
	}
	distribution.Treasury = company.TotalEquity.Sub(distribution.TotalDistributed)
	return distribution
}

// Equity returns the allocation for agentID, if present.
func (d Distribution) Equity(agentID string) (decimal.Decimal, bool) {
	if d.Admin != nil && d.Admin.AgentID == agentID {
		return d.Admin.Equity, true
	}
	for _, allocation := range d.Members {
		if allocation.AgentID == agentID {
			return allocation.Equity, true
		}
	}
	return decimal.Zero, false
}
