package equity

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/outcome"
	"github.com/shopspring/decimal"
)

// ChangeKind names the ledger operation that produced a Change.
type ChangeKind string

const (
	ChangeJoin       ChangeKind = "join"
	ChangeLeave      ChangeKind = "leave"
	ChangeTransfer   ChangeKind = "transfer"
	ChangeGrant      ChangeKind = "grant"
	ChangeTaskReward ChangeKind = "task_reward"
	ChangeIssue      ChangeKind = "issue"
	ChangeRebalance  ChangeKind = "rebalance"
)

// Change is the full effect of one accepted ledger operation. It must be
// persisted as a unit: applying part of it breaks the sum invariant.
type Change struct {
	Kind      ChangeKind
	CompanyID string
	// TotalEquity is the company total after the change.
	TotalEquity decimal.Decimal
	// Upserts carries the new state of every member whose row changed.
	Upserts      []Member
	Removed      []string
	Transactions []Transaction
}

// Ledger is the equity state of one company at a point in time.
type Ledger struct {
	company Company
	members []Member
}

// NewLedger validates company and members and returns their ledger.
func NewLedger(company Company, members []Member) (Ledger, error) {
	if err := ValidateCompany(company); err != nil {
		return Ledger{}, err
	}
	if err := validateMembers(company.ID, members); err != nil {
		return Ledger{}, err
	}
	copied := make([]Member, len(members))
	for i, member := range members {
		member.CompanyID = company.ID
		copied[i] = member
	}
	return Ledger{company: company, members: copied}, nil
}

// Company returns the company configuration.
func (l Ledger) Company() Company { return l.company }

// Members returns a copy of the membership list.
func (l Ledger) Members() []Member {
	return append([]Member(nil), l.members...)
}

// Member looks up agentID.
func (l Ledger) Member(agentID string) (Member, bool) {
	for _, member := range l.members {
		if member.AgentID == agentID {
			return member, true
		}
	}
	return Member{}, false
}

// Allocated sums every member's equity.
func (l Ledger) Allocated() decimal.Decimal { return sumEquity(l.members) }

// Treasury is the unallocated equity.
func (l Ledger) Treasury() decimal.Decimal { return l.company.Treasury(l.members) }

// Distribution reports the current allocation.
func (l Ledger) Distribution() Distribution {
	return CalculateEquityDistribution(l.company, l.members)
}

// TargetDistribution reports the policy allocation.
func (l Ledger) TargetDistribution() Distribution {
	return CalculateTargetDistribution(l.company, l.members)
}

// Snapshot freezes current equity for vote weighting.
func (l Ledger) Snapshot() Snapshot { return SnapshotFromMembers(l.members) }

// Join admits agentID. The admin agent joins at its floor; everyone else joins
// through the equal-split re-division of the member pool.
func (l Ledger) Join(agentID string, role Role, reason string, now func() time.Time) outcome.Outcome[Change] {
	at := timestamp(now)
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return reject(RejectionAgentRequired, "Agent id is required")
	}
	if !role.Valid() {
		return reject(RejectionInvalidRole, fmt.Sprintf("Invalid role: %q", role))
	}
	if _, ok := l.Member(agentID); ok {
		return reject(RejectionMemberExists, "Agent is already a member")
	}
	reason = reasonOr(reason, "joined company")

	change := l.newChange(ChangeJoin)
	if l.company.IsAdmin(agentID) {
		if role != RoleFounder && role != RoleAdmin {
			return reject(RejectionAdminRoleRequired, "Admin agent must join as founder or admin")
		}
		grant := ValidateTreasuryGrant(l.company.TotalEquity, l.Allocated(), l.company.AdminFloorPct)
		if !grant.Valid && grant.Code == RejectionInsufficientTreasury {
			return reject(grant.Code, grant.Error)
		}
		newcomer := Member{AgentID: agentID, CompanyID: l.company.ID, Role: role, Equity: l.company.AdminFloorPct, JoinedAt: at}
		change.Upserts = append(change.Upserts, newcomer)
		if !newcomer.Equity.IsZero() {
			change.appendTransaction(agentID, TransactionGrant, newcomer.Equity, reason, at)
		}
		return outcome.Accept(change)
	}

	split := CalculateEquityOnNewMember(l.company, l.members, agentID)
	after := l.Allocated().Add(split.NewMemberEquity)
	for _, adjustment := range split.MemberAdjustments {
		after = after.Add(adjustment.Delta)
	}
	if after.GreaterThan(l.company.TotalEquity) {
		return reject(RejectionInsufficientTreasury, fmt.Sprintf(
			"Insufficient treasury: admitting %s would allocate %s of %s",
			agentID, formatPct(after), formatPct(l.company.TotalEquity),
		))
	}

	for _, adjustment := range split.MemberAdjustments {
		if adjustment.Delta.IsZero() {
			continue
		}
		member, _ := l.Member(adjustment.AgentID)
		member.Equity = adjustment.NewEquity
		change.Upserts = append(change.Upserts, member)
		change.appendTransaction(adjustment.AgentID, TransactionDilution, adjustment.Delta, "diluted by join of "+agentID, at)
	}
	newcomer := Member{AgentID: agentID, CompanyID: l.company.ID, Role: role, Equity: split.NewMemberEquity, JoinedAt: at}
	change.Upserts = append(change.Upserts, newcomer)
	if !newcomer.Equity.IsZero() {
		change.appendTransaction(agentID, TransactionGrant, newcomer.Equity, reason, at)
	}
	return outcome.Accept(change)
}

// Leave removes agentID. Its equity returns to the treasury.
func (l Ledger) Leave(agentID string, now func() time.Time) outcome.Outcome[Change] {
	at := timestamp(now)
	member, ok := l.Member(strings.TrimSpace(agentID))
	if !ok {
		return reject(RejectionMemberNotFound, "Member not found")
	}
	if l.company.IsAdmin(member.AgentID) {
		return reject(RejectionAdminCannotLeave, "Admin cannot leave the company")
	}
	change := l.newChange(ChangeLeave)
	change.Removed = []string{member.AgentID}
	if !member.Equity.IsZero() {
		change.appendTransaction(member.AgentID, TransactionTransfer, member.Equity.Neg(), "left company; equity returned to treasury", at)
	}
	return outcome.Accept(change)
}

// Transfer moves amount from one member to another. The admin cannot
// transfer below its floor.
func (l Ledger) Transfer(fromAgentID, toAgentID string, amount decimal.Decimal, reason string, now func() time.Time) outcome.Outcome[Change] {
	at := timestamp(now)
	var from *Member
	if member, ok := l.Member(strings.TrimSpace(fromAgentID)); ok {
		from = &member
	}
	toAgentID = strings.TrimSpace(toAgentID)
	if validation := ValidateEquityTransfer(from, amount, toAgentID); !validation.Valid {
		return reject(validation.Code, validation.Error)
	}
	to, ok := l.Member(toAgentID)
	if !ok {
		return reject(RejectionDestinationNotFound, "Destination member not found")
	}
	if l.company.IsAdmin(from.AgentID) && from.Equity.Sub(amount).LessThan(l.company.AdminFloorPct) {
		return reject(RejectionAdminFloor, fmt.Sprintf(
			"Transfer would drop admin below floor: %s floor, %s remaining",
			formatPct(l.company.AdminFloorPct), formatPct(from.Equity.Sub(amount)),
		))
	}
	reason = reasonOr(reason, "transfer")

	change := l.newChange(ChangeTransfer)
	source := *from
	source.Equity = source.Equity.Sub(amount)
	to.Equity = to.Equity.Add(amount)
	change.Upserts = []Member{source, to}
	change.appendTransaction(source.AgentID, TransactionTransfer, amount.Neg(), reason, at)
	change.appendTransaction(to.AgentID, TransactionTransfer, amount, reason, at)
	return outcome.Accept(change)
}

// Grant moves amount from the treasury to agentID.
func (l Ledger) Grant(agentID string, amount decimal.Decimal, reason string, now func() time.Time) outcome.Outcome[Change] {
	return l.treasuryGrant(ChangeGrant, TransactionGrant, agentID, amount, reasonOr(reason, "treasury grant"), now)
}

// RewardTask grants amount from the treasury for completed work identified by taskRef.
func (l Ledger) RewardTask(agentID string, amount decimal.Decimal, taskRef string, now func() time.Time) outcome.Outcome[Change] {
	reason := "task reward"
	if ref := strings.TrimSpace(taskRef); ref != "" {
		reason = "task reward: " + ref
	}
	return l.treasuryGrant(ChangeTaskReward, TransactionTaskReward, agentID, amount, reason, now)
}

func (l Ledger) treasuryGrant(kind ChangeKind, txType TransactionType, agentID string, amount decimal.Decimal, reason string, now func() time.Time) outcome.Outcome[Change] {
	at := timestamp(now)
	member, ok := l.Member(strings.TrimSpace(agentID))
	if !ok {
		return reject(RejectionMemberNotFound, "Member not found")
	}
	if validation := ValidateTreasuryGrant(l.company.TotalEquity, l.Allocated(), amount); !validation.Valid {
		return reject(validation.Code, validation.Error)
	}
	change := l.newChange(kind)
	member.Equity = member.Equity.Add(amount)
	change.Upserts = []Member{member}
	change.appendTransaction(member.AgentID, txType, amount, reason, at)
	return outcome.Accept(change)
}

// Issue adds newEquityPct to the company total and dilutes every member
// proportionally.
func (l Ledger) Issue(newEquityPct decimal.Decimal, reason string, now func() time.Time) outcome.Outcome[Change] {
	at := timestamp(now)
	if !newEquityPct.IsPositive() {
		return reject(RejectionNonPositiveIssuance, "Issuance must be positive")
	}
	dilution, err := CalculateProportionalDilution(l.company, l.members, newEquityPct)
	if err != nil {
		return reject(RejectionNonPositiveIssuance, err.Error())
	}
	reason = reasonOr(reason, "equity issuance of "+formatPct(newEquityPct))

	change := l.newChange(ChangeIssue)
	change.TotalEquity = dilution.NewTotal
	for _, adjustment := range dilution.Adjustments {
		if adjustment.Delta.IsZero() {
			continue
		}
		member, _ := l.Member(adjustment.AgentID)
		member.Equity = adjustment.NewEquity
		change.Upserts = append(change.Upserts, member)
		change.appendTransaction(member.AgentID, TransactionDilution, adjustment.Delta, reason, at)
	}
	return outcome.Accept(change)
}

// Rebalance moves every member to the target distribution.
func (l Ledger) Rebalance(reason string, now func() time.Time) outcome.Outcome[Change] {
	at := timestamp(now)
	target := l.TargetDistribution()
	if target.TotalDistributed.GreaterThan(l.company.TotalEquity) {
		return reject(RejectionTargetExceedsTotal, fmt.Sprintf(
			"Target distribution allocates %s of %s",
			formatPct(target.TotalDistributed), formatPct(l.company.TotalEquity),
		))
	}
	reason = reasonOr(reason, "rebalanced to target distribution")

	change := l.newChange(ChangeRebalance)
	for _, member := range l.members {
		want, _ := target.Equity(member.AgentID)
		delta := want.Sub(member.Equity)
		if delta.IsZero() {
			continue
		}
		member.Equity = want
		change.Upserts = append(change.Upserts, member)
		change.appendTransaction(member.AgentID, TransactionDilution, delta, reason, at)
	}
	return outcome.Accept(change)
}

// Apply returns the ledger that results from change.
func (l Ledger) Apply(change Change) (Ledger, error) {
	if change.CompanyID != l.company.ID {
		return Ledger{}, apperrors.WithMetadata(
			apperrors.CodeEquityCompanyMismatch,
			fmt.Sprintf("change for company %q applied to %q", change.CompanyID, l.company.ID),
			map[string]string{"ChangeCompanyID": change.CompanyID, "CompanyID": l.company.ID},
		)
	}
	removed := make(map[string]struct{}, len(change.Removed))
	for _, agentID := range change.Removed {
		removed[agentID] = struct{}{}
	}
	upserts := make(map[string]Member, len(change.Upserts))
	for _, member := range change.Upserts {
		upserts[member.AgentID] = member
	}

	next := Ledger{company: l.company, members: make([]Member, 0, len(l.members)+len(change.Upserts))}
	next.company.TotalEquity = change.TotalEquity
	for _, member := range l.members {
		if _, ok := removed[member.AgentID]; ok {
			continue
		}
		if updated, ok := upserts[member.AgentID]; ok {
			member = updated
			delete(upserts, member.AgentID)
		}
		next.members = append(next.members, member)
	}
	for _, member := range change.Upserts {
		if _, pending := upserts[member.AgentID]; pending {
			next.members = append(next.members, member)
		}
	}
	return next, nil
}

func (l Ledger) newChange(kind ChangeKind) Change {
	return Change{Kind: kind, CompanyID: l.company.ID, TotalEquity: l.company.TotalEquity}
}

func (c *Change) appendTransaction(agentID string, txType TransactionType, amount decimal.Decimal, reason string, at time.Time) {
	c.Transactions = append(c.Transactions, Transaction{
		CompanyID: c.CompanyID,
		AgentID:   agentID,
		Type:      txType,
		AmountPct: amount,
		Reason:    reason,
		CreatedAt: at,
	})
}

func reject(code, message string) outcome.Outcome[Change] {
	return outcome.Reject[Change](outcome.Rejection{Code: code, Message: message})
}

func reasonOr(reason, fallback string) string {
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		return trimmed
	}
	return fallback
}

func timestamp(now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}
	return now().UTC()
}
