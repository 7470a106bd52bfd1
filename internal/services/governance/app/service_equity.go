package app

import (
	"context"
	"strings"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/outcome"
	"github.com/louisbranch/moltcompany/internal/services/governance/storage"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// LedgerUpdate is the persisted result of one accepted ledger operation.
type LedgerUpdate struct {
	Change equity.Change
	// Transactions carry their storage-assigned IDs.
	Transactions []equity.Transaction
	Ledger       equity.Ledger
}

// CreateCompany stores a new company and admits its admin agent as founder
// at the admin floor. The company and the founder's membership are written
// together; a rejected founding stores nothing.
func (s *Service) CreateCompany(ctx context.Context, input equity.CompanyInput) (company equity.Company, err error) {
	ctx, span := s.startSpan(ctx, "create_company")
	defer func() { finishSpan(span, err) }()

	company, err = equity.NewCompany(input, s.now, s.idGenerator)
	if err != nil {
		return equity.Company{}, err
	}
	span.SetAttributes(attribute.String("company.id", company.ID))

	unlock := s.companyLocks.Lock(company.ID)
	defer unlock()

	empty, err := equity.NewLedger(company, nil)
	if err != nil {
		return equity.Company{}, err
	}
	founding := empty.Join(company.AdminAgentID, equity.RoleFounder, "founded company", s.now)
	if !founding.Accepted() {
		return equity.Company{}, s.reject("create_company", rejected("create_company", founding.Rejections))
	}
	written, err := s.store.FoundCompany(ctx, company, founding.Value)
	if err != nil {
		return equity.Company{}, wrap("found company", err)
	}
	next, err := empty.Apply(founding.Value)
	if err != nil {
		return equity.Company{}, err
	}

	s.record(ctx, AuditRecord{
		Action:     AuditCompanyCreated,
		ActorID:    company.AdminAgentID,
		CompanyID:  company.ID,
		ResourceID: company.ID,
		Metadata: map[string]string{
			"name":            company.Name,
			"total_equity":    company.TotalEquity.String(),
			"admin_floor_pct": company.AdminFloorPct.String(),
			"member_pool_pct": company.MemberPoolPct.String(),
		},
	})
	s.publishLedgerChange(ctx, "create_company", company.AdminAgentID, founding.Value, written, next)
	return company, nil
}

// Ledger loads the current ledger of a company.
func (s *Service) Ledger(ctx context.Context, companyID string) (equity.Ledger, error) {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return equity.Ledger{}, wrap("load company", err)
	}
	members, err := s.store.ListMembers(ctx, company.ID)
	if err != nil {
		return equity.Ledger{}, wrap("load members", err)
	}
	return equity.NewLedger(company, members)
}

// Distribution reports what members currently hold.
func (s *Service) Distribution(ctx context.Context, companyID string) (equity.Distribution, error) {
	ledger, err := s.Ledger(ctx, companyID)
	if err != nil {
		return equity.Distribution{}, err
	}
	return ledger.Distribution(), nil
}

// TargetDistribution reports what the equity policy calls for.
func (s *Service) TargetDistribution(ctx context.Context, companyID string) (equity.Distribution, error) {
	ledger, err := s.Ledger(ctx, companyID)
	if err != nil {
		return equity.Distribution{}, err
	}
	return ledger.TargetDistribution(), nil
}

// Transactions lists ledger entries.
func (s *Service) Transactions(ctx context.Context, filter storage.TransactionFilter) ([]equity.Transaction, error) {
	entries, err := s.store.ListTransactions(ctx, filter)
	return entries, wrap("list transactions", err)
}

// JoinInput admits an agent to a company.
type JoinInput struct {
	CompanyID string
	AgentID   string
	Role      equity.Role
	Reason    string
}

// Join admits an agent, re-splitting the member pool.
func (s *Service) Join(ctx context.Context, input JoinInput) (LedgerUpdate, error) {
	return s.mutateLedger(ctx, "join", input.CompanyID, input.AgentID, func(ledger equity.Ledger) outcome.Outcome[equity.Change] {
		return ledger.Join(input.AgentID, input.Role, input.Reason, s.now)
	})
}

// Leave removes an agent and returns its equity to the treasury.
func (s *Service) Leave(ctx context.Context, companyID, agentID string) (LedgerUpdate, error) {
	return s.mutateLedger(ctx, "leave", companyID, agentID, func(ledger equity.Ledger) outcome.Outcome[equity.Change] {
		return ledger.Leave(agentID, s.now)
	})
}

// TransferInput moves equity between two members.
type TransferInput struct {
	CompanyID   string
	FromAgentID string
	ToAgentID   string
	Amount      decimal.Decimal
	Reason      string
}

// Transfer moves equity between members.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (LedgerUpdate, error) {
	return s.mutateLedger(ctx, "transfer", input.CompanyID, input.FromAgentID, func(ledger equity.Ledger) outcome.Outcome[equity.Change] {
		return ledger.Transfer(input.FromAgentID, input.ToAgentID, input.Amount, input.Reason, s.now)
	})
}

// GrantInput moves treasury equity to a member.
type GrantInput struct {
	CompanyID string
	// ActorID is who authorized the grant.
	ActorID string
	AgentID string
	Amount  decimal.Decimal
	Reason  string
}

// Grant moves treasury equity to a member.
func (s *Service) Grant(ctx context.Context, input GrantInput) (LedgerUpdate, error) {
	return s.mutateLedger(ctx, "grant", input.CompanyID, actorOr(input.ActorID, input.AgentID), func(ledger equity.Ledger) outcome.Outcome[equity.Change] {
		return ledger.Grant(input.AgentID, input.Amount, input.Reason, s.now)
	})
}

// RewardInput grants treasury equity for completed work.
type RewardInput struct {
	CompanyID string
	ActorID   string
	AgentID   string
	Amount    decimal.Decimal
	TaskRef   string
}

// RewardTask grants treasury equity for completed work.
func (s *Service) RewardTask(ctx context.Context, input RewardInput) (LedgerUpdate, error) {
	return s.mutateLedger(ctx, "reward_task", input.CompanyID, actorOr(input.ActorID, input.AgentID), func(ledger equity.Ledger) outcome.Outcome[equity.Change] {
		return ledger.RewardTask(input.AgentID, input.Amount, input.TaskRef, s.now)
	})
}

// Issue grows the company total by newEquityPct and dilutes every member
// proportionally. All members are updated in one transaction.
func (s *Service) Issue(ctx context.Context, companyID, actorID string, newEquityPct decimal.Decimal, reason string) (LedgerUpdate, error) {
	return s.mutateLedger(ctx, "issue", companyID, actorID, func(ledger equity.Ledger) outcome.Outcome[equity.Change] {
		return ledger.Issue(newEquityPct, reason, s.now)
	})
}

// Rebalance moves every member to the target distribution.
func (s *Service) Rebalance(ctx context.Context, companyID, actorID, reason string) (LedgerUpdate, error) {
	return s.mutateLedger(ctx, "rebalance", companyID, actorID, func(ledger equity.Ledger) outcome.Outcome[equity.Change] {
		return ledger.Rebalance(reason, s.now)
	})
}

// mutateLedger runs one ledger operation under the company lock and persists
// the accepted change atomically.
func (s *Service) mutateLedger(ctx context.Context, operation, companyID, actorID string, apply func(equity.Ledger) outcome.Outcome[equity.Change]) (update LedgerUpdate, err error) {
	companyID = strings.TrimSpace(companyID)
	ctx, span := s.startSpan(ctx, operation, attribute.String("company.id", companyID))
	defer func() { finishSpan(span, err) }()

	unlock := s.companyLocks.Lock(companyID)
	defer unlock()

	ledger, err := s.Ledger(ctx, companyID)
	if err != nil {
		return LedgerUpdate{}, err
	}
	result := apply(ledger)
	if !result.Accepted() {
		return LedgerUpdate{}, s.reject(operation, rejected(operation, result.Rejections))
	}

	written, err := s.store.ApplyLedgerChange(ctx, result.Value, s.now())
	if err != nil {
		return LedgerUpdate{}, wrap("apply ledger change", err)
	}
	next, err := ledger.Apply(result.Value)
	if err != nil {
		return LedgerUpdate{}, err
	}
	s.publishLedgerChange(ctx, operation, actorID, result.Value, written, next)
	return LedgerUpdate{Change: result.Value, Transactions: written, Ledger: next}, nil
}

// publishLedgerChange counts, audits and announces a persisted change.
func (s *Service) publishLedgerChange(ctx context.Context, operation, actorID string, change equity.Change, written []equity.Transaction, next equity.Ledger) {
	companyID := change.CompanyID
	for _, entry := range written {
		s.metrics.transaction(string(entry.Type))
		s.record(ctx, AuditRecord{
			Action:     AuditEquityPrefix + string(entry.Type),
			ActorID:    actorID,
			CompanyID:  companyID,
			ResourceID: entry.AgentID,
			Metadata: map[string]string{
				"operation":      operation,
				"transaction_id": formatID(entry.ID),
				"amount_pct":     entry.AmountPct.String(),
				"reason":         entry.Reason,
			},
			At: entry.CreatedAt,
		})
	}
	s.notify(ctx, Notification{
		Type:       "equity." + string(change.Kind),
		CompanyID:  companyID,
		ResourceID: actorID,
		Payload: map[string]string{
			"total_equity": next.Company().TotalEquity.String(),
			"treasury":     next.Treasury().String(),
		},
	})
	s.logger.Info().
		Str("operation", operation).
		Str("company_id", companyID).
		Int("transactions", len(written)).
		Msg("ledger change applied")
}

func actorOr(actorID, fallback string) string {
	if trimmed := strings.TrimSpace(actorID); trimmed != "" {
		return trimmed
	}
	return fallback
}
