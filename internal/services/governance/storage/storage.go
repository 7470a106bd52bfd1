// Package storage defines persistence contracts for governance state.
package storage

import (
	"context"
	"time"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/decision"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "record already exists")
)

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	CompanyID string
	// AgentID is optional.
	AgentID string
	// Limit caps the result; zero means no limit.
	Limit int
}

// CompanyStore persists companies, memberships and the equity ledger.
type CompanyStore interface {
	CreateCompany(ctx context.Context, company equity.Company) error
	// FoundCompany inserts company and applies its founding change
	// atomically: both are stored or neither is.
	FoundCompany(ctx context.Context, company equity.Company, founding equity.Change) ([]equity.Transaction, error)
	GetCompany(ctx context.Context, companyID string) (equity.Company, error)
	ListMembers(ctx context.Context, companyID string) ([]equity.Member, error)
	// ApplyLedgerChange persists every part of change atomically and returns
	// its transactions with storage-assigned IDs.
	ApplyLedgerChange(ctx context.Context, change equity.Change, updatedAt time.Time) ([]equity.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]equity.Transaction, error)
}

// DecisionStore persists decisions and their votes.
type DecisionStore interface {
	CreateDecision(ctx context.Context, decision decision.Decision) error
	UpdateDecision(ctx context.Context, decision decision.Decision) error
	GetDecision(ctx context.Context, decisionID string) (decision.Decision, error)
	// ListDecisions returns a company's decisions, newest first. An empty
	// status returns every status.
	ListDecisions(ctx context.Context, companyID string, status decision.Status) ([]decision.Decision, error)
	// ListDueDecisions returns active decisions whose voting ended at or before now.
	ListDueDecisions(ctx context.Context, now time.Time) ([]decision.Decision, error)
	// PutVote stores a vote, replacing the agent's earlier vote on the same decision.
	PutVote(ctx context.Context, vote decision.Vote) error
	ListVotes(ctx context.Context, decisionID string) ([]decision.Vote, error)
}

// Store combines every governance persistence contract.
type Store interface {
	CompanyStore
	DecisionStore
	Close() error
}
