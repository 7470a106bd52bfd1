package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
	"github.com/louisbranch/moltcompany/internal/services/governance/storage"
	"github.com/shopspring/decimal"
)

// CreateCompany inserts one company record.
func (s *Store) CreateCompany(ctx context.Context, company equity.Company) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return insertCompany(ctx, s.sqlDB, company)
}

// FoundCompany inserts a company together with its founding ledger change
// in one transaction, so a company never exists without its founder.
func (s *Store) FoundCompany(ctx context.Context, company equity.Company, founding equity.Change) ([]equity.Transaction, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if founding.CompanyID != company.ID {
		return nil, fmt.Errorf("founding change targets company %q, not %q", founding.CompanyID, company.ID)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin found company: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertCompany(ctx, tx, company); err != nil {
		return nil, err
	}
	written, err := applyChange(ctx, tx, founding, company.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit found company: %w", err)
	}
	return written, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCompany(ctx context.Context, exec execer, company equity.Company) error {
	if strings.TrimSpace(company.ID) == "" {
		return fmt.Errorf("company id is required")
	}
	_, err := exec.ExecContext(
		ctx,
		`INSERT INTO companies (
		   id, name, total_equity, admin_agent_id,
		   admin_floor_pct, member_pool_pct, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		company.ID,
		company.Name,
		company.TotalEquity.String(),
		company.AdminAgentID,
		company.AdminFloorPct.String(),
		company.MemberPoolPct.String(),
		toMillis(company.CreatedAt),
		toMillis(company.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// GetCompany returns one company by ID.
func (s *Store) GetCompany(ctx context.Context, companyID string) (equity.Company, error) {
	if err := s.ready(ctx); err != nil {
		return equity.Company{}, err
	}
	return getCompany(ctx, s.sqlDB, companyID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getCompany(ctx context.Context, q queryer, companyID string) (equity.Company, error) {
	row := q.QueryRowContext(
		ctx,
		`SELECT id, name, total_equity, admin_agent_id,
		        admin_floor_pct, member_pool_pct, created_at, updated_at
		   FROM companies
		  WHERE id = ?`,
		strings.TrimSpace(companyID),
	)
	var company equity.Company
	var createdAt, updatedAt int64
	err := row.Scan(
		&company.ID,
		&company.Name,
		&company.TotalEquity,
		&company.AdminAgentID,
		&company.AdminFloorPct,
		&company.MemberPoolPct,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return equity.Company{}, storage.ErrNotFound
		}
		return equity.Company{}, fmt.Errorf("get company: %w", err)
	}
	company.CreatedAt = fromMillis(createdAt)
	company.UpdatedAt = fromMillis(updatedAt)
	return company, nil
}

// ListMembers returns a company's members in join order.
func (s *Store) ListMembers(ctx context.Context, companyID string) ([]equity.Member, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return listMembers(ctx, s.sqlDB, companyID)
}

func listMembers(ctx context.Context, q queryer, companyID string) ([]equity.Member, error) {
	rows, err := q.QueryContext(
		ctx,
		`SELECT agent_id, company_id, role, equity, joined_at
		   FROM members
		  WHERE company_id = ?
		  ORDER BY joined_at ASC, agent_id ASC`,
		strings.TrimSpace(companyID),
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []equity.Member{}
	for rows.Next() {
		var member equity.Member
		var role string
		var joinedAt int64
		if err := rows.Scan(&member.AgentID, &member.CompanyID, &role, &member.Equity, &joinedAt); err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		member.Role = equity.Role(role)
		member.JoinedAt = fromMillis(joinedAt)
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// ApplyLedgerChange writes a ledger change in one transaction: the company
// total, member upserts and removals, and the appended transactions. The
// change is rolled back if the resulting allocation exceeds the total.
func (s *Store) ApplyLedgerChange(ctx context.Context, change equity.Change, updatedAt time.Time) ([]equity.Transaction, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ledger change: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written, err := applyChange(ctx, tx, change, updatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ledger change: %w", err)
	}
	return written, nil
}

// applyChange writes change inside tx and re-checks the allocation against
// the new total.
func applyChange(ctx context.Context, tx *sql.Tx, change equity.Change, updatedAt time.Time) ([]equity.Transaction, error) {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE companies SET total_equity = ?, updated_at = ? WHERE id = ?`,
		change.TotalEquity.String(),
		toMillis(updatedAt),
		change.CompanyID,
	)
	if err != nil {
		return nil, fmt.Errorf("update company total: %w", err)
	}
	if err := requireRowsAffected(result, "update company total"); err != nil {
		return nil, err
	}

	for _, agentID := range change.Removed {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM members WHERE company_id = ? AND agent_id = ?`,
			change.CompanyID,
			agentID,
		); err != nil {
			return nil, fmt.Errorf("remove member %s: %w", agentID, err)
		}
	}
	for _, member := range change.Upserts {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO members (company_id, agent_id, role, equity, joined_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(company_id, agent_id) DO UPDATE SET
			   role = excluded.role,
			   equity = excluded.equity`,
			change.CompanyID,
			member.AgentID,
			string(member.Role),
			member.Equity.String(),
			toMillis(member.JoinedAt),
		); err != nil {
			return nil, fmt.Errorf("upsert member %s: %w", member.AgentID, err)
		}
	}

	written := make([]equity.Transaction, 0, len(change.Transactions))
	for _, entry := range change.Transactions {
		result, err := tx.ExecContext(
			ctx,
			`INSERT INTO equity_transactions (company_id, agent_id, type, amount_pct, reason, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			change.CompanyID,
			entry.AgentID,
			string(entry.Type),
			entry.AmountPct.String(),
			entry.Reason,
			toMillis(entry.CreatedAt),
		)
		if err != nil {
			return nil, fmt.Errorf("append transaction: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("append transaction: %w", err)
		}
		entry.ID = id
		entry.CompanyID = change.CompanyID
		written = append(written, entry)
	}

	members, err := listMembers(ctx, tx, change.CompanyID)
	if err != nil {
		return nil, err
	}
	allocated := decimal.Zero
	for _, member := range members {
		allocated = allocated.Add(member.Equity)
	}
	if allocated.GreaterThan(change.TotalEquity) {
		return nil, fmt.Errorf("ledger change allocates %s of %s", allocated, change.TotalEquity)
	}
	return written, nil
}

// ListTransactions returns ledger entries oldest first.
func (s *Store) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]equity.Transaction, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, company_id, agent_id, type, amount_pct, reason, created_at
	            FROM equity_transactions
	           WHERE company_id = ?`
	args := []any{strings.TrimSpace(filter.CompanyID)}
	if agentID := strings.TrimSpace(filter.AgentID); agentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	entries := []equity.Transaction{}
	for rows.Next() {
		var entry equity.Transaction
		var txType string
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.CompanyID, &entry.AgentID, &txType, &entry.AmountPct, &entry.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		entry.Type = equity.TransactionType(txType)
		entry.CreatedAt = fromMillis(createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return entries, nil
}
