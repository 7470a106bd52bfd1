package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/moltcompany/internal/services/governance/domain/decision"
	"github.com/louisbranch/moltcompany/internal/services/governance/domain/equity"
	"github.com/louisbranch/moltcompany/internal/services/governance/storage"
)

const decisionColumns = `id, company_id, proposer_id, title, description, status,
	voting_method, options_json, quorum_pct, voting_ends_at, winning_option,
	snapshot_json, created_at, updated_at, activated_at, resolved_at`

// CreateDecision inserts one decision record.
func (s *Store) CreateDecision(ctx context.Context, record decision.Decision) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("decision id is required")
	}
	options, snapshot, err := encodeDecisionJSON(record)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO decisions (`+decisionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CompanyID,
		record.ProposerID,
		record.Title,
		record.Description,
		string(record.Status),
		string(record.VotingMethod),
		options,
		record.QuorumPct.String(),
		votingEndsAt(record),
		record.WinningOption,
		snapshot,
		toMillis(record.CreatedAt),
		toMillis(record.UpdatedAt),
		toNullMillis(record.ActivatedAt),
		toNullMillis(record.ResolvedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create decision: %w", err)
	}
	return nil
}

// UpdateDecision overwrites the mutable fields of a decision.
func (s *Store) UpdateDecision(ctx context.Context, record decision.Decision) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	options, snapshot, err := encodeDecisionJSON(record)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE decisions SET
		   status = ?,
		   options_json = ?,
		   quorum_pct = ?,
		   voting_ends_at = ?,
		   winning_option = ?,
		   snapshot_json = ?,
		   updated_at = ?,
		   activated_at = ?,
		   resolved_at = ?
		 WHERE id = ?`,
		string(record.Status),
		options,
		record.QuorumPct.String(),
		votingEndsAt(record),
		record.WinningOption,
		snapshot,
		toMillis(record.UpdatedAt),
		toNullMillis(record.ActivatedAt),
		toNullMillis(record.ResolvedAt),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update decision: %w", err)
	}
	return requireRowsAffected(result, "update decision")
}

// GetDecision returns one decision by ID.
func (s *Store) GetDecision(ctx context.Context, decisionID string) (decision.Decision, error) {
	if err := s.ready(ctx); err != nil {
		return decision.Decision{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE id = ?`,
		strings.TrimSpace(decisionID),
	)
	record, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decision.Decision{}, storage.ErrNotFound
		}
		return decision.Decision{}, fmt.Errorf("get decision: %w", err)
	}
	return record, nil
}

// ListDecisions returns a company's decisions, newest first.
func (s *Store) ListDecisions(ctx context.Context, companyID string, status decision.Status) ([]decision.Decision, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE company_id = ?`
	args := []any{strings.TrimSpace(companyID)}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id ASC`
	return s.queryDecisions(ctx, "list decisions", query, args...)
}

// ListDueDecisions returns active decisions whose voting window closed at or
// before now, earliest deadline first.
func (s *Store) ListDueDecisions(ctx context.Context, now time.Time) ([]decision.Decision, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryDecisions(
		ctx,
		"list due decisions",
		`SELECT `+decisionColumns+`
		   FROM decisions
		  WHERE status = ? AND voting_ends_at IS NOT NULL AND voting_ends_at <= ?
		  ORDER BY voting_ends_at ASC, id ASC`,
		string(decision.StatusActive),
		toMillis(now),
	)
}

func (s *Store) queryDecisions(ctx context.Context, operation, query string, args ...any) ([]decision.Decision, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	records := []decision.Decision{}
	for rows.Next() {
		record, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", operation, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (decision.Decision, error) {
	var record decision.Decision
	var status, method, options, snapshot string
	var endsAt, activatedAt, resolvedAt sql.NullInt64
	var createdAt, updatedAt int64
	if err := row.Scan(
		&record.ID,
		&record.CompanyID,
		&record.ProposerID,
		&record.Title,
		&record.Description,
		&status,
		&method,
		&options,
		&record.QuorumPct,
		&endsAt,
		&record.WinningOption,
		&snapshot,
		&createdAt,
		&updatedAt,
		&activatedAt,
		&resolvedAt,
	); err != nil {
		return decision.Decision{}, err
	}
	record.Status = decision.Status(status)
	record.VotingMethod = equity.VotingMethod(method)
	if err := json.Unmarshal([]byte(options), &record.Options); err != nil {
		return decision.Decision{}, fmt.Errorf("decode options for %s: %w", record.ID, err)
	}
	if err := record.Snapshot.UnmarshalJSON([]byte(snapshot)); err != nil {
		return decision.Decision{}, fmt.Errorf("decode snapshot for %s: %w", record.ID, err)
	}
	if endsAt.Valid {
		record.VotingEndsAt = fromMillis(endsAt.Int64)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	record.ActivatedAt = fromNullMillis(activatedAt)
	record.ResolvedAt = fromNullMillis(resolvedAt)
	return record, nil
}

func encodeDecisionJSON(record decision.Decision) (string, string, error) {
	options, err := json.Marshal(record.Options)
	if err != nil {
		return "", "", fmt.Errorf("encode options: %w", err)
	}
	snapshot, err := record.Snapshot.MarshalJSON()
	if err != nil {
		return "", "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(options), string(snapshot), nil
}

func votingEndsAt(record decision.Decision) sql.NullInt64 {
	if record.VotingEndsAt.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(record.VotingEndsAt), Valid: true}
}

// PutVote stores a vote, replacing the agent's earlier vote on the decision.
func (s *Store) PutVote(ctx context.Context, vote decision.Vote) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO votes (decision_id, agent_id, option, equity_at_vote, cast_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(decision_id, agent_id) DO UPDATE SET
		   option = excluded.option,
		   equity_at_vote = excluded.equity_at_vote,
		   cast_at = excluded.cast_at`,
		vote.DecisionID,
		vote.AgentID,
		vote.Option,
		vote.EquityAtVote.String(),
		toMillis(vote.CastAt),
	)
	if err != nil {
		return fmt.Errorf("put vote: %w", err)
	}
	return nil
}

// ListVotes returns a decision's votes in cast order.
func (s *Store) ListVotes(ctx context.Context, decisionID string) ([]decision.Vote, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT decision_id, agent_id, option, equity_at_vote, cast_at
		   FROM votes
		  WHERE decision_id = ?
		  ORDER BY cast_at ASC, agent_id ASC`,
		strings.TrimSpace(decisionID),
	)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	votes := []decision.Vote{}
	for rows.Next() {
		var vote decision.Vote
		var castAt int64
		if err := rows.Scan(&vote.DecisionID, &vote.AgentID, &vote.Option, &vote.EquityAtVote, &castAt); err != nil {
			return nil, fmt.Errorf("list votes: %w", err)
		}
		vote.CastAt = fromMillis(castAt)
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return votes, nil
}
