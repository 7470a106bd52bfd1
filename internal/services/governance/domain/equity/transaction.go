package equity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies an equity ledger entry.
type TransactionType string

const (
	TransactionGrant      TransactionType = "grant"
	TransactionTransfer   TransactionType = "transfer"
	TransactionDilution   TransactionType = "dilution"
	TransactionTaskReward TransactionType = "task_reward"
)

// Valid reports whether the type is known.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionGrant, TransactionTransfer, TransactionDilution, TransactionTaskReward:
		return true
	default:
		return false
	}
}

// Transaction is an immutable audit entry for one member's equity change.
// ID is assigned by storage when the entry is appended.
type Transaction struct {
	ID        int64
	CompanyID string
	AgentID   string
	Type      TransactionType
	// AmountPct is signed: negative entries reduce the member's equity.
	AmountPct decimal.Decimal
	Reason    string
	CreatedAt time.Time
}
