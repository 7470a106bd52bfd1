package equity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation is the result of checking a proposed ledger movement.
type Validation struct {
	Valid bool
	// Code is the rejection code when Valid is false.
	Code  string
	Error string
}

func invalid(code, message string) Validation {
	return Validation{Code: code, Error: message}
}

// ValidateEquityTransfer checks that from can move amount to toAgentID.
// A valid transfer keeps the sum of member equity unchanged.
func ValidateEquityTransfer(from *Member, amount decimal.Decimal, toAgentID string) Validation {
	if from == nil {
		return invalid(RejectionSourceNotFound, "Source member not found")
	}
	if !amount.IsPositive() {
		return invalid(RejectionNonPositiveAmount, "Amount must be positive")
	}
	if amount.GreaterThan(from.Equity) {
		return invalid(RejectionInsufficientEquity, fmt.Sprintf(
			"Insufficient equity: %s available, %s requested",
			formatPct(from.Equity), formatPct(amount),
		))
	}
	if toAgentID == from.AgentID {
		return invalid(RejectionSelfTransfer, "Cannot transfer to self")
	}
	return Validation{Valid: true}
}

// GrantValidation is the result of checking a treasury grant.
type GrantValidation struct {
	Valid    bool
	Treasury decimal.Decimal
	Code     string
	Error    string
}

// ValidateTreasuryGrant checks that grantAmount fits in the treasury
// (totalEquity - allocatedEquity). A valid grant moves equity from the
// treasury to one member and leaves totalEquity unchanged.
func ValidateTreasuryGrant(totalEquity, allocatedEquity, grantAmount decimal.Decimal) GrantValidation {
	treasury := totalEquity.Sub(allocatedEquity)
	if !grantAmount.IsPositive() {
		return GrantValidation{Treasury: treasury, Code: RejectionNonPositiveAmount, Error: "Amount must be positive"}
	}
	if grantAmount.GreaterThan(treasury) {
		return GrantValidation{
			Treasury: treasury,
			Code:     RejectionInsufficientTreasury,
			Error: fmt.Sprintf(
				"Insufficient treasury: %s available, %s requested",
				formatPct(treasury), formatPct(grantAmount),
			),
		}
	}
	return GrantValidation{Valid: true, Treasury: treasury}
}
