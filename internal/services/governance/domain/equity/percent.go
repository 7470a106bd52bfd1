package equity

import "github.com/shopspring/decimal"

// Precision is the number of decimal places kept by divisions. Quotients are
// truncated, never rounded up, so a split never allocates more than its total.
const Precision int32 = 8

// ShareScale is the number of decimal places kept by the equal-split share
// before it is cut to Precision for storage. Shares stay strictly decreasing
// in the member count while pool/((n+1)(n+2)) >= 1e-32.
const ShareScale int32 = 32

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Hundred is 100%.
func Hundred() decimal.Decimal { return hundred }

// quotient divides a by b truncated to Precision. Division by zero yields zero.
func quotient(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, Precision+4).Truncate(Precision)
}

// percentOf returns part as a percentage of whole.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	return quotient(part.Mul(hundred), whole)
}

// sumEquity adds the equity held by members.
func sumEquity(members []Member) decimal.Decimal {
	total := decimal.Zero
	for _, member := range members {
		total = total.Add(member.Equity)
	}
	return total
}

// formatPct renders a percentage for user-facing messages.
func formatPct(value decimal.Decimal) string {
	return value.String() + "%"
}
