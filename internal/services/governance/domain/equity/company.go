package equity

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/louisbranch/moltcompany/internal/platform/id"
	"github.com/shopspring/decimal"
)

// Default equity policy for new companies.
var (
	DefaultTotalEquity   = decimal.NewFromInt(100)
	DefaultAdminFloorPct = decimal.NewFromInt(51)
	DefaultMemberPoolPct = decimal.NewFromInt(49)
)

// Company is the equity configuration of one company.
type Company struct {
	ID   string
	Name string
	// TotalEquity is the issued amount; members hold slices of it.
	TotalEquity decimal.Decimal
	// AdminAgentID identifies the member guaranteed the admin floor.
	AdminAgentID string
	// AdminFloorPct is the admin's share under the target distribution.
	AdminFloorPct decimal.Decimal
	// MemberPoolPct is split equally among non-admin members.
	MemberPoolPct decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CompanyInput describes the configuration needed to create a company.
// Unset percentages fall back to the package defaults.
type CompanyInput struct {
	Name          string
	AdminAgentID  string
	TotalEquity   decimal.NullDecimal
	AdminFloorPct decimal.NullDecimal
	MemberPoolPct decimal.NullDecimal
}

// NewCompany creates a company with a generated ID and timestamps.
func NewCompany(input CompanyInput, now func() time.Time, idGenerator func() (string, error)) (Company, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	company := Company{
		Name:          strings.TrimSpace(input.Name),
		AdminAgentID:  strings.TrimSpace(input.AdminAgentID),
		TotalEquity:   valueOr(input.TotalEquity, DefaultTotalEquity),
		AdminFloorPct: valueOr(input.AdminFloorPct, DefaultAdminFloorPct),
		MemberPoolPct: valueOr(input.MemberPoolPct, DefaultMemberPoolPct),
	}
	if err := ValidateCompany(company); err != nil {
		return Company{}, err
	}

	companyID, err := idGenerator()
	if err != nil {
		return Company{}, fmt.Errorf("generate company id: %w", err)
	}
	createdAt := now().UTC()
	company.ID = companyID
	company.CreatedAt = createdAt
	company.UpdatedAt = createdAt
	return company, nil
}

// ValidateCompany checks the equity policy invariants of a company:
// adminFloorPct + memberPoolPct <= 100, non-negative percentages and total.
func ValidateCompany(company Company) error {
	invalid := func(reason string) error {
		return apperrors.WithMetadata(
			apperrors.CodeEquityInvalidCompanyConfig,
			"company equity configuration is invalid: "+reason,
			map[string]string{"Reason": reason},
		)
	}
	if company.Name == "" {
		return invalid("name is required")
	}
	if company.AdminAgentID == "" {
		return invalid("admin agent id is required")
	}
	if company.TotalEquity.IsNegative() {
		return invalid("total equity must not be negative")
	}
	if company.AdminFloorPct.IsNegative() || company.MemberPoolPct.IsNegative() {
		return invalid("percentages must not be negative")
	}
	if company.AdminFloorPct.Add(company.MemberPoolPct).GreaterThan(hundred) {
		return invalid("admin floor and member pool exceed 100%")
	}
	return nil
}

// Treasury returns the unallocated equity implied by members.
func (c Company) Treasury(members []Member) decimal.Decimal {
	return c.TotalEquity.Sub(sumEquity(members))
}

// IsAdmin reports whether agentID is the company admin.
func (c Company) IsAdmin(agentID string) bool {
	return agentID != "" && agentID == c.AdminAgentID
}

func valueOr(value decimal.NullDecimal, fallback decimal.Decimal) decimal.Decimal {
	if value.Valid {
		return value.Decimal
	}
	return fallback
}
