package equity

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"
	"github.com/shopspring/decimal"
)

// Role is a member's position in the company.
type Role string

const (
	RoleFounder    Role = "founder"
	RoleAdmin      Role = "admin"
	RoleMember     Role = "member"
	RoleContractor Role = "contractor"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleFounder, RoleAdmin, RoleMember, RoleContractor:
		return true
	default:
		return false
	}
}

// ParseRole canonicalizes a role label.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	return role, role.Valid()
}

// Member is one agent's membership in a company.
type Member struct {
	AgentID   string
	CompanyID string
	Role      Role
	Equity    decimal.Decimal
	JoinedAt  time.Time
}

// validateMembers checks rows loaded for a ledger.
func validateMembers(companyID string, members []Member) error {
	seen := make(map[string]struct{}, len(members))
	for _, member := range members {
		invalid := func(reason string) error {
			return apperrors.WithMetadata(
				apperrors.CodeEquityInvalidMember,
				fmt.Sprintf("membership %q is invalid: %s", member.AgentID, reason),
				map[string]string{"AgentID": member.AgentID, "Reason": reason},
			)
		}
		if strings.TrimSpace(member.AgentID) == "" {
			return invalid("agent id is required")
		}
		if member.CompanyID != "" && member.CompanyID != companyID {
			return invalid("member belongs to another company")
		}
		if !member.Role.Valid() {
			return invalid("role is invalid")
		}
		if member.Equity.IsNegative() {
			return invalid("equity must not be negative")
		}
		if _, ok := seen[member.AgentID]; ok {
			return invalid("duplicate membership")
		}
		seen[member.AgentID] = struct{}{}
	}
	return nil
}
