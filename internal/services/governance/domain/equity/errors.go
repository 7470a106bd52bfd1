package equity

import apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"

// Rejection codes returned in outcome rejections and validations.
const (
	RejectionAgentRequired        = "EQUITY_AGENT_REQUIRED"
	RejectionInvalidRole          = "EQUITY_INVALID_ROLE"
	RejectionAdminRoleRequired    = "EQUITY_ADMIN_ROLE_REQUIRED"
	RejectionMemberExists         = "EQUITY_MEMBER_EXISTS"
	RejectionMemberNotFound       = "EQUITY_MEMBER_NOT_FOUND"
	RejectionAdminCannotLeave     = "EQUITY_ADMIN_CANNOT_LEAVE"
	RejectionSourceNotFound       = "EQUITY_SOURCE_NOT_FOUND"
	RejectionDestinationNotFound  = "EQUITY_DESTINATION_NOT_FOUND"
	RejectionNonPositiveAmount    = "EQUITY_NON_POSITIVE_AMOUNT"
	RejectionInsufficientEquity   = "EQUITY_INSUFFICIENT_EQUITY"
	RejectionSelfTransfer         = "EQUITY_SELF_TRANSFER"
	RejectionInsufficientTreasury = "EQUITY_INSUFFICIENT_TREASURY"
	RejectionAdminFloor           = "EQUITY_ADMIN_FLOOR"
	RejectionTargetExceedsTotal   = "EQUITY_TARGET_EXCEEDS_TOTAL"
	RejectionNonPositiveIssuance  = "EQUITY_NON_POSITIVE_ISSUANCE"
)

var (
	// ErrInvalidCompanyConfig indicates a company whose percentages or totals break the equity policy.
	ErrInvalidCompanyConfig = apperrors.New(apperrors.CodeEquityInvalidCompanyConfig, "company equity configuration is invalid")
	// ErrInvalidMember indicates a malformed membership row.
	ErrInvalidMember = apperrors.New(apperrors.CodeEquityInvalidMember, "membership is invalid")
	// ErrInvalidIssuance indicates a non-positive issuance amount.
	ErrInvalidIssuance = apperrors.New(apperrors.CodeEquityInvalidIssuance, "issuance must be positive")
	// ErrCompanyMismatch indicates a change applied to the wrong company ledger.
	ErrCompanyMismatch = apperrors.New(apperrors.CodeEquityCompanyMismatch, "change belongs to a different company")
	// ErrUnknownVotingMethod indicates a voting method outside the supported set.
	ErrUnknownVotingMethod = apperrors.New(apperrors.CodeDecisionUnknownVotingMethod, "Unknown voting method")
)
