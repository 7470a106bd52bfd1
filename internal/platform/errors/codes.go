// Package errors provides structured, coded errors shared by every service.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Equity errors
	CodeEquityInvalidCompanyConfig Code = "EQUITY_INVALID_COMPANY_CONFIG"
	CodeEquityInvalidMember        Code = "EQUITY_INVALID_MEMBER"
	CodeEquityInvalidIssuance      Code = "EQUITY_INVALID_ISSUANCE"
	CodeEquityCompanyMismatch      Code = "EQUITY_COMPANY_MISMATCH"

	// Decision errors
	CodeDecisionUnknownVotingMethod     Code = "DECISION_UNKNOWN_VOTING_METHOD"
	CodeDecisionInvalidOptions          Code = "DECISION_INVALID_OPTIONS"
	CodeDecisionEmptyTitle              Code = "DECISION_EMPTY_TITLE"
	CodeDecisionEmptyCompanyID          Code = "DECISION_EMPTY_COMPANY_ID"
	CodeDecisionInvalidQuorum           Code = "DECISION_INVALID_QUORUM"
	CodeDecisionInvalidVotingWindow     Code = "DECISION_INVALID_VOTING_WINDOW"
	CodeDecisionInvalidStatusTransition Code = "DECISION_INVALID_STATUS_TRANSITION"
	CodeDecisionSnapshotFrozen          Code = "DECISION_SNAPSHOT_FROZEN"
	CodeDecisionVotingOpen              Code = "DECISION_VOTING_OPEN"

	// Storage errors
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeEquityInvalidCompanyConfig,
		CodeEquityInvalidMember,
		CodeEquityInvalidIssuance,
		CodeEquityCompanyMismatch,
		CodeDecisionUnknownVotingMethod,
		CodeDecisionInvalidOptions,
		CodeDecisionEmptyTitle,
		CodeDecisionEmptyCompanyID,
		CodeDecisionInvalidQuorum,
		CodeDecisionInvalidVotingWindow:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeDecisionInvalidStatusTransition,
		CodeDecisionSnapshotFrozen,
		CodeDecisionVotingOpen:
		return codes.FailedPrecondition

	case CodeNotFound:
		return codes.NotFound

	case CodeAlreadyExists:
		return codes.AlreadyExists

	default:
		return codes.Internal
	}
}
