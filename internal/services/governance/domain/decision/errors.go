package decision

import apperrors "github.com/louisbranch/moltcompany/internal/platform/errors"

// Vote rejection codes.
const (
	RejectionAgentRequired = "DECISION_AGENT_REQUIRED"
	RejectionNotActive     = "DECISION_NOT_ACTIVE"
	RejectionVotingEnded   = "DECISION_VOTING_ENDED"
	RejectionInvalidOption = "DECISION_INVALID_OPTION"
	RejectionNotEligible   = "DECISION_AGENT_NOT_ELIGIBLE"
	RejectionVotingOpen    = "DECISION_VOTING_OPEN"
)

// Resolution reasons reported on failed results.
const (
	ReasonQuorumNotMet  = "Quorum not met"
	ReasonNotAllMembers = "Not all members voted"
	ReasonNoConsensus   = "No consensus"
)

var (
	// ErrInvalidOptions indicates fewer than two options or duplicated options.
	ErrInvalidOptions = apperrors.New(apperrors.CodeDecisionInvalidOptions, "decision options are invalid")
	// ErrEmptyTitle indicates a decision without a title.
	ErrEmptyTitle = apperrors.New(apperrors.CodeDecisionEmptyTitle, "decision title is required")
	// ErrEmptyCompanyID indicates a decision without a company.
	ErrEmptyCompanyID = apperrors.New(apperrors.CodeDecisionEmptyCompanyID, "decision company id is required")
	// ErrInvalidQuorum indicates a quorum outside the method's range.
	ErrInvalidQuorum = apperrors.New(apperrors.CodeDecisionInvalidQuorum, "decision quorum is invalid")
	// ErrInvalidVotingWindow indicates a voting deadline that is not in the future.
	ErrInvalidVotingWindow = apperrors.New(apperrors.CodeDecisionInvalidVotingWindow, "voting window is invalid")
	// ErrInvalidStatusTransition indicates a transition the status table forbids.
	ErrInvalidStatusTransition = apperrors.New(apperrors.CodeDecisionInvalidStatusTransition, "decision status transition not allowed")
	// ErrSnapshotFrozen indicates an attempt to replace an already captured snapshot.
	ErrSnapshotFrozen = apperrors.New(apperrors.CodeDecisionSnapshotFrozen, "decision snapshot already frozen")
	// ErrVotingOpen indicates an early close of a decision that has not met
	// quorum; it can still gather votes until its deadline.
	ErrVotingOpen = apperrors.New(apperrors.CodeDecisionVotingOpen, "voting is still open and quorum is not met")
)
