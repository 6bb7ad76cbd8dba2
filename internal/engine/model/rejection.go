package model

// RejectionReason is the closed set of validation-rejection codes the
// Controller may attach to a `*_REJECTED` event, per spec.md §7.
type RejectionReason string

const (
	ReasonNoActiveIssue           RejectionReason = "no_active_issue"
	ReasonWrongIssue              RejectionReason = "wrong_issue"
	ReasonNotAssigned             RejectionReason = "not_assigned"
	ReasonInvalidAmount           RejectionReason = "invalid_amount"
	ReasonMissingProposalID       RejectionReason = "missing_proposal_id"
	ReasonAlreadySubmitted        RejectionReason = "already_submitted"
	ReasonNoProposalToRevise      RejectionReason = "no_proposal_to_revise"
	ReasonActiveProposalNotFound  RejectionReason = "active_proposal_not_found"
	ReasonNotProposalAuthor       RejectionReason = "not_proposal_author"
	ReasonInvalidCalculatedDelta  RejectionReason = "invalid_calculated_delta"
	ReasonInsufficientCP          RejectionReason = "insufficient_cp"
	ReasonInsufficientCPForStake  RejectionReason = "insufficient_cp_for_stake"
	ReasonInsufficientConviction  RejectionReason = "insufficient_conviction"
	ReasonNotLatestProposal       RejectionReason = "not_latest_proposal"
	ReasonSameProposal            RejectionReason = "same_proposal"
	ReasonMissingProposalIDs      RejectionReason = "missing_proposal_ids"
	ReasonSwitchFailed            RejectionReason = "switch_failed"
	ReasonUnstakeFailed           RejectionReason = "unstake_failed"
	ReasonCommentTooLong          RejectionReason = "comment_too_long"
	ReasonSelfFeedback            RejectionReason = "self_feedback"
	ReasonFeedbackQuotaReached    RejectionReason = "feedback_quota_reached"
)
