// Package controller implements the Controller (C4): drains the
// ActionQueue once per tick, validates each action against the common and
// type-specific rules of spec.md §4.4, mutates the Ledger and IssueStore on
// acceptance, and emits exactly one structured event per action.
package controller

import (
	"math"

	"github.com/codeready-toolchain/roundtable/internal/engine/actionqueue"
	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
	"github.com/codeready-toolchain/roundtable/internal/engine/rtstate"
	"github.com/codeready-toolchain/roundtable/pkg/textdelta"
)

// Params configures the validation thresholds and stake amounts the
// Controller enforces, per spec.md §6 Configuration. It is a decoupled
// mirror of pkg/config.RoundtableConfig, kept import-free of that ambient
// package; the engine translates between the two at construction.
type Params struct {
	ProposalSelfStake        int
	MaxFeedbackPerAgent      int
	FeedbackStake            int
	FeedbackCommentMaxLength int
	Conviction               ledger.ConvictionParams
}

// Controller has no state of its own; it operates on the RoundtableState
// passed to Process.
type Controller struct {
	params Params
}

// New creates a Controller bound to params.
func New(params Params) *Controller {
	return &Controller{params: params}
}

// Process drains state.Queue and applies every action in FIFO order,
// returning one EventRecord per action (rejection or acceptance), in the
// same order the actions were drained.
func (c *Controller) Process(state *rtstate.State, tick int) []model.EventRecord {
	actions := state.Queue.Drain()
	events := make([]model.EventRecord, 0, len(actions))
	for _, action := range actions {
		events = append(events, c.apply(state, action, tick))
	}
	return events
}

func rejected(eventType string, agentID string, tick int, reason model.RejectionReason, extra map[string]any) model.EventRecord {
	payload := map[string]any{"reason": string(reason)}
	for k, v := range extra {
		payload[k] = v
	}
	return model.EventRecord{
		Tick:      tick,
		EventType: eventType,
		AgentID:   agentID,
		Payload:   payload,
		Message:   "rejected: " + string(reason),
		Level:     model.LevelWarn,
	}
}

func accepted(eventType, agentID string, tick int, payload map[string]any) model.EventRecord {
	return model.EventRecord{
		Tick:      tick,
		EventType: eventType,
		AgentID:   agentID,
		Payload:   payload,
		Level:     model.LevelInfo,
	}
}

// apply dispatches a single drained action. signal_ready bypasses common
// validation entirely, per spec.md §4.4 step 1.
func (c *Controller) apply(state *rtstate.State, action actionqueue.Action, tick int) model.EventRecord {
	if action.Type == actionqueue.ActionSignalReady {
		state.MarkReady(action.AgentID)
		return accepted("AGENT_READY", action.AgentID, tick, nil)
	}

	issueID, ok := actionIssueID(action)
	if ok && issueID != "" && issueID != state.Issues.Issue().IssueID {
		return rejected(rejectedEventName(action.Type), action.AgentID, tick, model.ReasonWrongIssue, nil)
	}
	if !state.Issues.Issue().IsAssigned(action.AgentID) {
		return rejected(rejectedEventName(action.Type), action.AgentID, tick, model.ReasonNotAssigned, nil)
	}

	switch action.Type {
	case actionqueue.ActionSubmitProposal:
		return c.submitProposal(state, action, tick)
	case actionqueue.ActionFeedback:
		return c.feedback(state, action, tick)
	case actionqueue.ActionRevise:
		return c.revise(state, action, tick)
	case actionqueue.ActionStake:
		return c.stake(state, action, tick)
	case actionqueue.ActionSwitchStake:
		return c.switchStake(state, action, tick)
	case actionqueue.ActionUnstake:
		return c.unstake(state, action, tick)
	default:
		return rejected("ACTION_REJECTED", action.AgentID, tick, model.ReasonInvalidAmount, nil)
	}
}

func actionIssueID(action actionqueue.Action) (string, bool) {
	switch p := action.Payload.(type) {
	case actionqueue.SubmitProposalPayload:
		return p.IssueID, true
	case actionqueue.FeedbackPayload:
		return p.IssueID, true
	case actionqueue.RevisePayload:
		return p.IssueID, true
	case actionqueue.StakePayload:
		return p.IssueID, true
	default:
		return "", false
	}
}

func rejectedEventName(t actionqueue.ActionType) string {
	switch t {
	case actionqueue.ActionSubmitProposal:
		return "PROPOSAL_SUBMITTED_REJECTED"
	case actionqueue.ActionFeedback:
		return "FEEDBACK_REJECTED"
	case actionqueue.ActionRevise:
		return "REVISION_REJECTED"
	case actionqueue.ActionStake:
		return "STAKE_REJECTED"
	case actionqueue.ActionSwitchStake:
		return "SWITCH_REJECTED"
	case actionqueue.ActionUnstake:
		return "UNSTAKE_REJECTED"
	default:
		return "ACTION_REJECTED"
	}
}

// submitProposal implements spec.md §4.4 submit_proposal.
func (c *Controller) submitProposal(state *rtstate.State, action actionqueue.Action, tick int) model.EventRecord {
	payload := action.Payload.(actionqueue.SubmitProposalPayload)
	agent := action.AgentID

	if state.ProposalsThisPhase[agent] {
		return rejected("PROPOSAL_SUBMITTED_REJECTED", agent, tick, model.ReasonAlreadySubmitted, nil)
	}
	if state.Ledger.Balance(agent) < c.params.ProposalSelfStake {
		return rejected("PROPOSAL_SUBMITTED_REJECTED", agent, tick, model.ReasonInsufficientCP, nil)
	}

	id := state.ProposalCounter.Next()
	proposal := &model.Proposal{
		ProposalID:     id,
		IssueID:        state.Issues.Issue().IssueID,
		Content:        payload.Content,
		Author:         agent,
		AuthorType:     model.AuthorAgent,
		Type:           model.ProposalStandard,
		ParentID:       nil,
		RevisionNumber: 1,
		Active:         true,
		Tick:           tick,
	}
	state.Issues.AddProposal(proposal)
	state.Ledger.StakeToProposal(agent, id, c.params.ProposalSelfStake, tick, model.StakeInitial)
	state.ProposalsThisPhase[agent] = true
	state.MarkReady(agent)

	return accepted("PROPOSAL_SUBMITTED", agent, tick, map[string]any{
		"proposal_id": id,
	})
}

// feedback implements spec.md §4.4 feedback.
func (c *Controller) feedback(state *rtstate.State, action actionqueue.Action, tick int) model.EventRecord {
	payload := action.Payload.(actionqueue.FeedbackPayload)
	agent := action.AgentID
	issue := state.Issues.Issue()

	if current, ok := issue.AgentToProposalID[agent]; ok && current == payload.TargetProposalID {
		return rejected("FEEDBACK_REJECTED", agent, tick, model.ReasonSelfFeedback, nil)
	}
	if state.Issues.CountFeedbacksBy(agent) >= c.params.MaxFeedbackPerAgent {
		return rejected("FEEDBACK_REJECTED", agent, tick, model.ReasonFeedbackQuotaReached, nil)
	}
	if state.Ledger.Balance(agent) < c.params.FeedbackStake {
		return rejected("FEEDBACK_REJECTED", agent, tick, model.ReasonInsufficientCP, nil)
	}
	if len(payload.Comment) > c.params.FeedbackCommentMaxLength {
		return rejected("FEEDBACK_REJECTED", agent, tick, model.ReasonCommentTooLong, nil)
	}

	state.Ledger.TryDeduct(agent, c.params.FeedbackStake, "feedback_stake", tick)
	state.Issues.AddFeedback(agent, payload.TargetProposalID, payload.Comment, tick)
	state.MarkReady(agent)

	return accepted("FEEDBACK_RECORDED", agent, tick, map[string]any{
		"target_proposal_id": payload.TargetProposalID,
	})
}

// revise implements spec.md §4.4 revise.
func (c *Controller) revise(state *rtstate.State, action actionqueue.Action, tick int) model.EventRecord {
	payload := action.Payload.(actionqueue.RevisePayload)
	agent := action.AgentID
	issue := state.Issues.Issue()

	currentID, ok := issue.AgentToProposalID[agent]
	if !ok {
		return rejected("REVISION_REJECTED", agent, tick, model.ReasonNoProposalToRevise, nil)
	}
	old, ok := issue.FindProposal(currentID)
	if !ok || !old.Active {
		return rejected("REVISION_REJECTED", agent, tick, model.ReasonActiveProposalNotFound, nil)
	}
	if old.Author != agent {
		return rejected("REVISION_REJECTED", agent, tick, model.ReasonNotProposalAuthor, nil)
	}

	delta := textdelta.SentenceSequenceDelta(old.Content, payload.NewContent)
	if delta < 0.1 || delta > 1.0 {
		return rejected("REVISION_REJECTED", agent, tick, model.ReasonInvalidCalculatedDelta, map[string]any{"delta": delta})
	}

	cost := int(math.Floor(float64(c.params.ProposalSelfStake) * delta))
	if !state.Ledger.TryDeduct(agent, cost, "revision_cost", tick) {
		return rejected("REVISION_REJECTED", agent, tick, model.ReasonInsufficientCP, map[string]any{"cost": cost})
	}

	newID := state.ProposalCounter.Next()
	parentID := old.ProposalID
	revised := &model.Proposal{
		ProposalID:     newID,
		IssueID:        issue.IssueID,
		Content:        payload.NewContent,
		Author:         old.Author,
		AuthorType:     old.AuthorType,
		Type:           old.Type,
		ParentID:       &parentID,
		RevisionNumber: old.RevisionNumber + 1,
		Active:         true,
		Tick:           tick,
	}
	old.Active = false
	state.Issues.AddProposal(revised)
	state.Issues.AssignAgentToProposal(agent, newID)
	state.Ledger.TransferStake(old.ProposalID, newID, tick)
	state.Ledger.Credit(agent, 0, "revision", tick)
	state.MarkReady(agent)

	return accepted("REVISION_RECORDED", agent, tick, map[string]any{
		"old_proposal_id": old.ProposalID,
		"new_proposal_id": newID,
		"delta":           delta,
		"cost":            cost,
	})
}

// stake implements spec.md §4.4 stake.
func (c *Controller) stake(state *rtstate.State, action actionqueue.Action, tick int) model.EventRecord {
	payload := action.Payload.(actionqueue.StakePayload)
	agent := action.AgentID
	issue := state.Issues.Issue()

	if payload.StakeAmount <= 0 {
		return rejected("STAKE_REJECTED", agent, tick, model.ReasonInvalidAmount, nil)
	}
	if payload.ProposalID == nil {
		return rejected("STAKE_REJECTED", agent, tick, model.ReasonMissingProposalID, nil)
	}
	proposalID := *payload.ProposalID

	if current, ok := issue.AgentToProposalID[agent]; ok && current == proposalID {
		if latest, latestOK := issue.FindActiveProposalByAuthor(agent); latestOK && latest.ProposalID != proposalID {
			return rejected("STAKE_REJECTED", agent, tick, model.ReasonNotLatestProposal, nil)
		}
	}

	if !state.Ledger.StakeToProposal(agent, proposalID, payload.StakeAmount, tick, model.StakeVoluntary) {
		return rejected("STAKE_REJECTED", agent, tick, model.ReasonInsufficientCPForStake, nil)
	}

	update := state.Ledger.UpdateConviction(agent, proposalID, payload.StakeAmount, c.params.Conviction)
	state.MarkReady(agent)

	return accepted("STAKE_RECORDED", agent, tick, map[string]any{
		"proposal_id":        proposalID,
		"round_number":       payload.RoundNumber,
		"multiplier":         update.Multiplier,
		"effective_weight":   update.EffectiveWeight,
		"total_conviction":   update.TotalConviction,
		"consecutive_rounds": update.ConsecutiveRounds,
		"switched_from":      update.SwitchedFrom,
	})
}

// switchStake implements spec.md §4.4 switch_stake.
func (c *Controller) switchStake(state *rtstate.State, action actionqueue.Action, tick int) model.EventRecord {
	payload := action.Payload.(actionqueue.SwitchStakePayload)
	agent := action.AgentID

	if payload.SourceProposalID == 0 && payload.TargetProposalID == 0 {
		return rejected("SWITCH_REJECTED", agent, tick, model.ReasonMissingProposalIDs, nil)
	}
	if payload.SourceProposalID == payload.TargetProposalID {
		return rejected("SWITCH_REJECTED", agent, tick, model.ReasonSameProposal, nil)
	}
	entry, ok := state.Ledger.ConvictionEntry(agent, payload.SourceProposalID)
	if !ok || entry.AccumulatedCP < payload.CPAmount {
		return rejected("SWITCH_REJECTED", agent, tick, model.ReasonInsufficientConviction, nil)
	}

	if !state.Ledger.SwitchConviction(agent, payload.SourceProposalID, payload.TargetProposalID, payload.CPAmount, tick, payload.Reason) {
		return rejected("SWITCH_REJECTED", agent, tick, model.ReasonSwitchFailed, nil)
	}
	state.MarkReady(agent)

	return accepted("SWITCH_RECORDED", agent, tick, map[string]any{
		"source_proposal_id": payload.SourceProposalID,
		"target_proposal_id": payload.TargetProposalID,
		"cp_amount":          payload.CPAmount,
	})
}

// unstake implements spec.md §4.4 unstake.
func (c *Controller) unstake(state *rtstate.State, action actionqueue.Action, tick int) model.EventRecord {
	payload := action.Payload.(actionqueue.UnstakePayload)
	agent := action.AgentID

	if !state.Ledger.UnstakeFromProposal(agent, payload.ProposalID, payload.CPAmount, tick, payload.Reason) {
		return rejected("UNSTAKE_REJECTED", agent, tick, model.ReasonUnstakeFailed, nil)
	}
	state.MarkReady(agent)

	return accepted("UNSTAKE_RECORDED", agent, tick, map[string]any{
		"proposal_id": payload.ProposalID,
		"cp_amount":   payload.CPAmount,
	})
}
