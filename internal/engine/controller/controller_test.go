package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/roundtable/internal/engine/actionqueue"
	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
	"github.com/codeready-toolchain/roundtable/internal/engine/rtstate"
)

func newState(t *testing.T, agents ...string) *rtstate.State {
	t.Helper()
	issue := model.NewIssue("issue-1", "Pick a path", "what should we do?", "background", agents)
	balances := make(map[string]int, len(agents))
	for _, a := range agents {
		balances[a] = 100
	}
	state := rtstate.New("sim-1", issue, balances)
	state.Issues.AddProposal(&model.Proposal{
		ProposalID: model.NoActionProposalID,
		IssueID:    issue.IssueID,
		Author:     "system",
		AuthorType: model.AuthorSystem,
		Type:       model.ProposalNoAction,
		Active:     true,
	})
	return state
}

func params() Params {
	return Params{
		ProposalSelfStake:        10,
		MaxFeedbackPerAgent:      3,
		FeedbackStake:            5,
		FeedbackCommentMaxLength: 200,
		Conviction: ledger.ConvictionParams{
			Mode:           ledger.ModeExponential,
			MaxMultiplier:  3.0,
			TargetFraction: 0.9,
			TargetRounds:   5,
		},
	}
}

func TestApply_SignalReadyBypassesValidation(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{Type: actionqueue.ActionSignalReady, AgentID: "agent-a"}, 1)

	assert.Equal(t, "AGENT_READY", ev.EventType)
	assert.True(t, state.Ready["agent-a"])
}

func TestApply_RejectsUnassignedAgent(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "intruder",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "issue-1", Content: "do it"},
	}, 1)

	assert.Equal(t, "PROPOSAL_SUBMITTED_REJECTED", ev.EventType)
	assert.Equal(t, string(model.ReasonNotAssigned), ev.Payload["reason"])
}

func TestApply_RejectsWrongIssue(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "agent-a",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "other-issue", Content: "do it"},
	}, 1)

	assert.Equal(t, string(model.ReasonWrongIssue), ev.Payload["reason"])
}

func TestSubmitProposal_Accepts(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "agent-a",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "issue-1", Content: "do the thing"},
	}, 1)

	require.Equal(t, "PROPOSAL_SUBMITTED", ev.EventType)
	assert.Equal(t, 1, ev.Payload["proposal_id"])
	assert.Equal(t, 90, state.Ledger.Balance("agent-a"))
	assert.True(t, state.Ready["agent-a"])
}

func TestSubmitProposal_RejectsAlreadySubmittedThisPhase(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "agent-a",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "issue-1", Content: "first"},
	}, 1)
	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "agent-a",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "issue-1", Content: "second"},
	}, 1)

	assert.Equal(t, "PROPOSAL_SUBMITTED_REJECTED", ev.EventType)
	assert.Equal(t, string(model.ReasonAlreadySubmitted), ev.Payload["reason"])
}

func TestSubmitProposal_RejectsInsufficientCP(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")
	state.Ledger.TryDeduct("agent-a", 95, "drain", 1)

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "agent-a",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "issue-1", Content: "do it"},
	}, 1)

	assert.Equal(t, string(model.ReasonInsufficientCP), ev.Payload["reason"])
}

func TestFeedback_RejectsSelfFeedback(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")
	c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "agent-a",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "issue-1", Content: "mine"},
	}, 1)

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionFeedback,
		AgentID: "agent-a",
		Payload: actionqueue.FeedbackPayload{IssueID: "issue-1", TargetProposalID: 1, Comment: "nice", Tick: 2},
	}, 2)

	assert.Equal(t, string(model.ReasonSelfFeedback), ev.Payload["reason"])
}

func TestFeedback_RejectsQuotaReached(t *testing.T) {
	p := params()
	p.MaxFeedbackPerAgent = 1
	c := New(p)
	state := newState(t, "agent-a")
	state.Issues.AddFeedback("agent-a", 1, "first", 1)

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionFeedback,
		AgentID: "agent-a",
		Payload: actionqueue.FeedbackPayload{IssueID: "issue-1", TargetProposalID: 2, Comment: "second", Tick: 2},
	}, 2)

	assert.Equal(t, string(model.ReasonFeedbackQuotaReached), ev.Payload["reason"])
}

func TestFeedback_RejectsCommentTooLong(t *testing.T) {
	p := params()
	p.FeedbackCommentMaxLength = 5
	c := New(p)
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionFeedback,
		AgentID: "agent-a",
		Payload: actionqueue.FeedbackPayload{IssueID: "issue-1", TargetProposalID: 1, Comment: "way too long", Tick: 1},
	}, 1)

	assert.Equal(t, string(model.ReasonCommentTooLong), ev.Payload["reason"])
}

func TestFeedback_Accepts(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionFeedback,
		AgentID: "agent-a",
		Payload: actionqueue.FeedbackPayload{IssueID: "issue-1", TargetProposalID: 0, Comment: "fine", Tick: 1},
	}, 1)

	require.Equal(t, "FEEDBACK_RECORDED", ev.EventType)
	assert.Equal(t, 95, state.Ledger.Balance("agent-a"))
	assert.Equal(t, 1, state.Issues.CountFeedbacksBy("agent-a"))
}

func TestRevise_RejectsWhenNoCurrentProposal(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionRevise,
		AgentID: "agent-a",
		Payload: actionqueue.RevisePayload{IssueID: "issue-1", NewContent: "new", Tick: 1},
	}, 1)

	assert.Equal(t, string(model.ReasonNoProposalToRevise), ev.Payload["reason"])
}

func TestRevise_RejectsNotAuthor(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a", "agent-b")
	state.Issues.AddProposal(&model.Proposal{ProposalID: 1, IssueID: "issue-1", Content: "mine", Author: "agent-a", AuthorType: model.AuthorAgent, Active: true})
	state.Issues.AssignAgentToProposal("agent-b", 1)

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionRevise,
		AgentID: "agent-b",
		Payload: actionqueue.RevisePayload{IssueID: "issue-1", NewContent: "hijack", Tick: 2},
	}, 2)

	assert.Equal(t, string(model.ReasonNotProposalAuthor), ev.Payload["reason"])
}

func TestRevise_AcceptsAndDeactivatesOldVersion(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")
	state.Issues.AddProposal(&model.Proposal{
		ProposalID: 1, IssueID: "issue-1",
		Content:    "The team should ship the migration this week. It reduces risk.",
		Author:     "agent-a", AuthorType: model.AuthorAgent, Active: true,
		RevisionNumber: 1,
	})
	state.ProposalCounter.Next() // consume id 1

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionRevise,
		AgentID: "agent-a",
		Payload: actionqueue.RevisePayload{
			IssueID:    "issue-1",
			NewContent: "The team should ship the migration next week instead. It reduces risk further.",
			Tick:       2,
		},
	}, 2)

	require.Equal(t, "REVISION_RECORDED", ev.EventType)
	old, ok := state.Issues.FindProposal(1)
	require.True(t, ok)
	assert.False(t, old.Active)
	newID := ev.Payload["new_proposal_id"].(int)
	current, _ := state.Issues.CurrentProposalID("agent-a")
	assert.Equal(t, newID, current)
}

func TestStake_RejectsMissingProposalID(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionStake,
		AgentID: "agent-a",
		Payload: actionqueue.StakePayload{IssueID: "issue-1", ProposalID: nil, StakeAmount: 5, Tick: 1},
	}, 1)

	assert.Equal(t, string(model.ReasonMissingProposalID), ev.Payload["reason"])
}

func TestStake_RejectsNonPositiveAmount(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")
	pid := 0

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionStake,
		AgentID: "agent-a",
		Payload: actionqueue.StakePayload{IssueID: "issue-1", ProposalID: &pid, StakeAmount: 0, Tick: 1},
	}, 1)

	assert.Equal(t, string(model.ReasonInvalidAmount), ev.Payload["reason"])
}

func TestStake_Accepts(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")
	pid := 0

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionStake,
		AgentID: "agent-a",
		Payload: actionqueue.StakePayload{IssueID: "issue-1", ProposalID: &pid, StakeAmount: 10, RoundNumber: 1, Tick: 1},
	}, 1)

	require.Equal(t, "STAKE_RECORDED", ev.EventType)
	assert.Equal(t, 90, state.Ledger.Balance("agent-a"))
	entry, ok := state.Ledger.ConvictionEntry("agent-a", 0)
	require.True(t, ok)
	assert.Equal(t, 10, entry.AccumulatedCP)
}

func TestUnstake_RejectsWhenInsufficientConviction(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionUnstake,
		AgentID: "agent-a",
		Payload: actionqueue.UnstakePayload{IssueID: "issue-1", ProposalID: 0, CPAmount: 5, Reason: "changed my mind"},
	}, 1)

	assert.Equal(t, string(model.ReasonUnstakeFailed), ev.Payload["reason"])
}

func TestSwitchStake_RejectsSameProposal(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSwitchStake,
		AgentID: "agent-a",
		Payload: actionqueue.SwitchStakePayload{IssueID: "issue-1", SourceProposalID: 1, TargetProposalID: 1, CPAmount: 5},
	}, 1)

	assert.Equal(t, string(model.ReasonSameProposal), ev.Payload["reason"])
}

func TestSwitchStake_AcceptsAndMovesConviction(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")
	pid0 := 0
	c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionStake,
		AgentID: "agent-a",
		Payload: actionqueue.StakePayload{IssueID: "issue-1", ProposalID: &pid0, StakeAmount: 10, Tick: 1},
	}, 1)

	ev := c.apply(state, actionqueue.Action{
		Type:    actionqueue.ActionSwitchStake,
		AgentID: "agent-a",
		Payload: actionqueue.SwitchStakePayload{IssueID: "issue-1", SourceProposalID: 0, TargetProposalID: 1, CPAmount: 10, Reason: "better proposal"},
	}, 2)

	require.Equal(t, "SWITCH_RECORDED", ev.EventType)
	src, _ := state.Ledger.ConvictionEntry("agent-a", 0)
	dst, _ := state.Ledger.ConvictionEntry("agent-a", 1)
	assert.Equal(t, 0, src.AccumulatedCP)
	assert.Equal(t, 10, dst.AccumulatedCP)
}

func TestProcess_DrainsInFIFOOrderAndEmitsOnePerAction(t *testing.T) {
	c := New(params())
	state := newState(t, "agent-a")
	state.Queue.Submit(actionqueue.Action{Type: actionqueue.ActionSignalReady, AgentID: "agent-a"})
	state.Queue.Submit(actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: "agent-a",
		Payload: actionqueue.SubmitProposalPayload{IssueID: "issue-1", Content: "do it"},
	})

	events := c.Process(state, 1)

	require.Len(t, events, 2)
	assert.Equal(t, "AGENT_READY", events[0].EventType)
	assert.Equal(t, "PROPOSAL_SUBMITTED", events[1].EventType)
}
