// Package heuristic provides a reference collaborator.Agent implementation:
// a trait/RNG-driven decision policy demonstrating the collaborator
// boundary the engine deliberately leaves external. It is not part of the
// engine's core semantics — cmd/roundtable wires it in only when no other
// collaborator (e.g. pkg/heuristic/remote) is configured.
package heuristic

import (
	"fmt"
	"math/rand/v2"

	"github.com/codeready-toolchain/roundtable/internal/engine/actionqueue"
	"github.com/codeready-toolchain/roundtable/pkg/collaborator"
)

// Traits parameterize one agent's behavioral tendencies, sampled once per
// agent from a seeded RNG at construction (mirroring the teacher's
// per-agent-seeded-randomness idiom in pkg/agent/scoring_agent.go).
type Traits struct {
	// Assertiveness in [0,1]: likelihood of submitting a competing proposal
	// during Propose rather than waiting to back another agent's.
	Assertiveness float64

	// Collaborativeness in [0,1]: likelihood of leaving feedback during the
	// Feedback phase rather than staying silent.
	Collaborativeness float64

	// Conviction in [0,1]: fraction of spendable balance committed per stake
	// round, scaled by how strongly the agent favors its current proposal.
	Conviction float64

	// Stubbornness in [0,1]: likelihood of ignoring feedback during Revise
	// rather than incorporating it.
	Stubbornness float64
}

// NewTraits samples a Traits value from rng.
func NewTraits(rng *rand.Rand) Traits {
	return Traits{
		Assertiveness:     rng.Float64(),
		Collaborativeness: rng.Float64(),
		Conviction:        rng.Float64(),
		Stubbornness:      rng.Float64(),
	}
}

// Agent is the reference heuristic collaborator.Agent implementation. One
// Agent is constructed per participating agent id; it is never called
// concurrently with itself (collaborator.Agent's contract), so its internal
// rng needs no locking.
type Agent struct {
	traits Traits
	rng    *rand.Rand
}

var _ collaborator.Agent = (*Agent)(nil)

// New creates a heuristic Agent with traits and decision randomness drawn
// from seed, keeping each agent's behavior reproducible given the run seed.
func New(seed uint64) *Agent {
	rng := rand.New(rand.NewPCG(seed, seed^0xa0761d6478bd642f))
	return &Agent{
		traits: NewTraits(rng),
		rng:    rng,
	}
}

// OnSignal implements collaborator.Agent.
func (a *Agent) OnSignal(signal collaborator.Signal, queue *actionqueue.Queue, agentID string) {
	switch signal.Type {
	case collaborator.SignalPropose:
		a.onPropose(signal, queue, agentID)
	case collaborator.SignalFeedback:
		a.onFeedback(signal, queue, agentID)
	case collaborator.SignalRevise:
		a.onRevise(signal, queue, agentID)
	case collaborator.SignalStake:
		a.onStake(signal, queue, agentID)
	case collaborator.SignalFinalize:
		// No action required; Finalize is a read-only signal.
	}
}

func (a *Agent) onPropose(signal collaborator.Signal, queue *actionqueue.Queue, agentID string) {
	if a.rng.Float64() >= a.traits.Assertiveness {
		queue.Submit(actionqueue.Action{
			Type:    actionqueue.ActionSignalReady,
			AgentID: agentID,
		})
		return
	}
	queue.Submit(actionqueue.Action{
		Type:    actionqueue.ActionSubmitProposal,
		AgentID: agentID,
		Payload: actionqueue.SubmitProposalPayload{
			IssueID: signal.IssueID,
			Content: fmt.Sprintf("Proposal from %s addressing: %s", agentID, signal.ProblemStatement),
		},
	})
}

func (a *Agent) onFeedback(signal collaborator.Signal, queue *actionqueue.Queue, agentID string) {
	if a.rng.Float64() >= a.traits.Collaborativeness {
		queue.Submit(actionqueue.Action{Type: actionqueue.ActionSignalReady, AgentID: agentID})
		return
	}

	target := a.pickFeedbackTarget(signal, agentID)
	if target == 0 {
		queue.Submit(actionqueue.Action{Type: actionqueue.ActionSignalReady, AgentID: agentID})
		return
	}

	queue.Submit(actionqueue.Action{
		Type:    actionqueue.ActionFeedback,
		AgentID: agentID,
		Payload: actionqueue.FeedbackPayload{
			IssueID:          signal.IssueID,
			TargetProposalID: target,
			Comment:          "Consider addressing the edge cases more explicitly.",
			Tick:             signal.Tick,
		},
	})
}

func (a *Agent) onRevise(signal collaborator.Signal, queue *actionqueue.Queue, agentID string) {
	if signal.CurrentProposalID == 0 || a.rng.Float64() < a.traits.Stubbornness {
		queue.Submit(actionqueue.Action{Type: actionqueue.ActionSignalReady, AgentID: agentID})
		return
	}
	queue.Submit(actionqueue.Action{
		Type:    actionqueue.ActionRevise,
		AgentID: agentID,
		Payload: actionqueue.RevisePayload{
			IssueID:    signal.IssueID,
			NewContent: fmt.Sprintf("Revised proposal from %s incorporating feedback.", agentID),
			Tick:       signal.Tick,
		},
	})
}

func (a *Agent) onStake(signal collaborator.Signal, queue *actionqueue.Queue, agentID string) {
	target := signal.CurrentProposalID
	if target == 0 {
		target = a.pickAnyProposal(signal)
	}
	if target == 0 || signal.CurrentBalance <= 0 {
		queue.Submit(actionqueue.Action{Type: actionqueue.ActionSignalReady, AgentID: agentID})
		return
	}

	amount := int(float64(signal.CurrentBalance) * a.traits.Conviction * 0.3)
	if amount < 1 {
		amount = 1
	}
	if amount > signal.CurrentBalance {
		amount = signal.CurrentBalance
	}

	queue.Submit(actionqueue.Action{
		Type:    actionqueue.ActionStake,
		AgentID: agentID,
		Payload: actionqueue.StakePayload{
			IssueID:      signal.IssueID,
			ProposalID:   &target,
			StakeAmount:  amount,
			RoundNumber:  signal.RoundNumber,
			Tick:         signal.Tick,
			ChoiceReason: "heuristic conviction stake",
		},
	})
}

func (a *Agent) pickFeedbackTarget(signal collaborator.Signal, agentID string) int {
	var candidates []int
	for _, id := range signal.AllProposals {
		if id != signal.CurrentProposalID {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return 0
	}
	return candidates[a.rng.IntN(len(candidates))]
}

func (a *Agent) pickAnyProposal(signal collaborator.Signal) int {
	if len(signal.AllProposals) == 0 {
		return 0
	}
	return signal.AllProposals[a.rng.IntN(len(signal.AllProposals))]
}
