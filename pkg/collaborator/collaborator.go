// Package collaborator defines the boundary between the roundtable engine
// and the agent decision-making it deliberately does not implement
// (spec.md §1 Non-goals: "agent decision heuristics ... the engine only
// consumes their emitted actions"). Signal is what the engine sends in;
// actionqueue.Action (submitted via Queue.Submit) is what comes back out.
package collaborator

import "github.com/codeready-toolchain/roundtable/internal/engine/actionqueue"

// SignalType enumerates the phases that invite an agent to act, per
// spec.md §6.
type SignalType string

const (
	SignalPropose  SignalType = "Propose"
	SignalFeedback SignalType = "Feedback"
	SignalRevise   SignalType = "Revise"
	SignalStake    SignalType = "Stake"
	SignalFinalize SignalType = "Finalize"
)

// ConvictionParams mirrors ledger.ConvictionParams without creating an
// import from this external-facing package into the engine internals; the
// engine translates between the two at the call site.
type ConvictionParams struct {
	MaxMultiplier  float64
	TargetFraction float64
	TargetRounds   int
	Base           float64
	Growth         float64
}

// Signal is the synchronous invitation the engine sends to each agent
// within a phase's `do` step (spec.md §6). The agent may respond by calling
// Queue.Submit zero or more times before returning; it must not block.
type Signal struct {
	Type SignalType

	Tick        int
	IssueID     string
	CycleNumber int // revision cycle number, for Revise signals
	RoundNumber int // stake round number, for Stake signals

	MaxFeedback         int
	ProposalSelfStake   int
	ConvictionParams    ConvictionParams
	CurrentBalance      int
	CurrentProposalID   int
	AllProposals        []int
	CurrentConviction   map[string]map[int]int // agent -> proposal -> accumulated_cp

	ProblemStatement string
	Background       string
}

// Agent is the external collaborator interface: given a signal, it decides
// what (if anything) to do and enqueues actions via queue. The engine
// invokes OnSignal synchronously and expects it to return promptly; it is
// never called concurrently with itself for the same agent id.
type Agent interface {
	OnSignal(signal Signal, queue *actionqueue.Queue, agentID string)
}

// AgentFunc adapts a plain function to the Agent interface, mirroring the
// standard http.HandlerFunc idiom for simple stateless collaborators.
type AgentFunc func(signal Signal, queue *actionqueue.Queue, agentID string)

// OnSignal implements Agent.
func (f AgentFunc) OnSignal(signal Signal, queue *actionqueue.Queue, agentID string) {
	f(signal, queue, agentID)
}
