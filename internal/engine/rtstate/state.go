// Package rtstate defines RoundtableState, the single aggregate value that
// threads through every tick of the engine, per spec.md §3 and §9
// ("Cross-cutting 'state' dictionary... Model as a single RoundtableState
// value with explicit fields; functions take a reference").
package rtstate

import (
	"sort"

	"github.com/codeready-toolchain/roundtable/internal/engine/actionqueue"
	"github.com/codeready-toolchain/roundtable/internal/engine/issuestore"
	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
)

// ProposalCounter hands out monotonically increasing proposal ids, starting
// at 1 (0 is reserved for NoAction).
type ProposalCounter struct {
	next int
}

// NewProposalCounter creates a counter that yields 1, 2, 3, ...
func NewProposalCounter() *ProposalCounter {
	return &ProposalCounter{next: 1}
}

// Next returns the next fresh proposal id.
func (c *ProposalCounter) Next() int {
	id := c.next
	c.next++
	return id
}

// Peek returns the next id that would be handed out, without consuming it.
func (c *ProposalCounter) Peek() int {
	return c.next
}

// State is the RoundtableState aggregate: current tick/phase, per-agent
// readiness, the ledger and issue store handles, the proposal counter, and
// the finalization flags.
type State struct {
	SimulationID string

	Tick        int
	Phase       string
	PhaseTick   int
	PhaseIndex  int

	Ready map[string]bool

	Ledger  *ledger.Ledger
	Issues  *issuestore.Store
	Queue   *actionqueue.Queue

	ProposalCounter *ProposalCounter

	// ProposalsThisPhase tracks which agents have already submitted a
	// proposal during the current Propose phase (spec.md §4.4,
	// submit_proposal rejection: already_submitted).
	ProposalsThisPhase map[string]bool

	IssueFinalized  bool
	FinalizationTick int
}

// New builds a fresh State for one issue.
func New(simulationID string, issue *model.Issue, initialBalances map[string]int) *State {
	ready := make(map[string]bool, len(issue.AssignedAgents))
	for a := range issue.AssignedAgents {
		ready[a] = false
	}
	return &State{
		SimulationID:       simulationID,
		Phase:              "",
		Ready:              ready,
		Ledger:             ledger.New(issue.IssueID, initialBalances),
		Issues:             issuestore.New(issue),
		Queue:              actionqueue.New(),
		ProposalCounter:    NewProposalCounter(),
		ProposalsThisPhase: make(map[string]bool),
	}
}

// AllReady reports whether every assigned agent is marked ready.
func (s *State) AllReady() bool {
	for _, ready := range s.Ready {
		if !ready {
			return false
		}
	}
	return true
}

// MarkReady idempotently marks agentID ready (spec.md §8 property 9).
func (s *State) MarkReady(agentID string) {
	s.Ready[agentID] = true
}

// ResetReadiness clears every agent's ready flag, e.g. on a phase
// transition.
func (s *State) ResetReadiness() {
	for a := range s.Ready {
		s.Ready[a] = false
	}
}

// AssignedAgents returns the list of agent ids participating in the issue,
// sorted for deterministic iteration (spec.md §8 property 10).
func (s *State) AssignedAgents() []string {
	agents := make([]string, 0, len(s.Issues.Issue().AssignedAgents))
	for a := range s.Issues.Issue().AssignedAgents {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	return agents
}
