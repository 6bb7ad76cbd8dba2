// Package actionqueue implements ActionQueue (C3): the single FIFO of
// pending agent actions submitted during a phase's `do` step and drained by
// the Controller on the next tick boundary, per spec.md §4.3.
package actionqueue

import "sync"

// ActionType enumerates the kinds of action an agent collaborator may
// submit, per spec.md §4.3.
type ActionType string

const (
	ActionSubmitProposal ActionType = "submit_proposal"
	ActionFeedback       ActionType = "feedback"
	ActionRevise         ActionType = "revise"
	ActionStake          ActionType = "stake"
	ActionSwitchStake    ActionType = "switch_stake"
	ActionUnstake        ActionType = "unstake"
	ActionSignalReady    ActionType = "signal_ready"
)

// Action is a single agent-submitted intent. Payload is one of the
// type-specific structs in this package, matching the Type field.
type Action struct {
	Type    ActionType
	AgentID string
	Payload any
}

// SubmitProposalPayload carries the candidate proposal content for
// submit_proposal. The Controller fills in ProposalID, Tick, Author,
// AuthorType, Type, RevisionNumber, and Active on acceptance.
type SubmitProposalPayload struct {
	IssueID string
	Content string
}

// FeedbackPayload carries a comment targeting another proposal.
type FeedbackPayload struct {
	IssueID          string
	TargetProposalID int
	Comment          string
	Tick             int
}

// RevisePayload carries replacement content for the agent's own active
// proposal.
type RevisePayload struct {
	IssueID    string
	NewContent string
	Tick       int
}

// StakePayload carries a conviction stake on a proposal for a given round.
// ProposalID is a pointer so a collaborator that omits it (missing_proposal_id,
// spec.md §4.4) is distinguishable from an explicit stake on NoAction (id 0).
type StakePayload struct {
	IssueID      string
	ProposalID   *int
	StakeAmount  int
	RoundNumber  int
	Tick         int
	ChoiceReason string
}

// SwitchStakePayload carries a request to move accumulated conviction
// between two proposals.
type SwitchStakePayload struct {
	IssueID           string
	SourceProposalID  int
	TargetProposalID  int
	CPAmount          int
	Reason            string
}

// UnstakePayload carries a request to withdraw accumulated conviction back
// to the agent's spendable balance.
type UnstakePayload struct {
	IssueID    string
	ProposalID int
	CPAmount   int
	Reason     string
}

// Queue is a thread-safe FIFO of pending actions. Submit is the one
// operation an agent collaborator may call concurrently with the engine's
// tick loop; Drain is called by the Controller once per tick, before the
// phase's `do` step.
type Queue struct {
	mu      sync.Mutex
	pending []Action
}

// New creates an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Submit appends action to the FIFO.
func (q *Queue) Submit(action Action) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, action)
}

// Drain returns a snapshot of all pending actions in FIFO order and empties
// the queue atomically.
func (q *Queue) Drain() []Action {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	drained := q.pending
	q.pending = nil
	return drained
}
