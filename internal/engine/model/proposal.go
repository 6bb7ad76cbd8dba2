// Package model holds the shared value types of the roundtable deliberation
// engine: proposals, stake records, conviction entries, and the aggregate
// engine state. None of these types carry behavior beyond small invariant
// helpers — mutation is owned by the ledger, issuestore, and controller
// packages.
package model

// AuthorType distinguishes an agent-authored proposal from the synthetic
// system NoAction proposal.
type AuthorType string

const (
	AuthorAgent  AuthorType = "agent"
	AuthorSystem AuthorType = "system"
)

// ProposalType distinguishes a standard agent proposal from the synthetic
// NoAction proposal created at the start of Propose.
type ProposalType string

const (
	ProposalStandard ProposalType = "standard"
	ProposalNoAction ProposalType = "noaction"
)

// NoActionProposalID is the reserved id of the system NoAction proposal
// created once per issue, at Propose.begin.
const NoActionProposalID = 0

// Proposal is an immutable snapshot of one version of an agent's (or the
// system's) proposed solution to the issue. Revising a proposal never
// mutates an existing Proposal value — it creates a new one and flips
// Active to false on the old one.
type Proposal struct {
	ProposalID     int
	IssueID        string
	Content        string
	Author         string
	AuthorType     AuthorType
	Type           ProposalType
	ParentID       *int
	RevisionNumber int
	Active         bool
	Tick           int
}

// IsNoAction reports whether this is the synthetic system proposal.
func (p *Proposal) IsNoAction() bool {
	return p.ProposalID == NoActionProposalID
}

// Lineage walks ParentID links (via the provided lookup) from this proposal
// back to its revision-1 root and returns the chain of proposal ids, oldest
// first. lookup must return (nil, false) for an id that does not exist.
func (p *Proposal) Lineage(lookup func(id int) (*Proposal, bool)) []int {
	chain := []int{p.ProposalID}
	cur := p
	for cur.ParentID != nil {
		parent, ok := lookup(*cur.ParentID)
		if !ok {
			break
		}
		chain = append(chain, parent.ProposalID)
		cur = parent
	}
	// reverse to oldest-first
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// StakeType distinguishes the self-stake made on submission from later
// voluntary conviction stakes.
type StakeType string

const (
	StakeInitial   StakeType = "initial"
	StakeVoluntary StakeType = "voluntary"
)

// StakeRecord is an append-only record of CP committed by an agent toward a
// proposal. Revising a proposal rewrites the ProposalID (and Tick) of every
// existing record in the lineage via CreditLedger.TransferStake — it never
// deletes or recreates records.
type StakeRecord struct {
	AgentID    string
	ProposalID int
	CP         int
	Tick       int
	StakeType  StakeType
	IssueID    string
}

// ConvictionEntry is the derived per (agent, proposal) aggregate tracked by
// the CreditLedger. AccumulatedCP and ConsecutiveRounds are mutated by
// UpdateConviction / SwitchConviction / UnstakeFromProposal; TotalRoundsHeld
// only ever increases.
type ConvictionEntry struct {
	AccumulatedCP     int
	ConsecutiveRounds int
	TotalRoundsHeld   int
}

// FeedbackEntry is one append-only row in an issue's feedback log.
type FeedbackEntry struct {
	FromAgent         string
	TargetProposalID  int
	Comment           string
	Tick              int
}
