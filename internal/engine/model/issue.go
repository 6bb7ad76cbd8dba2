package model

// Issue is the single deliberation target of one engine instance. Per
// spec.md Non-goals, an engine drives exactly one Issue.
type Issue struct {
	IssueID          string
	Title            string
	ProblemStatement string
	Background       string

	// AssignedAgents is the fixed set of agent ids participating in this
	// issue, selected once at engine construction (see pool.Select).
	AssignedAgents map[string]struct{}

	// Proposals holds every version of every proposal ever created for this
	// issue, in creation order. Old versions stay in the slice with
	// Active=false — nothing is ever deleted.
	Proposals []*Proposal

	// AgentToProposalID maps an agent to the proposal id it currently
	// supports (its own active proposal, or whatever it was assigned to).
	AgentToProposalID map[string]int

	FeedbackLog []FeedbackEntry
}

// NewIssue creates an empty Issue for the given assigned agent set.
func NewIssue(issueID, title, problemStatement, background string, assigned []string) *Issue {
	set := make(map[string]struct{}, len(assigned))
	for _, a := range assigned {
		set[a] = struct{}{}
	}
	return &Issue{
		IssueID:           issueID,
		Title:             title,
		ProblemStatement:  problemStatement,
		Background:        background,
		AssignedAgents:    set,
		Proposals:         nil,
		AgentToProposalID: make(map[string]int),
		FeedbackLog:       nil,
	}
}

// IsAssigned reports whether agentID is in the issue's assigned set.
func (i *Issue) IsAssigned(agentID string) bool {
	_, ok := i.AssignedAgents[agentID]
	return ok
}

// FindProposal does a linear search by proposal id. spec.md §9 flags the
// source's list-as-mapping bug explicitly; this is the one true lookup path
// and every other accessor is built on it.
func (i *Issue) FindProposal(id int) (*Proposal, bool) {
	for _, p := range i.Proposals {
		if p.ProposalID == id {
			return p, true
		}
	}
	return nil, false
}

// FindActiveProposalByAuthor returns the unique active proposal authored by
// agentID, if any.
func (i *Issue) FindActiveProposalByAuthor(agentID string) (*Proposal, bool) {
	for _, p := range i.Proposals {
		if p.Active && p.Author == agentID {
			return p, true
		}
	}
	return nil, false
}

// CountFeedbacksBy returns how many feedback entries agentID has authored.
func (i *Issue) CountFeedbacksBy(agentID string) int {
	n := 0
	for _, f := range i.FeedbackLog {
		if f.FromAgent == agentID {
			n++
		}
	}
	return n
}

// AddProposal appends p to the issue's proposal list. If p is active and
// agent-authored, the agent's current-proposal mapping is updated.
func (i *Issue) AddProposal(p *Proposal) {
	i.Proposals = append(i.Proposals, p)
	if p.Active && p.AuthorType == AuthorAgent {
		i.AgentToProposalID[p.Author] = p.ProposalID
	}
}

// AssignAgentToProposal sets the agent's current-proposal mapping
// unconditionally, regardless of authorship.
func (i *Issue) AssignAgentToProposal(agentID string, proposalID int) {
	i.AgentToProposalID[agentID] = proposalID
}

// AddFeedback appends an entry to the feedback log.
func (i *Issue) AddFeedback(fromAgent string, targetProposalID int, comment string, tick int) {
	i.FeedbackLog = append(i.FeedbackLog, FeedbackEntry{
		FromAgent:        fromAgent,
		TargetProposalID: targetProposalID,
		Comment:          comment,
		Tick:             tick,
	})
}
