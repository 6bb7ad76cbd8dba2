// Package issuestore implements IssueStore (C2): the owner of the single
// Issue an engine instance deliberates over, its versioned proposals, the
// agent→proposal mapping, and the append-only feedback log.
package issuestore

import (
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
)

// Store owns exactly one Issue, per spec.md's one-issue-per-engine
// Non-goal. It is a thin, invariant-preserving wrapper around model.Issue —
// all of its operations are named directly after spec.md §4.2.
type Store struct {
	issue *model.Issue
}

// New wraps issue in a Store.
func New(issue *model.Issue) *Store {
	return &Store{issue: issue}
}

// Issue returns the underlying issue for read access (snapshotting, API
// responses). Callers must not mutate the returned value directly.
func (s *Store) Issue() *model.Issue {
	return s.issue
}

// AddProposal appends p; if p is active and agent-authored, the author's
// current-proposal mapping is updated to p.
func (s *Store) AddProposal(p *model.Proposal) {
	s.issue.AddProposal(p)
}

// AssignAgentToProposal sets the mapping unconditionally.
func (s *Store) AssignAgentToProposal(agentID string, proposalID int) {
	s.issue.AssignAgentToProposal(agentID, proposalID)
}

// AddFeedback appends to the feedback log.
func (s *Store) AddFeedback(fromAgent string, targetProposalID int, comment string, tick int) {
	s.issue.AddFeedback(fromAgent, targetProposalID, comment, tick)
}

// CountFeedbacksBy returns the number of feedback entries authored by agentID.
func (s *Store) CountFeedbacksBy(agentID string) int {
	return s.issue.CountFeedbacksBy(agentID)
}

// FindActiveProposalByAuthor returns the unique active proposal in the
// lineage agentID owns, if any.
func (s *Store) FindActiveProposalByAuthor(agentID string) (*model.Proposal, bool) {
	return s.issue.FindActiveProposalByAuthor(agentID)
}

// FindProposal looks up a proposal by id via linear search — never
// positional indexing. See model.Issue.FindProposal's doc comment.
func (s *Store) FindProposal(id int) (*model.Proposal, bool) {
	return s.issue.FindProposal(id)
}

// CurrentProposalID returns the proposal id agentID is currently mapped to,
// and whether a mapping exists at all.
func (s *Store) CurrentProposalID(agentID string) (int, bool) {
	id, ok := s.issue.AgentToProposalID[agentID]
	return id, ok
}

// AllProposalIDs returns the ids of every proposal (all versions) on the
// issue, in creation order.
func (s *Store) AllProposalIDs() []int {
	ids := make([]int, len(s.issue.Proposals))
	for i, p := range s.issue.Proposals {
		ids[i] = p.ProposalID
	}
	return ids
}

// ActiveProposalIDs returns the ids of every proposal currently marked
// active — i.e. the head of every lineage, including NoAction once created.
func (s *Store) ActiveProposalIDs() []int {
	var ids []int
	for _, p := range s.issue.Proposals {
		if p.Active {
			ids = append(ids, p.ProposalID)
		}
	}
	return ids
}
