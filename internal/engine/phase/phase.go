// Package phase implements PhaseScheduler (C5): the ordered phase list, the
// per-tick advancement algorithm, and the per-phase lifecycle hooks
// (begin/do/finish), per spec.md §4.5.
package phase

import (
	"strconv"

	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
	"github.com/codeready-toolchain/roundtable/internal/engine/rtstate"
	"github.com/codeready-toolchain/roundtable/pkg/collaborator"
)

// Kind enumerates the phase types a roundtable walks through.
type Kind string

const (
	KindPropose  Kind = "Propose"
	KindFeedback Kind = "Feedback"
	KindRevise   Kind = "Revise"
	KindStake    Kind = "Stake"
	KindFinalize Kind = "Finalize"
)

const defaultMaxThinkTicks = 3

// Phase is one entry in the scheduler's ordered list.
type Phase struct {
	Kind          Kind
	Number        int // cycle number (Feedback/Revise) or round number (Stake); 0 otherwise
	MaxThinkTicks int
}

// Params configures phase construction and signaling, mirroring the fields
// of spec.md §6 the scheduler and its signals need directly.
type Params struct {
	RevisionCycles    int
	StakingRounds     int
	ProposalSelfStake int
	MaxFeedback       int
	Conviction        ledger.ConvictionParams
	CollabConviction  collaborator.ConvictionParams
}

// BuildPhases constructs the ordered phase list of spec.md §4.5:
//
//	[Propose]
//	  for i in 1..revision_cycles: [Feedback(i), Revise(i)]
//	[Stake(round=1)] ... [Stake(round=staking_rounds+1)]
//	[Finalize]
func BuildPhases(p Params) []Phase {
	phases := []Phase{{Kind: KindPropose, MaxThinkTicks: defaultMaxThinkTicks}}
	for i := 1; i <= p.RevisionCycles; i++ {
		phases = append(phases,
			Phase{Kind: KindFeedback, Number: i, MaxThinkTicks: defaultMaxThinkTicks},
			Phase{Kind: KindRevise, Number: i, MaxThinkTicks: defaultMaxThinkTicks},
		)
	}
	for r := 1; r <= p.StakingRounds+1; r++ {
		phases = append(phases, Phase{Kind: KindStake, Number: r, MaxThinkTicks: defaultMaxThinkTicks})
	}
	phases = append(phases, Phase{Kind: KindFinalize, MaxThinkTicks: defaultMaxThinkTicks})
	return phases
}

// Scheduler drives state through the phase list, signaling agents and
// invoking lifecycle hooks, per spec.md §4.5.
type Scheduler struct {
	phases  []Phase
	params  Params
	agents  map[string]collaborator.Agent
	sink    func(model.EventRecord)
}

// New creates a Scheduler over phases, signaling the given agents and
// emitting lifecycle events to sink.
func New(phases []Phase, params Params, agents map[string]collaborator.Agent, sink func(model.EventRecord)) *Scheduler {
	return &Scheduler{phases: phases, params: params, agents: agents, sink: sink}
}

// Done reports whether every phase has been advanced past.
func (s *Scheduler) Done(state *rtstate.State) bool {
	return state.PhaseIndex >= len(s.phases)
}

// current returns the phase at state.PhaseIndex, or nil if Done.
func (s *Scheduler) current(state *rtstate.State) *Phase {
	if s.Done(state) {
		return nil
	}
	return &s.phases[state.PhaseIndex]
}

// name identifies this entry in the phase list, not just its kind — Stake
// rounds (and Feedback/Revise cycles) repeat the same Kind back to back, so
// the round/cycle number must be part of the identity the tick algorithm
// compares against state.Phase to detect a transition.
func (p Phase) name() string {
	switch p.Kind {
	case KindFeedback, KindRevise, KindStake:
		return string(p.Kind) + ":" + strconv.Itoa(p.Number)
	default:
		return string(p.Kind)
	}
}

// Tick runs one iteration of the tick algorithm of spec.md §4.5. It returns
// true if a `do` step (and therefore a signal round) occurred, so the
// caller knows whether to drain the queue via the Controller before the
// next tick.
func (s *Scheduler) Tick(state *rtstate.State) bool {
	state.Tick++
	current := s.current(state)
	if current == nil {
		return false
	}

	if current.name() != state.Phase {
		state.Phase = current.name()
		state.PhaseTick = 1
		state.ResetReadiness()
	} else {
		state.PhaseTick++
	}

	if state.AllReady() && state.PhaseTick > current.MaxThinkTicks {
		state.PhaseIndex++
		return false
	}

	if state.PhaseTick == 1 {
		s.begin(state, *current)
	}
	s.do(state, *current)
	if state.PhaseTick == current.MaxThinkTicks {
		s.finish(state, *current)
	}
	return true
}

func (s *Scheduler) emit(rec model.EventRecord) {
	if s.sink != nil {
		s.sink(rec)
	}
}

func (s *Scheduler) begin(state *rtstate.State, p Phase) {
	switch p.Kind {
	case KindPropose:
		issue := state.Issues.Issue()
		noAction := &model.Proposal{
			ProposalID: model.NoActionProposalID,
			IssueID:    issue.IssueID,
			Author:     "system",
			AuthorType: model.AuthorSystem,
			Type:       model.ProposalNoAction,
			Active:     true,
			Tick:       state.Tick,
		}
		state.Issues.AddProposal(noAction)
		state.ProposalsThisPhase = make(map[string]bool)
	case KindStake:
		if p.Number == 1 {
			for _, rec := range state.Ledger.Stakes() {
				if rec.StakeType == model.StakeInitial {
					state.Ledger.UpdateConviction(rec.AgentID, rec.ProposalID, rec.CP, s.params.Conviction)
				}
			}
		}
	}
}

func (s *Scheduler) do(state *rtstate.State, p Phase) {
	switch p.Kind {
	case KindPropose:
		s.signalAll(state, collaborator.SignalPropose, p)
	case KindFeedback:
		for _, agent := range state.AssignedAgents() {
			if state.Issues.CountFeedbacksBy(agent) >= s.params.MaxFeedback {
				state.MarkReady(agent)
				continue
			}
			s.signalOne(state, agent, collaborator.SignalFeedback, p)
		}
	case KindRevise:
		s.signalAll(state, collaborator.SignalRevise, p)
	case KindStake:
		if p.Number > 1 {
			for agent, byProposal := range state.Ledger.AllConvictionEntries() {
				for proposalID, entry := range byProposal {
					if entry.ConsecutiveRounds > 0 {
						state.Ledger.UpdateConviction(agent, proposalID, 0, s.params.Conviction)
					}
				}
			}
		}
		s.signalAll(state, collaborator.SignalStake, p)
	case KindFinalize:
		s.finalize(state)
	}
}

func (s *Scheduler) finish(state *rtstate.State, p Phase) {
	switch p.Kind {
	case KindPropose:
		issue := state.Issues.Issue()
		for _, agent := range state.AssignedAgents() {
			_, hasProposal := issue.AgentToProposalID[agent]
			if state.Ready[agent] && hasProposal {
				continue
			}
			state.Ledger.StakeToProposal(agent, model.NoActionProposalID, s.params.ProposalSelfStake, state.Tick, model.StakeInitial)
			state.Issues.AssignAgentToProposal(agent, model.NoActionProposalID)
			state.MarkReady(agent)
		}
	case KindFeedback:
		for _, agent := range state.AssignedAgents() {
			state.MarkReady(agent)
		}
	}
}

func (s *Scheduler) signalAll(state *rtstate.State, typ collaborator.SignalType, p Phase) {
	for _, agent := range state.AssignedAgents() {
		s.signalOne(state, agent, typ, p)
	}
}

func (s *Scheduler) signalOne(state *rtstate.State, agent string, typ collaborator.SignalType, p Phase) {
	collab, ok := s.agents[agent]
	if !ok {
		return
	}
	issue := state.Issues.Issue()
	currentID, _ := issue.AgentToProposalID[agent]
	sig := collaborator.Signal{
		Type:              typ,
		Tick:              state.Tick,
		IssueID:           issue.IssueID,
		CycleNumber:       cycleNumber(p),
		RoundNumber:       roundNumber(p),
		MaxFeedback:       s.params.MaxFeedback,
		ProposalSelfStake: s.params.ProposalSelfStake,
		ConvictionParams:  s.params.CollabConviction,
		CurrentBalance:    state.Ledger.Balance(agent),
		CurrentProposalID: currentID,
		AllProposals:      state.Issues.ActiveProposalIDs(),
		CurrentConviction: state.Ledger.CurrentConviction(),
		ProblemStatement:  issue.ProblemStatement,
		Background:        issue.Background,
	}
	collab.OnSignal(sig, state.Queue, agent)
}

func cycleNumber(p Phase) int {
	if p.Kind == KindFeedback || p.Kind == KindRevise {
		return p.Number
	}
	return 0
}

func roundNumber(p Phase) int {
	if p.Kind == KindStake {
		return p.Number
	}
	return 0
}

// proposalWeight aggregates a proposal's raw and effective conviction
// weight during finalization.
type proposalWeight struct {
	raw         int
	effective   float64
	contributors map[string]struct{}
}

// finalize implements spec.md §4.5 Finalize.do.
func (s *Scheduler) finalize(state *rtstate.State) {
	weights := make(map[int]*proposalWeight)
	for agent, byProposal := range state.Ledger.AllConvictionEntries() {
		for proposalID, entry := range byProposal {
			m := s.params.Conviction.ConvictionMultiplier(entry.ConsecutiveRounds)
			w, ok := weights[proposalID]
			if !ok {
				w = &proposalWeight{contributors: make(map[string]struct{})}
				weights[proposalID] = w
			}
			w.effective += round2(float64(entry.AccumulatedCP) * m)
			w.raw += entry.AccumulatedCP
			w.contributors[agent] = struct{}{}
		}
	}

	winner, ok := s.pickWinner(state, weights)
	if !ok {
		s.emit(model.EventRecord{
			Tick:      state.Tick,
			Phase:     string(KindFinalize),
			EventType: "FINALIZATION_DECISION",
			Message:   "no stakes recorded; no winner",
			Level:     model.LevelInfo,
			Payload:   map[string]any{"winner_proposal_id": nil},
		})
	} else {
		w := weights[winner]
		s.emit(model.EventRecord{
			Tick:      state.Tick,
			Phase:     string(KindFinalize),
			EventType: "FINALIZATION_DECISION",
			Level:     model.LevelInfo,
			Payload: map[string]any{
				"winner_proposal_id": winner,
				"effective_weight":   w.effective,
				"raw_weight":         w.raw,
				"contributor_count":  len(w.contributors),
			},
		})
		for agent := range w.contributors {
			s.emit(model.EventRecord{
				Tick:      state.Tick,
				Phase:     string(KindFinalize),
				EventType: "INFLUENCE_RECORDED",
				AgentID:   agent,
				Level:     model.LevelInfo,
				Payload:   map[string]any{"proposal_id": winner},
			})
		}
	}

	s.emit(model.EventRecord{
		Tick:      state.Tick,
		Phase:     string(KindFinalize),
		EventType: "ISSUE_FINALIZED",
		Level:     model.LevelInfo,
	})
	state.IssueFinalized = true
	state.FinalizationTick = state.Tick
	state.ResetReadiness()
}

// pickWinner selects the proposal with the highest effective weight,
// breaking ties first by earliest first-stake tick, then by lower
// proposal id, per spec.md §4.5.
func (s *Scheduler) pickWinner(state *rtstate.State, weights map[int]*proposalWeight) (int, bool) {
	var winner int
	found := false
	for id, w := range weights {
		if !found {
			winner, found = id, true
			continue
		}
		if better(state, id, w, winner, weights[winner]) {
			winner = id
		}
	}
	return winner, found
}

func better(state *rtstate.State, candidate int, cw *proposalWeight, current int, cur *proposalWeight) bool {
	if cw.effective != cur.effective {
		return cw.effective > cur.effective
	}
	ct, cOK := state.Ledger.FirstStakeTick(candidate)
	ut, uOK := state.Ledger.FirstStakeTick(current)
	switch {
	case cOK && uOK && ct != ut:
		return ct < ut
	case cOK && !uOK:
		return true
	case !cOK && uOK:
		return false
	}
	return candidate < current
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
