// Package engine wires CreditLedger, IssueStore, ActionQueue, Controller,
// and PhaseScheduler into a single Engine instance driving one issue, per
// spec.md §2. It owns the tick loop, the RoundtableState, fatal-error
// handling, and the forensic Verify checks of spec.md §8.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/roundtable/internal/engine/controller"
	"github.com/codeready-toolchain/roundtable/internal/engine/ledger"
	"github.com/codeready-toolchain/roundtable/internal/engine/model"
	"github.com/codeready-toolchain/roundtable/internal/engine/phase"
	"github.com/codeready-toolchain/roundtable/internal/engine/rtstate"
	"github.com/codeready-toolchain/roundtable/pkg/collaborator"
)

// ErrNoCurrentIssue is the sentinel underlying a SIMULATION_ERROR raised
// when an operation requires a RoundtableState that was never constructed.
var ErrNoCurrentIssue = errors.New("no current issue")

// FatalError wraps an invariant violation that aborts a run, per spec.md §7
// ("Invariant violations (fatal)... the engine emits a SIMULATION_ERROR
// event and terminates").
type FatalError struct {
	Tick   int
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("simulation error at tick %d: %s: %v", e.Tick, e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Config bundles the spec.md §6 construction-time configuration. It is
// validated at NewEngine; the ambient config loader in pkg/config produces
// one of these after YAML decode + defaulting + validation.
type Config struct {
	AssignmentAward          int
	MaxFeedbackPerAgent      int
	FeedbackStake            int
	ProposalSelfStake        int
	RevisionCycles           int
	StakingRounds            int
	FeedbackCommentMaxLength int
	Conviction               ledger.ConvictionParams
}

// Validate enforces the bounds of spec.md §6.
func (c Config) Validate() error {
	switch {
	case c.AssignmentAward < 1:
		return fmt.Errorf("assignment_award must be >= 1, got %d", c.AssignmentAward)
	case c.MaxFeedbackPerAgent < 1:
		return fmt.Errorf("max_feedback_per_agent must be >= 1, got %d", c.MaxFeedbackPerAgent)
	case c.FeedbackStake < 1:
		return fmt.Errorf("feedback_stake must be >= 1, got %d", c.FeedbackStake)
	case c.ProposalSelfStake < 1:
		return fmt.Errorf("proposal_self_stake must be >= 1, got %d", c.ProposalSelfStake)
	case c.RevisionCycles < 1 || c.RevisionCycles > 4:
		return fmt.Errorf("revision_cycles must be in [1,4], got %d", c.RevisionCycles)
	case c.StakingRounds < 5 || c.StakingRounds > 10:
		return fmt.Errorf("staking_rounds must be in [5,10], got %d", c.StakingRounds)
	}
	return nil
}

func (c Config) collabConviction() collaborator.ConvictionParams {
	return collaborator.ConvictionParams{
		MaxMultiplier:  c.Conviction.MaxMultiplier,
		TargetFraction: c.Conviction.TargetFraction,
		TargetRounds:   c.Conviction.TargetRounds,
		Base:           c.Conviction.Base,
		Growth:         c.Conviction.Growth,
	}
}

// EventSink receives every structured event and periodic state snapshot the
// engine produces, per spec.md §6 and §9 ("Observer pattern for events").
type EventSink interface {
	Emit(model.EventRecord)
	SaveSnapshot(Snapshot)
}

// Snapshot is the per-tick serialized view of spec.md §6's state snapshot
// sink contract.
type Snapshot struct {
	Tick             int
	Phase            string
	PhaseTick        int
	AgentBalances    map[string]int
	AgentReadiness   map[string]bool
	AgentProposalIDs map[string]int
	Proposals        []model.Proposal
	StakeRecords     []model.StakeRecord
	CreditEvents     []model.CreditEvent
	ProposalCounter  int
	IssueFinalized   bool
	FinalizationTick int
}

// Engine drives exactly one issue through the deliberation phases, per
// spec.md's one-issue-per-instance Non-goal.
type Engine struct {
	state      *rtstate.State
	controller *controller.Controller
	scheduler  *phase.Scheduler
	sink       EventSink
	log        *slog.Logger
}

// New constructs an Engine for issue, assigning the given agents with the
// given collaborator implementations. Credits assignment_award to every
// assigned agent before the first tick.
func New(
	simulationID string,
	issue *model.Issue,
	agents map[string]collaborator.Agent,
	cfg Config,
	sink EventSink,
	log *slog.Logger,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	state := rtstate.New(simulationID, issue, nil)
	for agent := range issue.AssignedAgents {
		state.Ledger.Credit(agent, cfg.AssignmentAward, "assignment_award", 0)
	}

	ctrl := controller.New(controller.Params{
		ProposalSelfStake:        cfg.ProposalSelfStake,
		MaxFeedbackPerAgent:      cfg.MaxFeedbackPerAgent,
		FeedbackStake:            cfg.FeedbackStake,
		FeedbackCommentMaxLength: cfg.FeedbackCommentMaxLength,
		Conviction:               cfg.Conviction,
	})

	phases := phase.BuildPhases(phase.Params{
		RevisionCycles:    cfg.RevisionCycles,
		StakingRounds:     cfg.StakingRounds,
		ProposalSelfStake: cfg.ProposalSelfStake,
		MaxFeedback:       cfg.MaxFeedbackPerAgent,
		Conviction:        cfg.Conviction,
		CollabConviction:  cfg.collabConviction(),
	})
	scheduler := phase.New(phases, phase.Params{
		RevisionCycles:    cfg.RevisionCycles,
		StakingRounds:     cfg.StakingRounds,
		ProposalSelfStake: cfg.ProposalSelfStake,
		MaxFeedback:       cfg.MaxFeedbackPerAgent,
		Conviction:        cfg.Conviction,
		CollabConviction:  cfg.collabConviction(),
	}, agents, sink.Emit)

	return &Engine{
		state:      state,
		controller: ctrl,
		scheduler:  scheduler,
		sink:       sink,
		log:        log,
	}, nil
}

// Done reports whether the issue has been finalized.
func (e *Engine) Done() bool {
	return e.state.IssueFinalized || e.scheduler.Done(e.state)
}

// State exposes the underlying RoundtableState for read access (snapshots,
// forensic checks). Callers must not mutate it.
func (e *Engine) State() *rtstate.State {
	return e.state
}

// Step runs exactly one iteration of the tick algorithm of spec.md §4.5:
// drain+process pending actions, advance/run the current phase, emit a
// CONSENSUS_TICK event, and persist a snapshot. Returns a *FatalError if an
// invariant violation is detected.
func (e *Engine) Step() error {
	if e.state.Issues == nil {
		return &FatalError{Tick: e.state.Tick, Reason: "missing_issue_store", Err: ErrNoCurrentIssue}
	}

	ran := e.scheduler.Tick(e.state)
	if ran {
		for _, rec := range e.controller.Process(e.state, e.state.Tick) {
			e.sink.Emit(rec)
		}
	}

	e.sink.Emit(model.EventRecord{
		Tick:      e.state.Tick,
		Phase:     e.state.Phase,
		EventType: "CONSENSUS_TICK",
		Level:     model.LevelDebug,
		Payload: map[string]any{
			"phase_tick":  e.state.PhaseTick,
			"phase_index": e.state.PhaseIndex,
		},
	})
	e.sink.SaveSnapshot(e.snapshot())

	if err := e.checkFatalInvariants(); err != nil {
		e.sink.Emit(model.EventRecord{
			Tick:      e.state.Tick,
			EventType: "SIMULATION_ERROR",
			Level:     model.LevelError,
			Message:   err.Error(),
		})
		return err
	}
	return nil
}

// Run steps the engine until it is Done or a fatal error occurs.
func (e *Engine) Run() error {
	for !e.Done() {
		if err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) snapshot() Snapshot {
	issue := e.state.Issues.Issue()
	proposals := make([]model.Proposal, len(issue.Proposals))
	for i, p := range issue.Proposals {
		proposals[i] = *p
	}
	agentProposalIDs := make(map[string]int, len(issue.AgentToProposalID))
	for a, id := range issue.AgentToProposalID {
		agentProposalIDs[a] = id
	}
	readiness := make(map[string]bool, len(e.state.Ready))
	for a, r := range e.state.Ready {
		readiness[a] = r
	}
	return Snapshot{
		Tick:             e.state.Tick,
		Phase:            e.state.Phase,
		PhaseTick:        e.state.PhaseTick,
		AgentBalances:    e.state.Ledger.AllBalances(),
		AgentReadiness:   readiness,
		AgentProposalIDs: agentProposalIDs,
		Proposals:        proposals,
		StakeRecords:     e.state.Ledger.Stakes(),
		CreditEvents:     e.state.Ledger.Events(),
		ProposalCounter:  e.state.ProposalCounter.Peek(),
		IssueFinalized:   e.state.IssueFinalized,
		FinalizationTick: e.state.FinalizationTick,
	}
}

// checkFatalInvariants detects the fatal-class violations of spec.md §7:
// monotonic-id reuse and a missing issue in a state that requires one. Most
// invariant checking is deliberately forensic (Verify), run after the fact
// rather than on every tick, per the source's own forensic_*_check modules.
func (e *Engine) checkFatalInvariants() error {
	seen := make(map[int]bool)
	for _, p := range e.state.Issues.Issue().Proposals {
		if seen[p.ProposalID] {
			return &FatalError{
				Tick:   e.state.Tick,
				Reason: "duplicate_proposal_id",
				Err:    fmt.Errorf("proposal id %d assigned twice", p.ProposalID),
			}
		}
		seen[p.ProposalID] = true
	}
	return nil
}
