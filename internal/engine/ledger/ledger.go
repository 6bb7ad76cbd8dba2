// Package ledger implements CreditLedger (C1): CP balances, stake records,
// and conviction tracking, per spec.md §4.1.
package ledger

import (
	"math"

	"github.com/codeready-toolchain/roundtable/internal/engine/model"
)

// ConvictionMode selects which conviction_multiplier formula a Ledger uses.
type ConvictionMode int

const (
	// ModeExponential is the default: multiplier grows toward MaxMultiplier
	// as consecutive_rounds approaches TargetRounds.
	ModeExponential ConvictionMode = iota
	// ModeLinear is the fallback: multiplier = Base + Growth*rounds.
	ModeLinear
)

// ConvictionParams configures conviction_multiplier. Exactly one of the two
// parameter sets is meaningful, selected by Mode.
type ConvictionParams struct {
	Mode ConvictionMode

	// Exponential mode.
	MaxMultiplier  float64
	TargetFraction float64
	TargetRounds   int

	// Linear mode.
	Base   float64
	Growth float64
}

// ConvictionMultiplier computes the multiplier for a given streak length,
// per spec.md §4.1.
//
// Exponential: k = -ln(1-T)/R; multiplier = 1 + (M-1)*(1 - exp(-k*r)), r=0 -> 1.0.
// Linear: multiplier = base + growth*r.
// Result is rounded to 3 decimals.
func (p ConvictionParams) ConvictionMultiplier(rounds int) float64 {
	if rounds <= 0 {
		return 1.0
	}
	var m float64
	switch p.Mode {
	case ModeLinear:
		m = p.Base + p.Growth*float64(rounds)
	default:
		k := -math.Log(1-p.TargetFraction) / float64(p.TargetRounds)
		m = 1 + (p.MaxMultiplier-1)*(1-math.Exp(-k*float64(rounds)))
	}
	return round(m, 3)
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// ConvictionUpdate is the outcome of UpdateConviction, per spec.md §4.1.
type ConvictionUpdate struct {
	Multiplier        float64
	EffectiveWeight   float64
	TotalConviction   int
	ConsecutiveRounds int
	SwitchedFrom      int // 0 (NoAction id, impossible as a switch source) when no switch occurred
	Switched          bool
}

type convictionKey struct {
	agent      string
	proposalID int
}

// Ledger is the CreditLedger for a single issue.
type Ledger struct {
	issueID string

	balances map[string]int
	events   []model.CreditEvent
	stakes   []model.StakeRecord

	conviction map[convictionKey]*model.ConvictionEntry

	// firstStakeTick tracks the earliest tick at which any StakeRecord
	// referenced a proposal id — required by the finalize tie-break
	// (spec.md §4.5, Open Questions: the source never tracked this).
	firstStakeTick map[int]int
}

// New creates a Ledger for issueID, seeding balances from initial.
func New(issueID string, initial map[string]int) *Ledger {
	balances := make(map[string]int, len(initial))
	for k, v := range initial {
		balances[k] = v
	}
	return &Ledger{
		issueID:        issueID,
		balances:       balances,
		conviction:     make(map[convictionKey]*model.ConvictionEntry),
		firstStakeTick: make(map[int]int),
	}
}

// Balance returns agent's current CP balance.
func (l *Ledger) Balance(agent string) int {
	return l.balances[agent]
}

// Events returns the append-only credit event log.
func (l *Ledger) Events() []model.CreditEvent {
	return l.events
}

// Stakes returns the append-only stake record log.
func (l *Ledger) Stakes() []model.StakeRecord {
	return l.stakes
}

// FirstStakeTick returns the earliest tick a stake referenced proposalID,
// and whether any stake ever has.
func (l *Ledger) FirstStakeTick(proposalID int) (int, bool) {
	t, ok := l.firstStakeTick[proposalID]
	return t, ok
}

func (l *Ledger) recordEvent(tick int, agent, reason string, typ model.CreditEventType, amount int) {
	l.events = append(l.events, model.CreditEvent{
		Tick:    tick,
		AgentID: agent,
		IssueID: l.issueID,
		Reason:  reason,
		Type:    typ,
		Amount:  amount,
	})
}

// Credit always succeeds; emits a Credit event.
func (l *Ledger) Credit(agent string, amount int, reason string, tick int) {
	l.balances[agent] += amount
	l.recordEvent(tick, agent, reason, model.EventCredit, amount)
}

// TryDeduct atomically deducts amount from agent's balance iff sufficient.
// Emits Burn on success, InsufficientCredit on failure.
func (l *Ledger) TryDeduct(agent string, amount int, reason string, tick int) bool {
	if l.balances[agent] < amount {
		l.recordEvent(tick, agent, reason, model.EventInsufficientCredit, amount)
		return false
	}
	l.balances[agent] -= amount
	l.recordEvent(tick, agent, reason, model.EventBurn, -amount)
	return true
}

// StakeToProposal performs TryDeduct then appends a StakeRecord. No record
// is appended if the deduction fails.
func (l *Ledger) StakeToProposal(agent string, proposalID, amount, tick int, stakeType model.StakeType) bool {
	if !l.TryDeduct(agent, amount, "proposal_self_stake", tick) {
		return false
	}
	l.stakes = append(l.stakes, model.StakeRecord{
		AgentID:    agent,
		ProposalID: proposalID,
		CP:         amount,
		Tick:       tick,
		StakeType:  stakeType,
		IssueID:    l.issueID,
	})
	if _, seen := l.firstStakeTick[proposalID]; !seen {
		l.firstStakeTick[proposalID] = tick
	}
	return true
}

// TransferStake rewrites every StakeRecord referencing oldProposalID to
// newProposalID, updating each record's tick to the transfer tick. Returns
// true iff at least one record moved.
func (l *Ledger) TransferStake(oldProposalID, newProposalID, tick int) bool {
	moved := false
	for i := range l.stakes {
		if l.stakes[i].ProposalID == oldProposalID {
			l.stakes[i].ProposalID = newProposalID
			l.stakes[i].Tick = tick
			moved = true
		}
	}
	if moved {
		if _, seen := l.firstStakeTick[newProposalID]; !seen {
			l.firstStakeTick[newProposalID] = tick
		}
	}
	return moved
}

// currentSupport returns the proposal p' (if any) for which agent currently
// has ConsecutiveRounds > 0, excluding exclude.
func (l *Ledger) currentSupport(agent string, exclude int) (int, bool) {
	for k, v := range l.conviction {
		if k.agent != agent || k.proposalID == exclude {
			continue
		}
		if v.ConsecutiveRounds > 0 {
			return k.proposalID, true
		}
	}
	return 0, false
}

func (l *Ledger) entry(agent string, proposalID int) *model.ConvictionEntry {
	key := convictionKey{agent, proposalID}
	e, ok := l.conviction[key]
	if !ok {
		e = &model.ConvictionEntry{}
		l.conviction[key] = e
	}
	return e
}

// ConvictionEntry returns a read-only snapshot of the (agent, proposalID)
// conviction aggregate, and whether an entry exists.
func (l *Ledger) ConvictionEntry(agent string, proposalID int) (model.ConvictionEntry, bool) {
	e, ok := l.conviction[convictionKey{agent, proposalID}]
	if !ok {
		return model.ConvictionEntry{}, false
	}
	return *e, true
}

// CurrentConviction returns a snapshot mapping agent -> proposalID ->
// accumulated_cp, for every entry with AccumulatedCP > 0. Used to build the
// Signal payload's current_conviction field (spec.md §6).
func (l *Ledger) CurrentConviction() map[string]map[int]int {
	out := make(map[string]map[int]int)
	for k, v := range l.conviction {
		if v.AccumulatedCP <= 0 {
			continue
		}
		if out[k.agent] == nil {
			out[k.agent] = make(map[int]int)
		}
		out[k.agent][k.proposalID] = v.AccumulatedCP
	}
	return out
}

// UpdateConviction applies one round of conviction accrual for
// (agent, proposalID), per spec.md §4.1.
func (l *Ledger) UpdateConviction(
	agent string, proposalID, stakeAmount int, params ConvictionParams,
) ConvictionUpdate {
	update := ConvictionUpdate{}

	if current, ok := l.currentSupport(agent, proposalID); ok {
		l.entry(agent, current).ConsecutiveRounds = 0
		update.SwitchedFrom = current
		update.Switched = true
	}

	e := l.entry(agent, proposalID)
	e.AccumulatedCP += stakeAmount
	e.ConsecutiveRounds++
	e.TotalRoundsHeld++

	multiplier := params.ConvictionMultiplier(e.ConsecutiveRounds)
	update.Multiplier = multiplier
	update.EffectiveWeight = round(float64(stakeAmount)*multiplier, 2)
	update.TotalConviction = e.AccumulatedCP
	update.ConsecutiveRounds = e.ConsecutiveRounds
	return update
}

// SwitchConviction moves cpAmount of accumulated conviction from src to dst.
// Requires accumulated_cp[agent][src] >= cpAmount. Resets both streaks to 0.
func (l *Ledger) SwitchConviction(agent string, src, dst, cpAmount, tick int, reason string) bool {
	srcEntry, ok := l.conviction[convictionKey{agent, src}]
	if !ok || srcEntry.AccumulatedCP < cpAmount {
		return false
	}
	srcEntry.AccumulatedCP -= cpAmount
	srcEntry.ConsecutiveRounds = 0

	dstEntry := l.entry(agent, dst)
	dstEntry.AccumulatedCP += cpAmount
	dstEntry.ConsecutiveRounds = 0

	l.recordEvent(tick, agent, reason, model.EventInfluence, 0)
	return true
}

// UnstakeFromProposal withdraws cpAmount of accumulated conviction back to
// the agent's spendable balance. Requires sufficient accumulated conviction.
// Resets the streak on that proposal to 0.
func (l *Ledger) UnstakeFromProposal(agent string, proposalID, cpAmount, tick int, reason string) bool {
	e, ok := l.conviction[convictionKey{agent, proposalID}]
	if !ok || e.AccumulatedCP < cpAmount {
		return false
	}
	e.AccumulatedCP -= cpAmount
	e.ConsecutiveRounds = 0
	l.Credit(agent, cpAmount, reason, tick)
	return true
}

// TotalAccumulatedConviction sums AccumulatedCP across every tracked
// (agent, proposal) pair. Used by the CP-conservation invariant check.
func (l *Ledger) TotalAccumulatedConviction() int {
	total := 0
	for _, e := range l.conviction {
		total += e.AccumulatedCP
	}
	return total
}

// AllBalances returns a copy of the full balance map.
func (l *Ledger) AllBalances() map[string]int {
	out := make(map[string]int, len(l.balances))
	for k, v := range l.balances {
		out[k] = v
	}
	return out
}

// ConvictionByProposal returns, for a fixed proposalID, the map of every
// agent holding a conviction entry on it (AccumulatedCP and
// ConsecutiveRounds), used by Finalize.do to aggregate weights.
func (l *Ledger) ConvictionByProposal(proposalID int) map[string]model.ConvictionEntry {
	out := make(map[string]model.ConvictionEntry)
	for k, v := range l.conviction {
		if k.proposalID == proposalID {
			out[k.agent] = *v
		}
	}
	return out
}

// AllConvictionEntries returns every (agent, proposalID) -> entry pair with
// AccumulatedCP > 0, used by Finalize.do and by the streak-exclusivity test.
func (l *Ledger) AllConvictionEntries() map[string]map[int]model.ConvictionEntry {
	out := make(map[string]map[int]model.ConvictionEntry)
	for k, v := range l.conviction {
		if v.AccumulatedCP <= 0 {
			continue
		}
		if out[k.agent] == nil {
			out[k.agent] = make(map[int]model.ConvictionEntry)
		}
		out[k.agent][k.proposalID] = *v
	}
	return out
}
