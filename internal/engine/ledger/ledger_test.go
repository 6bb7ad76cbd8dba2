package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/roundtable/internal/engine/model"
)

func expParams() ConvictionParams {
	return ConvictionParams{
		Mode:           ModeExponential,
		MaxMultiplier:  3.0,
		TargetFraction: 0.9,
		TargetRounds:   5,
	}
}

func TestConvictionMultiplier(t *testing.T) {
	t.Run("zero rounds is always 1.0", func(t *testing.T) {
		assert.Equal(t, 1.0, expParams().ConvictionMultiplier(0))
		assert.Equal(t, 1.0, ConvictionParams{Mode: ModeLinear, Base: 1, Growth: 0.5}.ConvictionMultiplier(-1))
	})

	t.Run("exponential grows toward max multiplier", func(t *testing.T) {
		p := expParams()
		prev := 1.0
		for r := 1; r <= p.TargetRounds; r++ {
			m := p.ConvictionMultiplier(r)
			assert.GreaterOrEqual(t, m, prev, "multiplier must be non-decreasing as rounds grow")
			assert.LessOrEqual(t, m, p.MaxMultiplier)
			prev = m
		}
	})

	t.Run("linear mode uses base + growth*rounds", func(t *testing.T) {
		p := ConvictionParams{Mode: ModeLinear, Base: 1.0, Growth: 0.2}
		assert.Equal(t, 1.2, p.ConvictionMultiplier(1))
		assert.Equal(t, 1.6, p.ConvictionMultiplier(3))
	})
}

func TestCreditAndDeduct(t *testing.T) {
	l := New("issue-1", map[string]int{"agent-a": 100})

	l.Credit("agent-a", 50, "assignment_award", 0)
	assert.Equal(t, 150, l.Balance("agent-a"))

	ok := l.TryDeduct("agent-a", 30, "feedback_stake", 1)
	require.True(t, ok)
	assert.Equal(t, 120, l.Balance("agent-a"))

	ok = l.TryDeduct("agent-a", 1000, "proposal_self_stake", 2)
	assert.False(t, ok, "insufficient balance must fail the deduction")
	assert.Equal(t, 120, l.Balance("agent-a"), "balance is unchanged on a failed deduction")

	events := l.Events()
	require.Len(t, events, 3)
	assert.Equal(t, model.EventCredit, events[0].Type)
	assert.Equal(t, model.EventBurn, events[1].Type)
	assert.Equal(t, model.EventInsufficientCredit, events[2].Type)
}

func TestStakeToProposal(t *testing.T) {
	l := New("issue-1", map[string]int{"agent-a": 100})

	ok := l.StakeToProposal("agent-a", 1, 40, 3, model.StakeInitial)
	require.True(t, ok)
	assert.Equal(t, 60, l.Balance("agent-a"))

	stakes := l.Stakes()
	require.Len(t, stakes, 1)
	assert.Equal(t, 1, stakes[0].ProposalID)
	assert.Equal(t, 40, stakes[0].CP)

	firstTick, ok := l.FirstStakeTick(1)
	require.True(t, ok)
	assert.Equal(t, 3, firstTick)

	ok = l.StakeToProposal("agent-a", 2, 1000, 4, model.StakeInitial)
	assert.False(t, ok)
	assert.Len(t, l.Stakes(), 1, "a failed stake must not append a StakeRecord")
}

func TestTransferStake(t *testing.T) {
	l := New("issue-1", map[string]int{"agent-a": 100})
	require.True(t, l.StakeToProposal("agent-a", 1, 10, 0, model.StakeInitial))

	moved := l.TransferStake(1, 2, 5)
	assert.True(t, moved)
	assert.Equal(t, 2, l.Stakes()[0].ProposalID)
	assert.Equal(t, 5, l.Stakes()[0].Tick)

	assert.False(t, l.TransferStake(99, 100, 6), "transferring a proposal with no stakes moves nothing")
}

func TestUpdateConviction_AccruesAndDetectsSwitch(t *testing.T) {
	l := New("issue-1", nil)
	params := expParams()

	first := l.UpdateConviction("agent-a", 1, 10, params)
	assert.False(t, first.Switched)
	assert.Equal(t, 10, first.TotalConviction)
	assert.Equal(t, 1, first.ConsecutiveRounds)

	second := l.UpdateConviction("agent-a", 1, 10, params)
	assert.False(t, second.Switched)
	assert.Equal(t, 20, second.TotalConviction)
	assert.Equal(t, 2, second.ConsecutiveRounds)
	assert.Greater(t, second.Multiplier, first.Multiplier)

	// Supporting a different proposal resets the old streak and reports a switch.
	third := l.UpdateConviction("agent-a", 2, 5, params)
	assert.True(t, third.Switched)
	assert.Equal(t, 1, third.SwitchedFrom)
	assert.Equal(t, 1, third.ConsecutiveRounds)

	oldEntry, ok := l.ConvictionEntry("agent-a", 1)
	require.True(t, ok)
	assert.Equal(t, 0, oldEntry.ConsecutiveRounds, "the abandoned proposal's streak resets to 0")
	assert.Equal(t, 20, oldEntry.AccumulatedCP, "accumulated CP on the abandoned proposal is untouched")
}

func TestSwitchConviction(t *testing.T) {
	l := New("issue-1", nil)
	l.UpdateConviction("agent-a", 1, 30, expParams())

	ok := l.SwitchConviction("agent-a", 1, 2, 10, 5, "agent_switch")
	require.True(t, ok)

	src, _ := l.ConvictionEntry("agent-a", 1)
	dst, _ := l.ConvictionEntry("agent-a", 2)
	assert.Equal(t, 20, src.AccumulatedCP)
	assert.Equal(t, 0, src.ConsecutiveRounds)
	assert.Equal(t, 10, dst.AccumulatedCP)
	assert.Equal(t, 0, dst.ConsecutiveRounds)

	assert.False(t, l.SwitchConviction("agent-a", 1, 2, 1000, 6, "agent_switch"), "cannot switch more than is accumulated")
}

func TestUnstakeFromProposal(t *testing.T) {
	l := New("issue-1", nil)
	l.UpdateConviction("agent-a", 1, 30, expParams())

	ok := l.UnstakeFromProposal("agent-a", 1, 10, 7, "agent_unstake")
	require.True(t, ok)
	assert.Equal(t, 10, l.Balance("agent-a"))

	entry, _ := l.ConvictionEntry("agent-a", 1)
	assert.Equal(t, 20, entry.AccumulatedCP)
	assert.Equal(t, 0, entry.ConsecutiveRounds)

	assert.False(t, l.UnstakeFromProposal("agent-a", 1, 1000, 8, "agent_unstake"))
}

func TestTotalAccumulatedConviction(t *testing.T) {
	l := New("issue-1", nil)
	l.UpdateConviction("agent-a", 1, 10, expParams())
	l.UpdateConviction("agent-b", 2, 15, expParams())
	assert.Equal(t, 25, l.TotalAccumulatedConviction())
}

func TestAllBalancesIsACopy(t *testing.T) {
	l := New("issue-1", map[string]int{"agent-a": 5})
	balances := l.AllBalances()
	balances["agent-a"] = 999
	assert.Equal(t, 5, l.Balance("agent-a"), "mutating the returned map must not affect the ledger")
}

func TestConvictionByProposalAndAllEntries(t *testing.T) {
	l := New("issue-1", nil)
	l.UpdateConviction("agent-a", 1, 10, expParams())
	l.UpdateConviction("agent-b", 1, 5, expParams())
	l.UpdateConviction("agent-a", 2, 1, expParams())

	byProposal := l.ConvictionByProposal(1)
	assert.Len(t, byProposal, 2)

	all := l.AllConvictionEntries()
	require.Contains(t, all, "agent-a")
	assert.Len(t, all["agent-a"], 2)
	assert.Len(t, all["agent-b"], 1)
}
