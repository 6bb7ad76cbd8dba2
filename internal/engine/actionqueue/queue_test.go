package actionqueue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_SubmitAndDrain_FIFOOrder(t *testing.T) {
	q := New()
	q.Submit(Action{Type: ActionSubmitProposal, AgentID: "agent-a"})
	q.Submit(Action{Type: ActionFeedback, AgentID: "agent-b"})
	q.Submit(Action{Type: ActionStake, AgentID: "agent-c"})

	drained := q.Drain()
	require.Len(t, drained, 3)
	assert.Equal(t, ActionSubmitProposal, drained[0].Type)
	assert.Equal(t, ActionFeedback, drained[1].Type)
	assert.Equal(t, ActionStake, drained[2].Type)
}

func TestQueue_DrainEmptiesTheQueue(t *testing.T) {
	q := New()
	q.Submit(Action{Type: ActionSignalReady, AgentID: "agent-a"})

	first := q.Drain()
	require.Len(t, first, 1)

	second := q.Drain()
	assert.Nil(t, second, "draining an already-empty queue returns nil")
}

func TestQueue_ConcurrentSubmit(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	const n = 100
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			q.Submit(Action{Type: ActionSignalReady})
		}()
	}
	wg.Wait()

	assert.Len(t, q.Drain(), n)
}

func TestStakePayload_ProposalIDDistinguishesMissingFromZero(t *testing.T) {
	missing := StakePayload{StakeAmount: 10}
	assert.Nil(t, missing.ProposalID)

	zero := 0
	explicitZero := StakePayload{StakeAmount: 10, ProposalID: &zero}
	require.NotNil(t, explicitZero.ProposalID)
	assert.Equal(t, 0, *explicitZero.ProposalID)
}
