package textdelta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentenceSequenceDelta(t *testing.T) {
	tests := []struct {
		name     string
		old      string
		new      string
		expected float64
	}{
		{
			name:     "identical text has zero delta",
			old:      "The system is healthy. No action needed.",
			new:      "The system is healthy. No action needed.",
			expected: 0.0,
		},
		{
			name:     "both empty has zero delta",
			old:      "",
			new:      "",
			expected: 0.0,
		},
		{
			name:     "completely disjoint text has delta of 1",
			old:      "The sky is blue.",
			new:      "Rabbits eat carrots. They live in burrows.",
			expected: 1.0,
		},
		{
			name:     "one new sentence appended reduces similarity partially",
			old:      "Restart the pod.",
			new:      "Restart the pod. Then check the logs.",
			expected: 0.3333,
		},
		{
			name:     "old text entirely replaced by new text",
			old:      "",
			new:      "Escalate to the on-call engineer.",
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SentenceSequenceDelta(tt.old, tt.new)
			assert.InDelta(t, tt.expected, got, 0.0001)
		})
	}
}

func TestSentenceSequenceDelta_IsDeterministic(t *testing.T) {
	old := "First sentence. Second sentence! Third one?"
	new := "First sentence. Second sentence rewritten. Third one? Fourth sentence."

	a := SentenceSequenceDelta(old, new)
	b := SentenceSequenceDelta(old, new)
	assert.Equal(t, a, b)
}

func TestSentenceSequenceDelta_SymmetricBounds(t *testing.T) {
	got := SentenceSequenceDelta("A. B. C.", "A. B. C. D.")
	assert.GreaterOrEqual(t, got, 0.0)
	assert.LessOrEqual(t, got, 1.0)
}
