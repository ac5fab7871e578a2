package context

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastTokenLogitsPicksFinalTokenPerRequest(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(1, make([]int, 3), nil)
	require.NoError(t, err)
	_, err = c.AddRequest(2, make([]int, 2), nil)
	require.NoError(t, err)
	require.NoError(t, c.InitializeAttentionState(nil))

	vocab := 4
	n := c.paddedActiveTokenCount
	logits := make([]float32, n*vocab)
	for tok := 0; tok < n; tok++ {
		for v := 0; v < vocab; v++ {
			logits[tok*vocab+v] = float32(tok*10 + v)
		}
	}

	rows := c.LastTokenLogits(logits, vocab)
	require.Len(t, rows, 2)
	// Request 0 (3 tokens): last token index 2. Request 1 (2 tokens): last token index 4.
	assert.Equal(t, float32(20), rows[0][0])
	assert.Equal(t, float32(40), rows[1][0])
}

func TestCalculateLogProbsSelectsInputTokenAndSplitsByRequest(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(1, []int{0, 2}, nil)
	require.NoError(t, err)
	_, err = c.AddRequest(2, []int{1}, nil)
	require.NoError(t, err)
	require.NoError(t, c.InitializeAttentionState(nil))

	vocab := 4
	n := c.paddedActiveTokenCount
	require.Equal(t, 3, n)
	logits := make([]float32, n*vocab)
	for tok := 0; tok < n; tok++ {
		for v := 0; v < vocab; v++ {
			logits[tok*vocab+v] = float32(tok*10 + v)
		}
	}

	probs := c.CalculateLogProbs(logits, vocab)
	require.Len(t, probs, 2)
	require.Len(t, probs[0], 2)
	require.Len(t, probs[1], 1)

	// token 0 (input id 0) and token 1 (input id 2) belong to request 1;
	// token 2 (input id 1) belongs to request 2.
	want0 := logSoftmax([]float32{0, 1, 2, 3})[0]
	want1 := logSoftmax([]float32{10, 11, 12, 13})[2]
	want2 := logSoftmax([]float32{20, 21, 22, 23})[1]

	assert.InDelta(t, float64(want0), float64(probs[0][0]), 1e-6)
	assert.InDelta(t, float64(want1), float64(probs[0][1]), 1e-6)
	assert.InDelta(t, float64(want2), float64(probs[1][0]), 1e-6)

	var sumExp float64
	for _, v := range logSoftmax([]float32{0, 1, 2, 3}) {
		sumExp += math.Exp(float64(v))
	}
	assert.InDelta(t, 1.0, sumExp, 1e-5)
}
