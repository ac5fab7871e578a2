package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRotaryEmbQueryGathersByAbsolutePosition(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(1, make([]int, 2), nil)
	require.NoError(t, err)
	require.NoError(t, c.InitializeAttentionState(nil))

	freqTable := make([][]float32, c.layout.maxSequenceLength)
	for i := range freqTable {
		freqTable[i] = []float32{float32(i), float32(i) + 0.5}
	}

	// Prompt of length 2 gets absolute position ids 0, 1.
	got := c.ApplyRotaryEmbQuery(freqTable)
	assert.Equal(t, [][]float32{{0, 0.5}, {1, 1.5}}, got)
}

func TestApplyRotaryEmbKeyGathersByRequestRelativePosition(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(1, make([]int, 3), nil)
	require.NoError(t, err)
	require.NoError(t, c.InitializeAttentionState(nil))

	freqTable := make([][]float32, c.layout.maxSequenceLength)
	for i := range freqTable {
		freqTable[i] = []float32{float32(i)}
	}

	got := c.ApplyRotaryEmbKey(freqTable)
	assert.Equal(t, [][]float32{{0}, {1}, {2}}, got)
}
