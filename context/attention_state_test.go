package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeAttentionStatePrefill(t *testing.T) {
	c := New(testConfig())

	toGen := 4
	_, err := c.AddRequest(1, make([]int, 10), &toGen)
	require.NoError(t, err)

	require.NoError(t, c.InitializeAttentionState(nil))

	assert.False(t, c.IsDecodeOnly())
	assert.Equal(t, 10, c.paddedActiveTokenCount)
	assert.Equal(t, 1, c.paddedActiveRequestCount)
	assert.Equal(t, []int{0, 10}, c.cuQuerySeqLengths)
	assert.Equal(t, []int{0, 10}, c.cuKVSeqLengths)
	assert.Equal(t, 10, c.maxSeqlenQ)
	assert.Equal(t, 10, c.maxSeqlenK)
	require.Len(t, c.blockTable, 1)
}

func TestInitializeAttentionStateDecodeOnly(t *testing.T) {
	c := New(testConfig())

	toGen := 4
	_, err := c.AddRequest(1, make([]int, 10), &toGen)
	require.NoError(t, err)
	c.UpdateRequests([]bool{true}, []int{55})

	require.NoError(t, c.InitializeAttentionState(nil))

	assert.True(t, c.IsDecodeOnly())
	assert.Equal(t, 1, c.maxSeqlenQ)
	// Fixed at max_sequence_length for graph-capture stability, not the
	// actual in-flight KV length (11).
	assert.Equal(t, c.layout.maxSequenceLength, c.maxSeqlenK)
	assert.Equal(t, []int{0, 11}, c.cuKVSeqLengths)
}

func TestInitializeAttentionStateWarmupOverflow(t *testing.T) {
	c := New(testConfig())

	tooMany := c.MaxRequests() + 1
	err := c.InitializeAttentionState(&tooMany)
	require.Error(t, err)
	var overflow *ActiveRequestCountOverflowError
	assert.ErrorAs(t, err, &overflow)
}

func TestResetAttentionStateClearsTransientFields(t *testing.T) {
	c := New(testConfig())
	_, err := c.AddRequest(1, make([]int, 10), nil)
	require.NoError(t, err)
	require.NoError(t, c.InitializeAttentionState(nil))
	require.NotZero(t, c.paddedActiveTokenCount)

	c.ResetAttentionState()

	assert.Equal(t, 0, c.paddedActiveTokenCount)
	assert.Equal(t, 0, c.paddedActiveRequestCount)
	assert.Nil(t, c.blockTable)
}
