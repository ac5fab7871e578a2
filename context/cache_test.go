package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadKeyValueCache(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(1, make([]int, 3), nil)
	require.NoError(t, err)
	require.NoError(t, c.InitializeAttentionState(nil))

	vecLen := c.cache.VecLen()
	key := make([][]float32, 3)
	value := make([][]float32, 3)
	for i := range key {
		key[i] = make([]float32, vecLen)
		value[i] = make([]float32, vecLen)
		for j := range key[i] {
			key[i][j] = float32(i*100 + j)
			value[i][j] = float32(-(i*100 + j))
		}
	}

	c.AppendKeyValueCache(1, key, value)

	keyPool, valuePool, blockTable := c.KeyValueCache(1)
	assert.NotEmpty(t, keyPool)
	assert.NotEmpty(t, valuePool)
	assert.Len(t, blockTable, 1)

	chunkIdx := c.tokenToChunkIdx[0]
	localPos := c.tokenToLocalPositionWithinKVChunk[0]
	got := c.cache.Get(0, 0, chunkIdx, localPos)
	assert.Equal(t, key[0], got)
}
