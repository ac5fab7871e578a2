package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateRequestsSingleDecodeStep(t *testing.T) {
	c := New(testConfig())

	toGen := 3
	_, err := c.AddRequest(1, make([]int, 5), &toGen)
	require.NoError(t, err)
	chunkID := c.requestLastKVChunkID[0]

	c.UpdateRequests([]bool{true}, []int{99})

	assert.Equal(t, 1, c.totalRequestCount)
	assert.Equal(t, 1, c.activeTokenCount)
	assert.Equal(t, 99, c.tokenToInputIDs[0])
	assert.Equal(t, 5, c.requestKVLengthOffsets[0])
	assert.Equal(t, 1, c.requestQueryLengths[0])
	assert.Equal(t, 5, c.requestLastKVChunkOffset[0])
	assert.Equal(t, 5, c.tokenToPosIDs[0])
	assert.Equal(t, chunkID, c.tokenToChunkIdx[0])
}

func TestUpdateRequestsRetireAndSwap(t *testing.T) {
	c := New(testConfig())

	toGenA, toGenB := 2, 3
	_, err := c.AddRequest(1, make([]int, 3), &toGenA)
	require.NoError(t, err)
	_, err = c.AddRequest(2, make([]int, 4), &toGenB)
	require.NoError(t, err)
	bChunkID := c.requestLastKVChunkID[1]

	// A (row 0) finishes, B (row 1) survives and must slide left.
	c.UpdateRequests([]bool{false, true}, []int{10, 20})

	assert.Equal(t, 1, c.totalRequestCount)
	assert.Equal(t, 1, c.activeTokenCount)
	assert.Equal(t, 2, c.requestIDs[0])
	assert.Equal(t, 20, c.tokenToInputIDs[0])
	assert.Equal(t, 4, c.requestKVLengthOffsets[0])
	assert.Equal(t, bChunkID, c.requestLastKVChunkID[0])
	assert.Equal(t, bChunkID, c.tokenToChunkIdx[0])
}

func TestUpdateRequestsFastExitWhenAllFinish(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(1, make([]int, 3), nil)
	require.NoError(t, err)

	c.UpdateRequests([]bool{false}, []int{7})

	assert.Equal(t, 0, c.totalRequestCount)
	assert.Equal(t, 0, c.activeTokenCount)
	assert.False(t, c.HasUnfinishedRequests())
}

// TestUpdateRequestsPauseDefersResumeWhenReserveAlreadyMet admits eight
// requests filling every slot, with only the first two (A, B) sitting at a
// full last page. Once A and B are paused, six requests remain active —
// already at or above the guaranteed progress floor — so neither A nor B
// is resumed this step, even though the allocator nominally has exactly
// gtd_chunk_count chunks free.
func TestUpdateRequestsPauseDefersResumeWhenReserveAlreadyMet(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(100, make([]int, 16), nil) // A: exactly fills a page
	require.NoError(t, err)
	_, err = c.AddRequest(101, make([]int, 16), nil) // B: exactly fills a page
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		_, err := c.AddRequest(200+i, make([]int, 65), nil) // G1..G6
		require.NoError(t, err)
	}
	require.Equal(t, c.layout.gtdChunkCount, c.AvailableChunks())
	require.Equal(t, 15, c.requestLastKVChunkOffset[0])
	require.Equal(t, 15, c.requestLastKVChunkOffset[1])

	mask := []bool{true, true, true, true, true, true, true, true}
	tokens := []int{111, 222, 301, 302, 303, 304, 305, 306}
	c.UpdateRequests(mask, tokens)

	assert.Equal(t, 2, c.pausedRequestCount)
	assert.Equal(t, 6, c.activeTokenCount)
	assert.Equal(t, 8, c.totalRequestCount)
	assert.Equal(t, []int{111, 222}, c.pausedTokens)
	assert.Equal(t, []int{301, 302, 303, 304, 305, 306}, c.tokenToInputIDs[:6])
	assert.Equal(t, 15, c.requestLastKVChunkOffset[0])
	assert.Equal(t, 15, c.requestLastKVChunkOffset[1])
}

func TestUpdateRequestsResumesWhenCapacityAmple(t *testing.T) {
	c := New(testConfig())

	_, err := c.AddRequest(1, make([]int, 16), nil)
	require.NoError(t, err)
	_, err = c.AddRequest(2, make([]int, 16), nil)
	require.NoError(t, err)

	// Both requests sit at a full last page, and the allocator has ample
	// non-guaranteed capacity, so both should pause and then immediately
	// resume in the same step.
	c.UpdateRequests([]bool{true, true}, []int{1, 2})

	assert.Equal(t, 0, c.pausedRequestCount)
	assert.Equal(t, 2, c.activeTokenCount)
	assert.Equal(t, 0, c.requestLastKVChunkOffset[0])
	assert.Equal(t, 0, c.requestLastKVChunkOffset[1])
}
