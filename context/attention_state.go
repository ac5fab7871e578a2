package context

// ResetAttentionState clears the transient attention-state fields. Called
// at construction, on Reset, and at the top of every UpdateRequests, so
// that a caller who forgets to call InitializeAttentionState before
// reading attention-state accessors gets zero values rather than stale
// data from a previous step.
func (c *Context) ResetAttentionState() {
	c.maxSeqlenQ = 0
	c.maxSeqlenK = 0
	c.cuQuerySeqLengths = nil
	c.cuKVSeqLengths = nil
	c.kvSeqLengths = nil
	c.blockTable = nil
	c.paddedActiveTokenCount = 0
	c.paddedActiveRequestCount = 0
}

// InitializeAttentionState builds the attention-kernel-facing state for the
// current step: cumulative sequence length prefix sums for query and
// key/value, the active block table, and — when the step is
// decode-only — padding to the nearest graph-capture bucket so kernels see
// a fixed set of shapes across steps.
//
// numWarmupRequests, when non-nil, pads the decode-only request count up to
// that value instead of to the next graph-capture bucket, used to prime CUDA
// graph capture with request counts that have no real traffic yet. A
// padded request count above max_requests returns
// ActiveRequestCountOverflowError.
func (c *Context) InitializeAttentionState(numWarmupRequests *int) error {
	c.ResetAttentionState()

	activeRequestCount := c.totalRequestCount - c.pausedRequestCount

	if !c.IsDecodeOnly() {
		c.initializePrefillAttentionState(activeRequestCount)
		return nil
	}

	return c.initializeDecodeOnlyAttentionState(activeRequestCount, numWarmupRequests)
}

func (c *Context) initializePrefillAttentionState(activeRequestCount int) {
	c.paddedActiveTokenCount = c.activeTokenCount
	c.paddedActiveRequestCount = activeRequestCount

	querySeqLengths := make([]int, activeRequestCount)
	kvSeqLengths := make([]int, activeRequestCount)
	for i := 0; i < activeRequestCount; i++ {
		slot := c.pausedRequestCount + i
		querySeqLengths[i] = c.requestQueryLengths[slot]
		kvSeqLengths[i] = c.requestKVLengthOffsets[slot] + c.requestQueryLengths[slot]
	}

	c.cuQuerySeqLengths = cumulativeSum(querySeqLengths)
	c.cuKVSeqLengths = cumulativeSum(kvSeqLengths)
	c.kvSeqLengths = kvSeqLengths

	c.maxSeqlenQ = maxInt(querySeqLengths)
	c.maxSeqlenK = maxInt(kvSeqLengths)

	c.blockTable = make([][]int, activeRequestCount)
	for i := 0; i < activeRequestCount; i++ {
		slot := c.pausedRequestCount + i
		c.blockTable[i] = append([]int(nil), c.requestToKVChunkIDs[slot]...)
	}
}

func (c *Context) initializeDecodeOnlyAttentionState(activeRequestCount int, numWarmupRequests *int) error {
	paddedCount := activeRequestCount
	if numWarmupRequests != nil {
		paddedCount = *numWarmupRequests
	} else if len(c.layout.cudaGraphRequestCounts) > 0 {
		paddedCount = nextCudaGraphBucket(c.layout.cudaGraphRequestCounts, activeRequestCount)
	}

	if paddedCount > c.layout.maxRequests {
		return &ActiveRequestCountOverflowError{
			ActiveRequestCount: paddedCount,
			MaxRequestCount:    c.layout.maxRequests,
		}
	}

	c.paddedActiveRequestCount = paddedCount
	c.paddedActiveTokenCount = paddedCount

	dummy := c.chunkAllocator.DummyChunkIdx()

	for i := 0; i < paddedCount; i++ {
		if i < activeRequestCount {
			slot := c.pausedRequestCount + i
			c.querySeqLengthsDecodeOnly[i] = c.requestQueryLengths[slot]
			c.kvSeqLengthsDecodeOnly[i] = c.requestKVLengthOffsets[slot] + c.requestQueryLengths[slot]
			row := c.requestToKVChunkIDsDecodeOnly[i]
			copy(row, c.requestToKVChunkIDs[slot])
			for j := c.requestKVChunkCounts[slot]; j < len(row); j++ {
				row[j] = dummy
			}
		} else {
			c.querySeqLengthsDecodeOnly[i] = 1
			c.kvSeqLengthsDecodeOnly[i] = 1
			row := c.requestToKVChunkIDsDecodeOnly[i]
			for j := range row {
				row[j] = dummy
			}
			c.tokenToChunkIdx[i] = dummy
			c.tokenToLocalPositionWithinKVChunk[i] = 0
			c.tokenToPositionInRequest[i] = 0
		}
	}

	c.cuQuerySeqLengths = c.cuQuerySeqLengthsDecodeOnly[:paddedCount+1]
	c.cuKVSeqLengths = c.cuKVSeqLengthsDecodeOnly[:paddedCount+1]
	for i := 0; i < paddedCount; i++ {
		c.cuQuerySeqLengths[i+1] = c.cuQuerySeqLengths[i] + c.querySeqLengthsDecodeOnly[i]
		c.cuKVSeqLengths[i+1] = c.cuKVSeqLengths[i] + c.kvSeqLengthsDecodeOnly[i]
	}
	c.kvSeqLengths = c.kvSeqLengthsDecodeOnly[:paddedCount]

	c.maxSeqlenQ = 1
	// Fixed at max_sequence_length, not the actual in-flight max, so this
	// value stays stable across steps for graph-capture.
	c.maxSeqlenK = c.layout.maxSequenceLength

	c.blockTable = c.requestToKVChunkIDsDecodeOnly[:paddedCount]

	return nil
}

// nextCudaGraphBucket returns the smallest configured bucket at least
// activeRequestCount, or activeRequestCount itself if no bucket is big
// enough (the caller then raises ActiveRequestCountOverflowError when that
// count exceeds max_requests).
func nextCudaGraphBucket(buckets []int, activeRequestCount int) int {
	best := buckets[0]
	for _, b := range buckets {
		if b >= activeRequestCount && (best < activeRequestCount || b < best) {
			best = b
		}
	}
	if best < activeRequestCount {
		return activeRequestCount
	}
	return best
}

func cumulativeSum(vals []int) []int {
	out := make([]int, len(vals)+1)
	for i, v := range vals {
		out[i+1] = out[i] + v
	}
	return out
}

func maxInt(vals []int) int {
	m := 0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}
