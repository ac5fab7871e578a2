package context

// UpdateRequests advances the context after a step's sampling.
// activeMask has one entry per currently-active request (true = still
// unfinished); newTokens has one freshly sampled token per active
// request, in the same order. Retires finished requests, pauses active
// requests whose last page just filled up, resumes paused requests as
// capacity allows, then advances bookkeeping for the new active zone, in
// that order.
func (c *Context) UpdateRequests(activeMask []bool, newTokens []int) {
	activeRequestCount := 0
	finishedRequestCount := 0
	for _, m := range activeMask {
		if m {
			activeRequestCount++
		} else {
			finishedRequestCount++
		}
	}
	if activeRequestCount+finishedRequestCount+c.pausedRequestCount != c.totalRequestCount {
		panic("update_requests: active + finished + paused != total_request_count")
	}

	c.ResetAttentionState()

	// Fast-exit: nothing paused and nothing still active.
	if activeRequestCount+c.pausedRequestCount == 0 {
		if finishedRequestCount > 0 {
			c.releaseFinished(activeMask)
		}
		for i := range c.requestToKVChunkIDs {
			for j := range c.requestToKVChunkIDs[i] {
				c.requestToKVChunkIDs[i][j] = -1
			}
		}
		c.totalRequestCount = 0
		c.activeTokenCount = 0
		return
	}

	// Concatenate any carried-over paused tokens ahead of the new ones.
	var nextTokens []int
	if c.pausedRequestCount != 0 {
		nextTokens = append(append([]int(nil), c.pausedTokens...), newTokens...)
	} else {
		nextTokens = append([]int(nil), newTokens...)
	}

	// 1. Retire finished requests: release their pages, then swap
	// surviving active requests from the right into the gap on the left
	// so the layout becomes [paused, active, finished].
	if finishedRequestCount > 0 {
		c.releaseFinished(activeMask)

		if activeRequestCount > 0 {
			var finishedOnLeft, activeOnRight []int
			for i, m := range activeMask[:activeRequestCount] {
				if !m {
					finishedOnLeft = append(finishedOnLeft, c.pausedRequestCount+i)
				}
			}
			for i, m := range activeMask[activeRequestCount:] {
				if m {
					activeOnRight = append(activeOnRight, activeRequestCount+c.pausedRequestCount+i)
				}
			}
			c.moveBookkeeping(activeOnRight, finishedOnLeft, nextTokens)
			for _, idx := range activeOnRight {
				for j := range c.requestToKVChunkIDs[idx] {
					c.requestToKVChunkIDs[idx][j] = -1
				}
			}
		}
	}

	// 2. Pause requests whose last chunk is full (they'll need a new page
	// after consuming this step's token); move them to the left of the
	// active zone, swapping them with the requests on the left that don't
	// need a new page, restoring [paused, active] ordering.
	if activeRequestCount > 0 {
		needsNewChunk := make([]bool, activeRequestCount)
		needCount := 0
		for i := 0; i < activeRequestCount; i++ {
			slot := c.pausedRequestCount + i
			if c.requestLastKVChunkOffset[slot] == c.layout.chunkSizeTokens-1 {
				needsNewChunk[i] = true
				needCount++
			}
		}

		if needCount > 0 && needCount != activeRequestCount {
			var activeOnLeft, pausedOnRight []int
			for i := 0; i < needCount; i++ {
				if !needsNewChunk[i] {
					activeOnLeft = append(activeOnLeft, c.pausedRequestCount+i)
				}
			}
			for i := needCount; i < activeRequestCount; i++ {
				if needsNewChunk[i] {
					pausedOnRight = append(pausedOnRight, c.pausedRequestCount+i)
				}
			}
			for k := range activeOnLeft {
				a, b := activeOnLeft[k], pausedOnRight[k]
				for _, f := range [][]int{c.requestKVLengthOffsets, c.requestQueryLengths, c.requestOutputLengths, c.requestIDs,
					nextTokens, c.requestKVChunkCounts, c.requestLastKVChunkID, c.requestLastKVChunkOffset} {
					f[a], f[b] = f[b], f[a]
				}
				c.requestToKVChunkIDs[a], c.requestToKVChunkIDs[b] = c.requestToKVChunkIDs[b], c.requestToKVChunkIDs[a]
			}
		}

		c.pausedRequestCount += needCount
		activeRequestCount -= needCount
	}

	// 3. Resume paused requests (LIFO), dipping into the guaranteed
	// reserve only if the non-guaranteed pool is exhausted.
	numNonGtdChunks := c.chunkAllocator.Avail() - c.layout.gtdChunkCount
	if numNonGtdChunks < 0 {
		numNonGtdChunks = 0
	}
	var resumeRequestCount int
	if numNonGtdChunks > 0 {
		resumeRequestCount = min(numNonGtdChunks, c.pausedRequestCount)
	} else {
		want := c.layout.gtdRequestCount - activeRequestCount
		if want < 0 {
			want = 0
		}
		resumeRequestCount = min(want, c.pausedRequestCount)
	}

	c.pausedRequestCount -= resumeRequestCount
	activeRequestCount += resumeRequestCount
	if activeRequestCount <= 0 {
		panic("update_requests: active_request_count == 0 after resume; deadlock")
	}

	// 4. Advance bookkeeping for the (now-settled) active zone and set up
	// this step's decode tokens.
	c.totalRequestCount = activeRequestCount + c.pausedRequestCount
	c.activeTokenCount = activeRequestCount

	copy(c.tokenToInputIDs[:c.activeTokenCount], nextTokens[c.pausedRequestCount:c.totalRequestCount])

	if c.pausedRequestCount > 0 {
		c.pausedTokens = append([]int(nil), nextTokens[:c.pausedRequestCount]...)
	} else {
		c.pausedTokens = nil
	}

	for slot := c.pausedRequestCount; slot < c.totalRequestCount; slot++ {
		c.requestKVLengthOffsets[slot] += c.requestQueryLengths[slot]
		c.requestQueryLengths[slot] = 1
		c.requestLastKVChunkOffset[slot] = (c.requestLastKVChunkOffset[slot] + 1) % c.layout.chunkSizeTokens
	}
	for i := 0; i < c.activeTokenCount; i++ {
		c.tokenToPosIDs[i] = c.requestKVLengthOffsets[c.pausedRequestCount+i]
	}

	// Resumed requests get exactly one new page each.
	if resumeRequestCount > 0 {
		for slot := c.pausedRequestCount; slot < c.pausedRequestCount+resumeRequestCount; slot++ {
			if c.requestLastKVChunkOffset[slot] != 0 {
				panic("update_requests: resumed request has nonzero last_kv_chunk_offset")
			}
		}

		chunkIDs, ok := c.chunkAllocator.Allocate(resumeRequestCount, false)
		if !ok {
			panic("update_requests: resume allocation failed despite budget accounting")
		}
		for i := 0; i < resumeRequestCount; i++ {
			slot := c.pausedRequestCount + i
			col := c.requestKVChunkCounts[slot]
			c.requestToKVChunkIDs[slot][col] = chunkIDs[i]
			c.requestKVChunkCounts[slot]++
			c.requestLastKVChunkID[slot] = chunkIDs[i]
		}
		c.log.WithField("count", resumeRequestCount).Debug("resumed paused requests")
	}

	// 5. Rebuild the token table for the (now decode-only) active zone.
	for i := 0; i < c.activeTokenCount; i++ {
		slot := c.pausedRequestCount + i
		c.tokenToRequestIdx[i] = slot
		c.tokenToPositionInRequest[i] = c.requestKVLengthOffsets[slot]
		c.tokenToChunkIdx[i] = c.requestLastKVChunkID[slot]
		c.tokenToLocalPositionWithinKVChunk[i] = c.requestLastKVChunkOffset[slot]
	}
}

// releaseFinished returns to the allocator the pages held by every request
// for which activeMask[i] is false, then clears those rows' page vectors.
func (c *Context) releaseFinished(activeMask []bool) {
	var finishedIdxs []int
	for i, m := range activeMask {
		if !m {
			finishedIdxs = append(finishedIdxs, c.pausedRequestCount+i)
		}
	}
	var released []int
	for _, idx := range finishedIdxs {
		for _, pg := range c.requestToKVChunkIDs[idx] {
			if pg != -1 {
				released = append(released, pg)
			}
		}
	}
	c.chunkAllocator.Release(released)
	for _, idx := range finishedIdxs {
		for j := range c.requestToKVChunkIDs[idx] {
			c.requestToKVChunkIDs[idx][j] = -1
		}
	}
}

// moveBookkeeping copies request-table rows and corresponding next_tokens
// entries from src to dst, index for index. The src rows keep their old
// contents.
func (c *Context) moveBookkeeping(src, dst []int, nextTokens []int) {
	for k := range src {
		s, d := src[k], dst[k]
		c.requestKVLengthOffsets[d] = c.requestKVLengthOffsets[s]
		c.requestQueryLengths[d] = c.requestQueryLengths[s]
		c.requestOutputLengths[d] = c.requestOutputLengths[s]
		c.requestIDs[d] = c.requestIDs[s]
		nextTokens[d] = nextTokens[s]

		copy(c.requestToKVChunkIDs[d], c.requestToKVChunkIDs[s])
		c.requestKVChunkCounts[d] = c.requestKVChunkCounts[s]
		c.requestLastKVChunkID[d] = c.requestLastKVChunkID[s]
		c.requestLastKVChunkOffset[d] = c.requestLastKVChunkOffset[s]
	}
}
