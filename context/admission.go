package context

import "math"

// AddRequest admits a new request into the context. tokens is the prompt;
// tokensToGenerate, if nil, defaults to filling the remainder of
// max_sequence_length. On success it returns the page indices assigned to
// the request's prompt.
//
// Checks run in this order: token overflow, then request overflow, then
// chunk allocation, then the max-sequence-length check. The
// max-sequence-length check running after chunk allocation succeeds (and
// releasing those chunks on failure) is intentional; see DESIGN.md.
func (c *Context) AddRequest(requestID int, tokens []int, tokensToGenerate *int) ([]int, error) {
	promptLength := len(tokens)

	if c.activeTokenCount+promptLength > c.layout.maxTokens {
		return nil, &TokenOverflowError{
			ActiveTokenCount: c.activeTokenCount,
			PromptLength:     promptLength,
			MaxTokens:        c.layout.maxTokens,
		}
	}
	if c.totalRequestCount >= c.layout.maxRequests {
		return nil, &RequestOverflowError{
			TotalRequestCount: c.totalRequestCount,
			MaxRequests:       c.layout.maxRequests,
		}
	}

	numChunksNeeded := int(math.Ceil(float64(promptLength) / float64(c.layout.chunkSizeTokens)))
	newChunkIDs, ok := c.chunkAllocator.Allocate(numChunksNeeded, true)
	if !ok {
		return nil, &ChunkOverflowError{
			ChunksNeeded: numChunksNeeded,
			ChunksAvail:  c.chunkAllocator.Avail(),
		}
	}

	var numToGenerate int
	if tokensToGenerate == nil {
		numToGenerate = c.layout.maxSequenceLengthFor(promptLength)
	} else {
		numToGenerate = *tokensToGenerate
		if promptLength+numToGenerate > c.maxSequenceLength() {
			c.chunkAllocator.Release(newChunkIDs)
			return nil, &MaxSequenceLengthOverflowError{
				PromptLength:      promptLength,
				TokensToGenerate:  numToGenerate,
				MaxSequenceLength: c.maxSequenceLength(),
			}
		}
	}

	slot := c.totalRequestCount

	c.requestIDs[slot] = requestID
	c.requestQueryLengths[slot] = promptLength
	c.requestOutputLengths[slot] = promptLength + numToGenerate
	c.requestKVLengthOffsets[slot] = 0
	for i, id := range newChunkIDs {
		c.requestToKVChunkIDs[slot][i] = id
	}
	c.requestKVChunkCounts[slot] = numChunksNeeded
	c.requestLastKVChunkID[slot] = newChunkIDs[len(newChunkIDs)-1]
	c.requestLastKVChunkOffset[slot] = (promptLength - 1) % c.layout.chunkSizeTokens

	base := c.activeTokenCount
	for k := 0; k < promptLength; k++ {
		j := base + k
		c.tokenToPosIDs[j] = k
		c.tokenToInputIDs[j] = tokens[k]
		c.tokenToRequestIdx[j] = slot
		c.tokenToPositionInRequest[j] = k
		c.tokenToChunkIdx[j] = newChunkIDs[k/c.layout.chunkSizeTokens]
		c.tokenToLocalPositionWithinKVChunk[j] = k % c.layout.chunkSizeTokens
	}

	c.totalRequestCount++
	c.activeTokenCount += promptLength

	c.log.WithField("request_id", requestID).
		WithField("prompt_length", promptLength).
		WithField("chunks", numChunksNeeded).
		Debug("admitted request")

	return newChunkIDs, nil
}

func (c *Context) maxSequenceLength() int { return c.layout.maxSequenceLength }

// maxSequenceLengthFor returns the default generation budget (fill the
// remainder of max_sequence_length) for a prompt of the given length.
func (l layout) maxSequenceLengthFor(promptLength int) int {
	return l.maxSequenceLength - promptLength
}
