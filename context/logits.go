package context

import "math"

// CurrentInputAndPositionIds returns the token and position id slices for
// the current step, truncated to padded_active_token_count: the exact
// shape attention and embedding lookups consume.
func (c *Context) CurrentInputAndPositionIds() (inputIDs, positionIDs []int) {
	n := c.paddedActiveTokenCount
	return c.tokenToInputIDs[:n], c.tokenToPosIDs[:n]
}

// LastTokenLogits extracts, from a [padded_active_token_count, vocab_size]
// logits tensor flattened row-major, one row per active request: the last
// token position belonging to that request. Requests appear in the same
// [paused, active) order as the request table.
func (c *Context) LastTokenLogits(logits []float32, vocabSize int) [][]float32 {
	activeRequestCount := c.totalRequestCount - c.pausedRequestCount
	out := make([][]float32, activeRequestCount)

	lastTokenIdx := make([]int, activeRequestCount)
	for j := 0; j < c.activeTokenCount; j++ {
		slot := c.tokenToRequestIdx[j]
		if slot < c.pausedRequestCount {
			continue
		}
		lastTokenIdx[slot-c.pausedRequestCount] = j
	}

	for i := range out {
		j := lastTokenIdx[i]
		row := make([]float32, vocabSize)
		copy(row, logits[j*vocabSize:(j+1)*vocabSize])
		out[i] = row
	}
	return out
}

// CalculateLogProbs takes a [active_token_count, vocab_size] logits
// tensor, flattened row-major, and returns the log-probability of each
// token's own input id (a numerically stable log-softmax over its row,
// indexed at token_to_input_ids), split into one slice per active
// request sized by that request's current query length. Requests appear
// in the same [paused, active) order as the request table.
func (c *Context) CalculateLogProbs(logits []float32, vocabSize int) [][]float32 {
	activeRequestCount := c.totalRequestCount - c.pausedRequestCount
	out := make([][]float32, activeRequestCount)
	for i := 0; i < activeRequestCount; i++ {
		slot := c.pausedRequestCount + i
		out[i] = make([]float32, c.requestQueryLengths[slot])
	}

	next := make([]int, activeRequestCount)
	for j := 0; j < c.activeTokenCount; j++ {
		slot := c.tokenToRequestIdx[j]
		i := slot - c.pausedRequestCount
		row := logits[j*vocabSize : (j+1)*vocabSize]
		out[i][next[i]] = logSoftmax(row)[c.tokenToInputIDs[j]]
		next[i]++
	}
	return out
}

func logSoftmax(row []float32) []float32 {
	rowMax := row[0]
	for _, v := range row {
		if v > rowMax {
			rowMax = v
		}
	}
	var sum float64
	for _, v := range row {
		sum += math.Exp(float64(v - rowMax))
	}
	logSum := float32(math.Log(sum))
	out := make([]float32, len(row))
	for i, v := range row {
		out[i] = v - rowMax - logSum
	}
	return out
}
