package context

// ApplyRotaryEmbQuery gathers, for every token in the current step, the
// rotary frequency row at that token's absolute position id. freqTable is
// indexed by absolute sequence position. The actual rotation math is an
// external collaborator's responsibility: this only selects which row of
// freqTable applies to each token.
func (c *Context) ApplyRotaryEmbQuery(freqTable [][]float32) [][]float32 {
	return gatherByPosition(freqTable, c.tokenToPosIDs[:c.paddedActiveTokenCount])
}

// ApplyRotaryEmbKey gathers rotary frequency rows by each token's
// request-relative position rather than its absolute position id.
func (c *Context) ApplyRotaryEmbKey(freqTable [][]float32) [][]float32 {
	return gatherByPosition(freqTable, c.tokenToPositionInRequest[:c.paddedActiveTokenCount])
}

func gatherByPosition(freqTable [][]float32, positions []int) [][]float32 {
	out := make([][]float32, len(positions))
	for i, p := range positions {
		out[i] = freqTable[p]
	}
	return out
}
