package context

// AppendKeyValueCache scatters this step's per-token K and V vectors into
// the cache pages indicated by the token table. key and
// value must each hold padded_active_token_count vectors of length
// VecLen(); layer is 1-indexed to match the calling convention of a
// transformer's per-layer forward pass.
func (c *Context) AppendKeyValueCache(layer int, key, value [][]float32) {
	n := c.paddedActiveTokenCount
	for j := 0; j < n; j++ {
		chunkIdx := c.tokenToChunkIdx[j]
		localPos := c.tokenToLocalPositionWithinKVChunk[j]
		c.cache.Set(0, layer-1, chunkIdx, localPos, key[j])
		c.cache.Set(1, layer-1, chunkIdx, localPos, value[j])
	}
}

// KeyValueCache exposes, for one layer, the key and value pool slabs along
// with the current block table. Consumers perform paged attention
// themselves.
func (c *Context) KeyValueCache(layer int) (keyPool, valuePool []float32, blockTable [][]int) {
	return c.cache.LayerView(0, layer-1), c.cache.LayerView(1, layer-1), c.blockTable
}
