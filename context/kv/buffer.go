// Package kv models the chunked KV cache memory buffer: a six-dimensional
// buffer [2, num_layers, total_chunks, chunk_size_tokens,
// heads_per_partition, head_dim]. Kept separate from the request/token
// bookkeeping tables so the buffer's addressing can be swapped (e.g. for a
// quantized cache) without touching scheduler logic.
package kv

// Buffer is a flat, strided stand-in for the device-resident six-
// dimensional KV cache tensor. Real engines back this with device memory;
// here it is a plain []float32 slab addressed by the same strides the
// original tensor would use.
type Buffer struct {
	data []float32

	numLayers         int
	totalChunks       int // includes the dummy chunk
	chunkSizeTokens   int
	headsPerPartition int
	headDim           int

	vecLen      int // headsPerPartition * headDim
	chunkStride int // chunkSizeTokens * vecLen
	layerStride int // totalChunks * chunkStride
	kvSelStride int // numLayers * layerStride
}

// NewBuffer allocates a buffer sized for numLayers layers, totalChunks
// pages (including the dummy page), chunkSizeTokens tokens per page, and
// headsPerPartition*headDim-element K/V vectors per token.
func NewBuffer(numLayers, totalChunks, chunkSizeTokens, headsPerPartition, headDim int) *Buffer {
	vecLen := headsPerPartition * headDim
	chunkStride := chunkSizeTokens * vecLen
	layerStride := totalChunks * chunkStride
	kvSelStride := numLayers * layerStride

	return &Buffer{
		data:              make([]float32, 2*kvSelStride),
		numLayers:         numLayers,
		totalChunks:       totalChunks,
		chunkSizeTokens:   chunkSizeTokens,
		headsPerPartition: headsPerPartition,
		headDim:           headDim,
		vecLen:            vecLen,
		chunkStride:       chunkStride,
		layerStride:       layerStride,
		kvSelStride:       kvSelStride,
	}
}

// VecLen returns the per-token vector length (headsPerPartition * headDim).
func (b *Buffer) VecLen() int { return b.vecLen }

func (b *Buffer) offset(kvSel, layer, chunkIdx, localPos int) int {
	return kvSel*b.kvSelStride + layer*b.layerStride + chunkIdx*b.chunkStride + localPos*b.vecLen
}

// Set writes a single token's K (kvSel=0) or V (kvSel=1) vector for the
// given layer at the given page/local-position.
func (b *Buffer) Set(kvSel, layer, chunkIdx, localPos int, vec []float32) {
	off := b.offset(kvSel, layer, chunkIdx, localPos)
	copy(b.data[off:off+b.vecLen], vec)
}

// Get returns a view of a single token's K or V vector.
func (b *Buffer) Get(kvSel, layer, chunkIdx, localPos int) []float32 {
	off := b.offset(kvSel, layer, chunkIdx, localPos)
	return b.data[off : off+b.vecLen]
}

// LayerView returns the full pool slab for one (kvSel, layer) pair, shaped
// conceptually as [totalChunks, chunkSizeTokens, headsPerPartition,
// headDim] but returned flat; consumers perform paged attention
// themselves.
func (b *Buffer) LayerView(kvSel, layer int) []float32 {
	start := kvSel*b.kvSelStride + layer*b.layerStride
	return b.data[start : start+b.layerStride]
}

// ChunkSizeTokens returns the configured page size in tokens.
func (b *Buffer) ChunkSizeTokens() int { return b.chunkSizeTokens }
