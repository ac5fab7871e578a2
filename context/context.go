package context

import (
	"github.com/sirupsen/logrus"

	kv "github.com/inference-sim/dynamic-context/context/kv"
)

// Context is the dynamic inference context. All mutation happens from a
// single logical driver: admission, attention-state build, cache append,
// and scheduler update are never called concurrently.
type Context struct {
	layout layout
	log    *logrus.Entry

	chunkAllocator *ChunkAllocator
	cache          *kv.Buffer

	// Zone boundaries over the request table: [0,P) paused, [P,T) active,
	// [T,maxRequests) free.
	pausedRequestCount int
	totalRequestCount  int
	activeTokenCount   int

	// Per-request contiguous arrays, length maxRequests.
	requestIDs               []int
	requestQueryLengths      []int
	requestOutputLengths     []int
	requestKVLengthOffsets   []int
	requestKVChunkCounts     []int
	requestLastKVChunkID     []int
	requestLastKVChunkOffset []int
	requestToKVChunkIDs      [][]int // maxRequests x maxKVChunkCount, -1 = unused
	pausedTokens             []int   // next_tokens carried over across a pause, length == pausedRequestCount

	// Per-token contiguous arrays, length maxTokens.
	tokenToInputIDs                   []int
	tokenToPosIDs                     []int
	tokenToRequestIdx                 []int
	tokenToChunkIdx                   []int
	tokenToPositionInRequest          []int
	tokenToLocalPositionWithinKVChunk []int

	// Fixed-address decode-only buffers for graph-capture stability.
	querySeqLengthsDecodeOnly     []int
	cuQuerySeqLengthsDecodeOnly   []int
	kvSeqLengthsDecodeOnly        []int
	cuKVSeqLengthsDecodeOnly      []int
	requestToKVChunkIDsDecodeOnly [][]int

	// Transient attention-state, valid between InitializeAttentionState and
	// the next ResetAttentionState/UpdateRequests call.
	maxSeqlenQ               int
	maxSeqlenK               int
	cuQuerySeqLengths        []int
	cuKVSeqLengths           []int
	kvSeqLengths             []int
	blockTable               [][]int
	paddedActiveTokenCount   int
	paddedActiveRequestCount int
}

// New constructs a dynamic inference context from the given configuration.
func New(cfg Config) *Context {
	l := computeLayout(cfg)

	c := &Context{
		layout: l,
		log:    logrus.WithField("component", "dynamic-context"),

		requestIDs:               make([]int, l.maxRequests),
		requestQueryLengths:      make([]int, l.maxRequests),
		requestOutputLengths:     make([]int, l.maxRequests),
		requestKVLengthOffsets:   make([]int, l.maxRequests),
		requestKVChunkCounts:     make([]int, l.maxRequests),
		requestLastKVChunkID:     make([]int, l.maxRequests),
		requestLastKVChunkOffset: make([]int, l.maxRequests),
		requestToKVChunkIDs:      newIntMatrix(l.maxRequests, l.maxKVChunkCount),

		tokenToInputIDs:                   make([]int, l.maxTokens),
		tokenToPosIDs:                     make([]int, l.maxTokens),
		tokenToRequestIdx:                 make([]int, l.maxTokens),
		tokenToChunkIdx:                   make([]int, l.maxTokens),
		tokenToPositionInRequest:          make([]int, l.maxTokens),
		tokenToLocalPositionWithinKVChunk: make([]int, l.maxTokens),

		querySeqLengthsDecodeOnly:     make([]int, l.maxRequests),
		cuQuerySeqLengthsDecodeOnly:   make([]int, l.maxRequests+1),
		kvSeqLengthsDecodeOnly:        make([]int, l.maxRequests),
		cuKVSeqLengthsDecodeOnly:      make([]int, l.maxRequests+1),
		requestToKVChunkIDsDecodeOnly: newIntMatrix(l.maxRequests, l.maxKVChunkCount),
	}

	c.chunkAllocator = NewChunkAllocator(l.totalChunks, l.gtdChunkCount)
	c.cache = kv.NewBuffer(cfg.NumLayers, l.totalChunks+1, l.chunkSizeTokens, l.headsPerPartition, l.headDim)

	c.resetTables()
	c.ResetAttentionState()

	return c
}

func newIntMatrix(rows, cols int) [][]int {
	m := make([][]int, rows)
	for i := range m {
		row := make([]int, cols)
		for j := range row {
			row[j] = -1
		}
		m[i] = row
	}
	return m
}

func (c *Context) resetTables() {
	for i := range c.requestIDs {
		c.requestIDs[i] = -1
		c.requestQueryLengths[i] = 0
		c.requestOutputLengths[i] = 0
		c.requestKVLengthOffsets[i] = 0
		c.requestKVChunkCounts[i] = 0
		c.requestLastKVChunkID[i] = -1
		c.requestLastKVChunkOffset[i] = 0
		for j := range c.requestToKVChunkIDs[i] {
			c.requestToKVChunkIDs[i][j] = -1
		}
	}
	for i := range c.tokenToInputIDs {
		c.tokenToInputIDs[i] = 0
		c.tokenToPosIDs[i] = 0
		c.tokenToRequestIdx[i] = -1
		c.tokenToChunkIdx[i] = -1
		c.tokenToPositionInRequest[i] = 0
		c.tokenToLocalPositionWithinKVChunk[i] = 0
	}
	c.pausedRequestCount = 0
	c.totalRequestCount = 0
	c.activeTokenCount = 0
	c.pausedTokens = nil
}

// Reset clears the entire context: tables, attention state, and the chunk
// allocator. It does not reallocate the cache buffer, since that buffer may
// be referenced by captured graphs.
func (c *Context) Reset() {
	c.resetTables()
	c.ResetAttentionState()
	c.chunkAllocator.Reset()
}

// HasUnfinishedRequests reports whether any requests remain in the table.
func (c *Context) HasUnfinishedRequests() bool {
	return c.totalRequestCount > 0
}

// IsDecodeOnly reports whether every active request contributes exactly
// one token this step.
func (c *Context) IsDecodeOnly() bool {
	activeRequestCount := c.totalRequestCount - c.pausedRequestCount
	return activeRequestCount == c.activeTokenCount
}

// GetActiveRequestCount returns the number of active requests that have not
// yet reached their output length.
func (c *Context) GetActiveRequestCount() int {
	lengths := c.GetActiveSequenceLengths()
	maxLengths := c.GetMaxSequenceLengths()
	count := 0
	for i := range lengths {
		if lengths[i] < maxLengths[i] {
			count++
		}
	}
	return count
}

// GetActiveSequenceLengths returns, for every active request, kv_length_offset + query_length.
func (c *Context) GetActiveSequenceLengths() []int {
	out := make([]int, c.totalRequestCount-c.pausedRequestCount)
	for i := range out {
		slot := c.pausedRequestCount + i
		out[i] = c.requestKVLengthOffsets[slot] + c.requestQueryLengths[slot]
	}
	return out
}

// GetMaxSequenceLengths returns, for every active request, output_length.
func (c *Context) GetMaxSequenceLengths() []int {
	out := make([]int, c.totalRequestCount-c.pausedRequestCount)
	copy(out, c.requestOutputLengths[c.pausedRequestCount:c.totalRequestCount])
	return out
}

// MaxRequests returns the configured per-step request capacity.
func (c *Context) MaxRequests() int { return c.layout.maxRequests }

// MaxTokens returns the configured per-step token capacity.
func (c *Context) MaxTokens() int { return c.layout.maxTokens }

// TotalChunks returns the number of real (non-dummy) pages in the buffer.
func (c *Context) TotalChunks() int { return c.layout.totalChunks }

// GuaranteedRequestCount returns gtd_request_count.
func (c *Context) GuaranteedRequestCount() int { return c.layout.gtdRequestCount }

// GuaranteedChunkCount returns gtd_chunk_count.
func (c *Context) GuaranteedChunkCount() int { return c.layout.gtdChunkCount }

// CudaGraphRequestCounts returns the configured graph-capture decode
// buckets (nil if graph capture is disabled).
func (c *Context) CudaGraphRequestCounts() []int { return c.layout.cudaGraphRequestCounts }

// AvailableChunks returns the number of free pages in the allocator.
func (c *Context) AvailableChunks() int { return c.chunkAllocator.Avail() }
