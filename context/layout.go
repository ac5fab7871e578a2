package context

import (
	"math"

	"github.com/inference-sim/dynamic-context/internal/roundedsize"
)

// layout holds every scalar derived from Config at construction time. It
// is immutable once computed.
type layout struct {
	chunkSizeTokens   int
	chunkSizeBytes    int
	totalChunks       int
	maxKVChunkCount   int
	maxRequests       int
	maxTokens         int
	maxSequenceLength int

	gtdRequestCount int
	gtdChunkCount   int

	headsPerPartition int
	headDim           int

	cudaGraphRequestCounts    []int
	cudaGraphRequestCountsSet map[int]bool
	cudaGraphStepSize         int

	tpSize int
}

func computeLayout(cfg Config) layout {
	tpSize := cfg.tpSize()
	headsPerPartition := cfg.headsPerPartition()
	headDim := cfg.KVChannels

	chunkSizeTokens := cfg.chunkSizeTokens()
	chunkSizeBytes := cfg.ParamsDTypeBytes * 2 * cfg.NumLayers * chunkSizeTokens * headsPerPartition * headDim

	bufferSizeBytes := int(cfg.BufferSizeGB * 1024 * 1024 * 1024)
	bufferSizeBytes -= bufferSizeBytes % chunkSizeBytes

	maxRequests, maxTokens := bytesToMaxRequestsAndTokens(bufferSizeBytes, chunkSizeBytes, chunkSizeTokens, cfg.MaxSequenceLength, tpSize)

	if cfg.BufferOverflowFactor != nil {
		factor := *cfg.BufferOverflowFactor
		maxRequests = roundedsize.Requests(int(float64(maxRequests)*factor), tpSize)
		maxTokens = roundedsize.Tokens(int(float64(maxTokens)*factor/roundedsize.BufferOverflowTokenDivisor), tpSize)
	}

	if cfg.MaxRequestsOverride != nil {
		maxRequests = roundedsize.Requests(*cfg.MaxRequestsOverride, tpSize)
	}
	if cfg.MaxTokensOverride != nil {
		maxTokens = roundedsize.Tokens(*cfg.MaxTokensOverride, tpSize)
	}

	// This can silently cap capacity below what the buffer could otherwise
	// hold for long prompts; see DESIGN.md.
	if maxRequests > maxTokens {
		maxRequests = maxTokens
	}

	totalChunks := bufferSizeBytes / chunkSizeBytes
	maxKVChunkCount := int(math.Ceil(float64(cfg.MaxSequenceLength) / float64(chunkSizeTokens)))

	gtdChunkCount := int(cfg.BufferGuaranteedFraction * float64(totalChunks))
	if gtdChunkCount > totalChunks {
		gtdChunkCount = totalChunks
	}
	gtdRequestCount := gtdChunkCount / maxKVChunkCount
	if gtdRequestCount < 1 {
		gtdRequestCount = 1
	}
	gtdChunkCount = gtdRequestCount * maxKVChunkCount

	l := layout{
		chunkSizeTokens:   chunkSizeTokens,
		chunkSizeBytes:    chunkSizeBytes,
		totalChunks:       totalChunks,
		maxKVChunkCount:   maxKVChunkCount,
		maxRequests:       maxRequests,
		maxTokens:         maxTokens,
		maxSequenceLength: cfg.MaxSequenceLength,
		gtdRequestCount:   gtdRequestCount,
		gtdChunkCount:     gtdChunkCount,
		headsPerPartition: headsPerPartition,
		headDim:           headDim,
		tpSize:            tpSize,
	}

	if cfg.NumCudaGraphs != nil {
		counts, step := roundedsize.CudaGraphBuckets(maxRequests, *cfg.NumCudaGraphs, tpSize)
		l.cudaGraphRequestCounts = counts
		l.cudaGraphStepSize = step
		set := make(map[int]bool, len(counts))
		for _, c := range counts {
			set[c] = true
		}
		l.cudaGraphRequestCountsSet = set
	}

	return l
}

// bytesToMaxRequestsAndTokens derives max_requests and max_tokens from a
// byte budget, given the per-request sequence length cap.
func bytesToMaxRequestsAndTokens(nBytes, chunkSizeBytes, chunkSizeTokens, maxSequenceLength, tpSize int) (maxRequests, maxTokens int) {
	nTokens := float64(nBytes) / float64(chunkSizeBytes) * float64(chunkSizeTokens)
	nRequests := nTokens / float64(maxSequenceLength)
	maxRequests = roundedsize.Requests(int(nRequests), tpSize)
	maxTokens = roundedsize.Tokens(int(nTokens), tpSize)
	return
}
