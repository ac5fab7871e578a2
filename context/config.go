package context

// Config is the enumerated, immutable-after-construction configuration set
// for a dynamic inference context.
type Config struct {
	// ParamsDTypeBytes is the element size (in bytes) of the KV cache dtype
	// (e.g., 2 for float16/bfloat16, 4 for float32).
	ParamsDTypeBytes int

	// NumLayers is the number of transformer layers.
	NumLayers int

	// KVChannels is the hidden dimension per attention head.
	KVChannels int

	// NumAttentionHeads is the (un-partitioned) number of attention heads.
	NumAttentionHeads int

	// MaxSequenceLength is the per-request hard cap on prompt + generated
	// tokens.
	MaxSequenceLength int

	// BufferSizeGB is the total KV cache buffer size, in gigabytes.
	BufferSizeGB float64

	// ChunkSizeTokens is the page size, in tokens. Defaults to 256 if zero.
	ChunkSizeTokens int

	// BufferGuaranteedFraction is the fraction of chunks reserved so that
	// at least one request can always make progress.
	BufferGuaranteedFraction float64

	// BufferOverflowFactor, if set, scales the derived max_requests by this
	// factor, and the derived max_tokens by this factor divided by
	// roundedsize.BufferOverflowTokenDivisor (50).
	BufferOverflowFactor *float64

	// MaxRequestsOverride, if set, replaces the derived max_requests.
	MaxRequestsOverride *int

	// MaxTokensOverride, if set, replaces the derived max_tokens.
	MaxTokensOverride *int

	// TensorModelParallelSize is the tensor-parallel world size used for
	// rounding. Defaults to 1 if nil (this package does not discover TP
	// size from a runtime parallel-state — that is the owning engine's
	// responsibility).
	TensorModelParallelSize *int

	// NumCudaGraphs, if set, enables the graph-capture surface with this
	// many decode-only batch-size buckets.
	NumCudaGraphs *int

	// MaterializeOnlyLastTokenLogits mirrors the upstream flag of the same
	// name; it is not interpreted by this package (the logits tensor is
	// entirely the caller's/model's concern) but is retained on the config
	// so callers have a single source of truth for the setting.
	MaterializeOnlyLastTokenLogits bool
}

func (c Config) chunkSizeTokens() int {
	if c.ChunkSizeTokens > 0 {
		return c.ChunkSizeTokens
	}
	return 256
}

func (c Config) tpSize() int {
	if c.TensorModelParallelSize != nil && *c.TensorModelParallelSize > 0 {
		return *c.TensorModelParallelSize
	}
	return 1
}

func (c Config) headsPerPartition() int {
	tp := c.tpSize()
	return c.NumAttentionHeads / tp
}
