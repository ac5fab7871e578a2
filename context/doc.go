// Package context implements a dynamic inference context: the
// scheduler/bookkeeping subsystem behind in-flight continuous batching
// over a paged KV cache, for a single model-parallel transformer
// replica.
//
// # Reading Guide
//
// Start with these files to understand the core data structures:
//   - context.go: the Context type, its parallel-array tables, and construction
//   - layout.go: the derivation of max_requests/max_tokens/chunk geometry from Config
//   - chunk_allocator.go: the page (chunk) allocator and its guaranteed-reserve mode
//
// Then the operations, roughly in call order for one decoding step:
//   - admission.go: AddRequest, admitting a new prompt into a free table slot
//   - attention_state.go: InitializeAttentionState, building the per-step attention inputs
//   - cache.go: AppendKeyValueCache / KeyValueCache, the paged KV read/write path
//   - scheduler.go: UpdateRequests, the retire/pause/resume step run after sampling
//   - logits.go: LastTokenLogits / CalculateLogProbs
//   - rotary.go: ApplyRotaryEmbQuery / ApplyRotaryEmbKey
//   - graph_capture.go: CUDA-graph-capture bucket accessors and warmup (the buckets are built in layout.go)
//
// # Architecture
//
// context/kv/ holds the paged memory buffer itself, kept separate from
// the bookkeeping tables so its addressing scheme can change (e.g. a
// quantized cache) without touching scheduler logic.
//
// # Concurrency
//
// A Context is not safe for concurrent use. All mutating operations are
// called from a single logical driver loop, never concurrently with one
// another.
package context
