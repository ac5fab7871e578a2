package context

// ChunkAllocator owns the free pool of KV cache page indices, plus a
// reserved "dummy" index used as a sentinel for padded token slots. It is
// a classic arena: indices, not owning pointers, flow through the system.
//
// Free pages are tracked as a plain LIFO stack. There is no prefix
// caching here, so there is no need for LRU eviction order.
type ChunkAllocator struct {
	totalChunks   int
	gtdChunkCount int
	dummyChunkIdx int

	free []int
}

// NewChunkAllocator creates an allocator over totalChunks real page
// indices [0, totalChunks), reserving gtdChunkCount of them as the
// guaranteed pool. A dedicated dummy index (totalChunks) is carved out
// once, is never placed in the free pool, and is never released.
func NewChunkAllocator(totalChunks, gtdChunkCount int) *ChunkAllocator {
	a := &ChunkAllocator{
		totalChunks:   totalChunks,
		gtdChunkCount: gtdChunkCount,
		dummyChunkIdx: totalChunks,
	}
	a.Reset()
	return a
}

// DummyChunkIdx returns the sentinel page index assigned to padded token
// slots; writes there are harmless scratch space, never read back.
func (a *ChunkAllocator) DummyChunkIdx() int { return a.dummyChunkIdx }

// Avail returns the number of real pages currently free.
func (a *ChunkAllocator) Avail() int { return len(a.free) }

// Allocate draws n page indices from the free pool. In safe mode, the draw
// is refused if it would take the free count below gtdChunkCount. In
// unsafe mode, the guaranteed reserve may be drawn into. Returns (nil,
// false) if the request cannot be satisfied under the current mode.
func (a *ChunkAllocator) Allocate(n int, safe bool) ([]int, bool) {
	if n <= 0 {
		return nil, true
	}
	if safe {
		if len(a.free)-n < a.gtdChunkCount {
			return nil, false
		}
	} else if len(a.free) < n {
		return nil, false
	}

	// Pop from the tail (LIFO); ordering beyond that is unspecified.
	start := len(a.free) - n
	ids := append([]int(nil), a.free[start:]...)
	a.free = a.free[:start]
	return ids, true
}

// Release returns ids to the free pool. Double-release is a caller bug and
// is not guarded against.
func (a *ChunkAllocator) Release(ids []int) {
	a.free = append(a.free, ids...)
}

// Reset restores the full free pool (all real pages, dummy excluded).
func (a *ChunkAllocator) Reset() {
	a.free = make([]int, a.totalChunks)
	for i := range a.free {
		a.free[i] = i
	}
}
