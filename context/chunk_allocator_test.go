package context

import "testing"

func TestChunkAllocatorSafeRefusesGuaranteedPool(t *testing.T) {
	a := NewChunkAllocator(8, 4)

	ids, ok := a.Allocate(4, true)
	if !ok || len(ids) != 4 {
		t.Fatalf("expected to allocate 4 safely, got ids=%v ok=%v", ids, ok)
	}
	if a.Avail() != 4 {
		t.Fatalf("avail = %d, want 4", a.Avail())
	}

	// Drawing even one more in safe mode would dip below the guaranteed
	// reserve of 4.
	if _, ok := a.Allocate(1, true); ok {
		t.Fatalf("safe allocate should have been refused at the guaranteed boundary")
	}

	// Unsafe mode may dip into the reserve.
	ids, ok = a.Allocate(1, false)
	if !ok || len(ids) != 1 {
		t.Fatalf("expected unsafe allocate to succeed, got ids=%v ok=%v", ids, ok)
	}
	if a.Avail() != 3 {
		t.Fatalf("avail = %d, want 3", a.Avail())
	}
}

func TestChunkAllocatorReleaseAndReset(t *testing.T) {
	a := NewChunkAllocator(8, 0)
	ids, ok := a.Allocate(8, true)
	if !ok {
		t.Fatal("expected to allocate all 8 chunks")
	}
	if a.Avail() != 0 {
		t.Fatalf("avail = %d, want 0", a.Avail())
	}
	a.Release(ids)
	if a.Avail() != 8 {
		t.Fatalf("avail after release = %d, want 8", a.Avail())
	}

	a.Allocate(5, true)
	a.Reset()
	if a.Avail() != 8 {
		t.Fatalf("avail after reset = %d, want 8", a.Avail())
	}
}

func TestChunkAllocatorDummyNeverAllocated(t *testing.T) {
	a := NewChunkAllocator(4, 0)
	dummy := a.DummyChunkIdx()
	if dummy != 4 {
		t.Fatalf("dummy chunk idx = %d, want 4", dummy)
	}
	ids, ok := a.Allocate(4, false)
	if !ok {
		t.Fatal("expected full allocation to succeed")
	}
	for _, id := range ids {
		if id == dummy {
			t.Fatalf("dummy chunk %d should never be allocated from the free pool", dummy)
		}
	}
}

func TestChunkAllocatorFailsWhenExhausted(t *testing.T) {
	a := NewChunkAllocator(2, 0)
	if _, ok := a.Allocate(3, false); ok {
		t.Fatal("expected allocate(3) over a 2-chunk pool to fail")
	}
}
