// Package roundedsize implements the rounding and bucketing arithmetic used
// to size the dynamic inference context: request/token capacity rounding and
// cuda-graph decode bucket construction. Kept separate from context because
// these are pure functions exercised both at construction time and by the
// graph-capture surface.
package roundedsize

import "math"

// TokenRounder is the base multiple that derived max-token counts are
// rounded up to, before being further adjusted for tensor-parallel size.
const TokenRounder = 64

// RequestRounder is the base multiple that derived max-request counts are
// rounded up to, before being further adjusted for tensor-parallel size.
const RequestRounder = 4

// BufferOverflowTokenDivisor is the empirical heuristic factor applied to
// the token dimension under buffer_overflow_factor, reflecting that few
// requests are simultaneously in prefill at any given step.
const BufferOverflowTokenDivisor = 50.0

// CudaGraphStepRounder is the base multiple that cuda-graph decode batch
// size steps are rounded up to.
const CudaGraphStepRounder = 8

// UpToMultiple rounds value up to the nearest positive multiple of base.
func UpToMultiple(value, base int) int {
	if base <= 0 {
		return value
	}
	return base * int(math.Ceil(float64(value)/float64(base)))
}

// Tokens rounds value up to a multiple of TokenRounder that is itself a
// multiple of tpSize.
func Tokens(value, tpSize int) int {
	return UpToMultiple(value, tpRounder(TokenRounder, tpSize))
}

// Requests rounds value up to a multiple of RequestRounder that is itself a
// multiple of tpSize.
func Requests(value, tpSize int) int {
	return UpToMultiple(value, tpRounder(RequestRounder, tpSize))
}

// tpRounder returns the smallest multiple of tpSize that is >= base.
func tpRounder(base, tpSize int) int {
	if tpSize <= 1 {
		return base
	}
	return int(math.Ceil(float64(base)/float64(tpSize))) * tpSize
}

// CudaGraphBuckets builds a descending list of decode-only batch sizes for
// graph capture: numCudaGraphs (clamped to [1, maxRequests]) approximately
// equal steps, each rounded up to a multiple of CudaGraphStepRounder and of
// tpSize, always including maxRequests. Returns the bucket list (descending)
// and the step size used to build it.
func CudaGraphBuckets(maxRequests, numCudaGraphs, tpSize int) ([]int, int) {
	numCudaGraphs = clamp(numCudaGraphs, 1, maxRequests)

	stepSize := float64(maxRequests) / float64(numCudaGraphs)
	step := CudaGraphStepRounder * int(math.Ceil(float64(int(stepSize))/CudaGraphStepRounder))
	step = int(math.Ceil(float64(step)/float64(tpRounderBare(tpSize)))) * tpRounderBare(tpSize)

	if numCudaGraphs == 1 {
		return []int{maxRequests}, step
	}

	var counts []int
	for v := step; v < maxRequests; v += step {
		counts = append(counts, v)
	}
	if len(counts) == 0 || counts[len(counts)-1] != maxRequests {
		counts = append(counts, maxRequests)
	}
	// Reverse to descending order.
	for i, j := 0, len(counts)-1; i < j; i, j = i+1, j-1 {
		counts[i], counts[j] = counts[j], counts[i]
	}
	return counts, step
}

func tpRounderBare(tpSize int) int {
	if tpSize <= 0 {
		return 1
	}
	return tpSize
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
