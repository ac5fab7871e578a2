package context

// GraphCaptureBuckets returns the descending list of decode-only active
// request counts a caller should capture CUDA graphs for, and the step
// size those counts are rounded to. Returns (nil, 0) if graph capture was
// not configured (Config.NumCudaGraphs == nil).
func (c *Context) GraphCaptureBuckets() (counts []int, step int) {
	return c.layout.cudaGraphRequestCounts, c.layout.cudaGraphStepSize
}

// IsGraphCaptureBucket reports whether n is one of the configured
// decode-only bucket sizes.
func (c *Context) IsGraphCaptureBucket(n int) bool {
	return c.layout.cudaGraphRequestCountsSet[n]
}

// WarmupGraphs calls fn once per configured bucket, in descending order,
// with InitializeAttentionState primed for that bucket's request count via
// numWarmupRequests. Intended for a one-time graph-capture pass at startup
// before any real traffic is admitted.
func (c *Context) WarmupGraphs(fn func(bucketRequestCount int) error) error {
	for _, n := range c.layout.cudaGraphRequestCounts {
		bucket := n
		if err := c.InitializeAttentionState(&bucket); err != nil {
			return err
		}
		if err := fn(bucket); err != nil {
			return err
		}
	}
	c.ResetAttentionState()
	return nil
}
