package cmd

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	dynctx "github.com/inference-sim/dynamic-context/context"
)

// runDemoLoop admits n synthetic requests, each with the given prompt and
// generation lengths, then steps the context to completion: every active
// request emits a random token each step, until none remain unfinished.
// This exercises admission, attention-state, and the scheduler update
// together; it does not write to the KV cache.
func runDemoLoop(c *dynctx.Context, n, promptTokens, genTokens int, seed int64) {
	rng := rand.New(rand.NewSource(seed))

	for i := 0; i < n; i++ {
		tokens := make([]int, promptTokens)
		for j := range tokens {
			tokens[j] = rng.Intn(32000)
		}
		toGen := genTokens
		if _, err := c.AddRequest(i, tokens, &toGen); err != nil {
			logrus.WithError(err).WithField("request_id", i).Warn("admission refused")
			break
		}
	}

	step := 0
	for c.HasUnfinishedRequests() {
		if err := c.InitializeAttentionState(nil); err != nil {
			logrus.WithError(err).Fatal("failed to initialize attention state")
		}

		activeLengths := c.GetActiveSequenceLengths()
		maxLengths := c.GetMaxSequenceLengths()
		mask := make([]bool, len(activeLengths))
		newTokens := make([]int, len(activeLengths))
		for i := range activeLengths {
			newTokens[i] = rng.Intn(32000)
			mask[i] = activeLengths[i]+1 < maxLengths[i]
		}

		c.UpdateRequests(mask, newTokens)

		step++
		logrus.WithFields(logrus.Fields{
			"step":          step,
			"decode_only":   c.IsDecodeOnly(),
			"active_tokens": len(activeLengths),
		}).Debug("stepped dynamic inference context")
	}

	logrus.WithField("steps", step).Info("all requests finished")
}
