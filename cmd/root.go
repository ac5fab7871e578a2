// cmd/root.go
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	dynctx "github.com/inference-sim/dynamic-context/context"
)

var (
	logLevel   string
	configPath string

	paramsDtypeBytes  int
	numLayers         int
	kvChannels        int
	numAttentionHeads int
	maxSeqLen         int
	bufferSizeGB      float64
	chunkSizeTokens   int
	gtdFraction       float64
	tpSize            int
	numCudaGraphs     int

	numRequests  int
	promptTokens int
	genTokens    int
	seed         int64
)

var rootCmd = &cobra.Command{
	Use:   "dynctx",
	Short: "Inspect and drive a dynamic inference context",
}

var sizesCmd = &cobra.Command{
	Use:   "sizes",
	Short: "Print the capacity derived from a configuration, without running anything",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg := resolveConfig()
		c := dynctx.New(cfg)

		fmt.Printf("max_requests:        %d\n", c.MaxRequests())
		fmt.Printf("max_tokens:           %d\n", c.MaxTokens())
		fmt.Printf("total_chunks:         %d\n", c.TotalChunks())
		fmt.Printf("gtd_request_count:    %d\n", c.GuaranteedRequestCount())
		fmt.Printf("gtd_chunk_count:      %d\n", c.GuaranteedChunkCount())
		if counts, step := c.GraphCaptureBuckets(); counts != nil {
			fmt.Printf("cuda_graph_buckets:   %v (step %d)\n", counts, step)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scripted admission/decode loop against a dynamic inference context",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg := resolveConfig()
		c := dynctx.New(cfg)

		logrus.WithFields(logrus.Fields{
			"max_requests": c.MaxRequests(),
			"max_tokens":   c.MaxTokens(),
		}).Info("constructed dynamic inference context")

		runDemoLoop(c, numRequests, promptTokens, genTokens, seed)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func resolveConfig() dynctx.Config {
	if configPath != "" {
		return loadConfig(configPath)
	}

	var cudaGraphs *int
	if numCudaGraphs > 0 {
		cudaGraphs = &numCudaGraphs
	}

	return dynctx.Config{
		ParamsDTypeBytes:         paramsDtypeBytes,
		NumLayers:                numLayers,
		KVChannels:               kvChannels,
		NumAttentionHeads:        numAttentionHeads,
		MaxSequenceLength:        maxSeqLen,
		BufferSizeGB:             bufferSizeGB,
		ChunkSizeTokens:          chunkSizeTokens,
		BufferGuaranteedFraction: gtdFraction,
		TensorModelParallelSize:  &tpSize,
		NumCudaGraphs:            cudaGraphs,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML dynamic context config; overrides the scalar flags below")

	for _, c := range []*cobra.Command{sizesCmd, runCmd} {
		c.Flags().IntVar(&paramsDtypeBytes, "params-dtype-bytes", 2, "KV cache element size in bytes")
		c.Flags().IntVar(&numLayers, "num-layers", 32, "Number of transformer layers")
		c.Flags().IntVar(&kvChannels, "kv-channels", 128, "Hidden dimension per attention head")
		c.Flags().IntVar(&numAttentionHeads, "num-attention-heads", 32, "Number of attention heads")
		c.Flags().IntVar(&maxSeqLen, "max-sequence-length", 4096, "Per-request hard cap on prompt + generated tokens")
		c.Flags().Float64Var(&bufferSizeGB, "buffer-size-gb", 8.0, "Total KV cache buffer size in gigabytes")
		c.Flags().IntVar(&chunkSizeTokens, "chunk-size-tokens", 256, "Page size in tokens")
		c.Flags().Float64Var(&gtdFraction, "buffer-guaranteed-fraction", 0.1, "Fraction of chunks reserved for guaranteed progress")
		c.Flags().IntVar(&tpSize, "tensor-parallel-size", 1, "Tensor-parallel world size")
		c.Flags().IntVar(&numCudaGraphs, "num-cuda-graphs", 0, "Number of decode-only graph-capture buckets (0 disables)")
	}

	runCmd.Flags().IntVar(&numRequests, "requests", 8, "Number of synthetic requests to admit")
	runCmd.Flags().IntVar(&promptTokens, "prompt-tokens", 32, "Prompt length per synthetic request")
	runCmd.Flags().IntVar(&genTokens, "gen-tokens", 16, "Tokens to generate per synthetic request")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for synthetic token ids")

	rootCmd.AddCommand(sizesCmd, runCmd)
}
