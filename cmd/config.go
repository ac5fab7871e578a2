package cmd

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	dynctx "github.com/inference-sim/dynamic-context/context"
)

// FileConfig is the on-disk YAML shape for a dynamic context configuration.
// All fields must be listed to satisfy KnownFields(true) strict parsing —
// a typo'd key is a config bug, not a silently-ignored field.
type FileConfig struct {
	ParamsDTypeBytes               int      `yaml:"params_dtype_bytes"`
	NumLayers                      int      `yaml:"num_layers"`
	KVChannels                     int      `yaml:"kv_channels"`
	NumAttentionHeads              int      `yaml:"num_attention_heads"`
	MaxSequenceLength              int      `yaml:"max_sequence_length"`
	BufferSizeGB                   float64  `yaml:"buffer_size_gb"`
	ChunkSizeTokens                int      `yaml:"chunk_size_tokens"`
	BufferGuaranteedFraction       float64  `yaml:"buffer_guaranteed_fraction"`
	BufferOverflowFactor           *float64 `yaml:"buffer_overflow_factor"`
	MaxRequestsOverride            *int     `yaml:"max_requests_override"`
	MaxTokensOverride              *int     `yaml:"max_tokens_override"`
	TensorModelParallelSize        *int     `yaml:"tensor_model_parallel_size"`
	NumCudaGraphs                  *int     `yaml:"num_cuda_graphs"`
	MaterializeOnlyLastTokenLogits bool     `yaml:"materialize_only_last_token_logits"`
}

// loadConfig reads and strictly decodes a FileConfig from path, then
// converts it to a context.Config.
func loadConfig(path string) dynctx.Config {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Fatalf("failed to read config file %s: %v", path, err)
	}

	var fc FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		logrus.Fatalf("failed to parse config YAML: %v", err)
	}

	return dynctx.Config{
		ParamsDTypeBytes:               fc.ParamsDTypeBytes,
		NumLayers:                      fc.NumLayers,
		KVChannels:                     fc.KVChannels,
		NumAttentionHeads:              fc.NumAttentionHeads,
		MaxSequenceLength:              fc.MaxSequenceLength,
		BufferSizeGB:                   fc.BufferSizeGB,
		ChunkSizeTokens:                fc.ChunkSizeTokens,
		BufferGuaranteedFraction:       fc.BufferGuaranteedFraction,
		BufferOverflowFactor:           fc.BufferOverflowFactor,
		MaxRequestsOverride:            fc.MaxRequestsOverride,
		MaxTokensOverride:              fc.MaxTokensOverride,
		TensorModelParallelSize:        fc.TensorModelParallelSize,
		NumCudaGraphs:                  fc.NumCudaGraphs,
		MaterializeOnlyLastTokenLogits: fc.MaterializeOnlyLastTokenLogits,
	}
}
