package draft

import "strings"

const (
	// MethodNgram proposes drafts by copying the continuation of an earlier
	// occurrence of the trailing n-gram.
	MethodNgram = "ngram"
	// MethodInferenceWithReference is an alias for MethodNgram.
	MethodInferenceWithReference = "inference_with_reference"
	// MethodNone never proposes drafts.
	MethodNone = "none"
)

const (
	DefaultMaxDraftTokens = 5
	DefaultMaxNgramSize   = 2
	DefaultMaxBatchSize   = 8
	DefaultMaxSeqLen      = 4096

	// MaxBufferTokens caps the flat per-proposer buffers: batch*seq_len
	// history tokens and batch*draft_tokens draft tokens.
	MaxBufferTokens = 1 << 30
)

// Config holds the fixed capacities a proposer is built with.
type Config struct {
	Method string `json:"method" yaml:"method"`

	// MaxDraftTokens is K, the most tokens proposed per slot per call.
	MaxDraftTokens int `json:"max_draft_tokens" yaml:"max_draft_tokens"`
	// MaxNgramSize is N, the longest trailing window tried.
	MaxNgramSize int `json:"max_ngram_size" yaml:"max_ngram_size"`

	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size"`
	MaxSeqLen    int `json:"max_seq_len" yaml:"max_seq_len"`

	// Workers bounds the goroutines used to evaluate slots. Values <= 1
	// evaluate slots sequentially on the calling goroutine.
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Method:         MethodNgram,
		MaxDraftTokens: DefaultMaxDraftTokens,
		MaxNgramSize:   DefaultMaxNgramSize,
		MaxBatchSize:   DefaultMaxBatchSize,
		MaxSeqLen:      DefaultMaxSeqLen,
		Workers:        1,
	}
}

// Validate reports the first invalid parameter as a *ConfigError.
func (c Config) Validate() error {
	switch normalizeMethod(c.Method) {
	case MethodNgram, MethodNone:
	default:
		return configError("method", c.Method, "is not a known draft method")
	}
	if c.MaxDraftTokens < 1 {
		return configError("max_draft_tokens", c.MaxDraftTokens, "must be >= 1")
	}
	if c.MaxNgramSize < 1 {
		return configError("max_ngram_size", c.MaxNgramSize, "must be >= 1")
	}
	if c.MaxBatchSize < 1 {
		return configError("max_batch_size", c.MaxBatchSize, "must be >= 1")
	}
	if c.MaxSeqLen < 1 {
		return configError("max_seq_len", c.MaxSeqLen, "must be >= 1")
	}
	if c.MaxSeqLen > MaxBufferTokens/c.MaxBatchSize {
		return configError("max_seq_len", c.MaxSeqLen, "times max_batch_size exceeds the buffer limit")
	}
	if c.MaxDraftTokens > MaxBufferTokens/c.MaxBatchSize {
		return configError("max_draft_tokens", c.MaxDraftTokens, "times max_batch_size exceeds the buffer limit")
	}
	return nil
}

func normalizeMethod(m string) string {
	switch strings.ToLower(strings.TrimSpace(m)) {
	case "", MethodNgram, MethodInferenceWithReference:
		return MethodNgram
	case MethodNone:
		return MethodNone
	default:
		return m
	}
}
