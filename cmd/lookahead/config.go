package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration file (~/.config/lookahead/config.yaml).
// Numeric fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Proposer
	Method         string `yaml:"method"`
	MaxDraftTokens *int64 `yaml:"max_draft_tokens"`
	MaxNgramSize   *int64 `yaml:"max_ngram_size"`
	MaxBatchSize   *int64 `yaml:"max_batch_size"`
	MaxSeqLen      *int64 `yaml:"max_seq_len"`
	Workers        *int64 `yaml:"workers"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

// fileConfig is loaded once before any command runs.
var fileConfig Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lookahead", "config.yaml")
}

// applyProposerConfig applies config file defaults to the proposer flag
// variables when the corresponding CLI flag was not explicitly set.
func applyProposerConfig(c *cli.Command, cfg Config) {
	if cfg.Method != "" && !c.IsSet("method") {
		method = cfg.Method
	}
	if cfg.MaxDraftTokens != nil && !c.IsSet("max-draft-tokens") {
		maxDraftTokens = *cfg.MaxDraftTokens
	}
	if cfg.MaxNgramSize != nil && !c.IsSet("max-ngram-size") {
		maxNgramSize = *cfg.MaxNgramSize
	}
	if cfg.MaxBatchSize != nil && !c.IsSet("max-batch-size") {
		maxBatchSize = *cfg.MaxBatchSize
	}
	if cfg.MaxSeqLen != nil && !c.IsSet("max-seq-len") {
		maxSeqLen = *cfg.MaxSeqLen
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		workers = *cfg.Workers
	}
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyProposerConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	return loadConfigFile(configPath())
}

func loadConfigFile(path string) Config {
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
