package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lookahead/internal/draft"
)

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "method: none\nmax_draft_tokens: 3\nworkers: 4\nlog_level: debug\nserver_address: 0.0.0.0:9000\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := loadConfigFile(path)
	if cfg.Method != "none" || cfg.LogLevel != "debug" || cfg.ServerAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.MaxDraftTokens == nil || *cfg.MaxDraftTokens != 3 {
		t.Fatalf("max_draft_tokens: got %v want 3", cfg.MaxDraftTokens)
	}
	if cfg.MaxNgramSize != nil {
		t.Fatalf("max_ngram_size should be unset, got %d", *cfg.MaxNgramSize)
	}
}

func TestLoadConfigMissingOrInvalid(t *testing.T) {
	dir := t.TempDir()
	if cfg := loadConfigFile(filepath.Join(dir, "missing.yaml")); cfg.MaxDraftTokens != nil || cfg.Method != "" {
		t.Fatalf("expected zero config for missing file, got %+v", cfg)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("max_draft_tokens: [oops\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if cfg := loadConfigFile(bad); cfg.MaxDraftTokens != nil {
		t.Fatalf("expected zero config for invalid file, got %+v", cfg)
	}
}

func TestApplyProposerConfigRespectsFlags(t *testing.T) {
	three, eight := int64(3), int64(8)
	file := Config{Method: "none", MaxDraftTokens: &three, MaxNgramSize: &eight}

	var got draft.Config
	cmd := &cli.Command{
		Name:  "test",
		Flags: proposerFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyProposerConfig(cmd, file)
			got = proposerConfig()
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"test", "--max-draft-tokens", "7"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got.MaxDraftTokens != 7 {
		t.Fatalf("explicit flag should win: got %d want 7", got.MaxDraftTokens)
	}
	if got.MaxNgramSize != 8 {
		t.Fatalf("config file should fill unset flag: got %d want 8", got.MaxNgramSize)
	}
	if got.Method != "none" {
		t.Fatalf("method: got %q want none", got.Method)
	}
	if got.MaxBatchSize != draft.DefaultMaxBatchSize {
		t.Fatalf("max batch size: got %d want %d", got.MaxBatchSize, draft.DefaultMaxBatchSize)
	}
}
