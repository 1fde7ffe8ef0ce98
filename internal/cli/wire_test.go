package cli

import (
	"context"
	"strings"
	"testing"

	"pdfchat/config"
	"pdfchat/internal/usecase"
)

func offlineConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = "fs"
	cfg.Storage.Root = t.TempDir()
	cfg.Storage.CacheDir = t.TempDir()
	cfg.Embedding.Provider = "local"
	cfg.Embedding.Dimension = 256
	cfg.Chat.Provider = "echo"
	return cfg
}

func TestNewAppOfflineRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := offlineConfig(t)

	a, err := newApp(ctx, cfg, withEmbedder|withChat)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	result, err := a.engine.Ingest(ctx, usecase.IngestRequest{
		FileName: "freedonia.pdf",
		Pages: []string{
			"Page one.",
			"The capital of Freedonia is Fredonia City.",
			"Page three.",
		},
		PreferredName: "freedonia",
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.ShareURL != "http://localhost:8501/?pdf_index=freedonia" {
		t.Errorf("unexpected share url: %s", result.ShareURL)
	}

	// A fresh app reads the index back from the filesystem store.
	b, err := newApp(ctx, cfg, withEmbedder|withChat)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	session, err := b.engine.Open(ctx, "freedonia")
	if err != nil {
		t.Fatal(err)
	}
	answer, err := b.engine.Ask(ctx, session, "What is the capital of Freedonia?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer.Text, "Fredonia City") {
		t.Errorf("expected echoed context in answer, got %q", answer.Text)
	}
}

func TestNewAppWithoutServicesNeedsNoKeys(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.APIKeyEnv = "PDFCHAT_TEST_UNSET_KEY"
	cfg.Chat.Provider = "openai"
	cfg.Chat.APIKeyEnv = "PDFCHAT_TEST_UNSET_KEY"

	a, err := newApp(context.Background(), cfg, 0)
	if err != nil {
		t.Fatalf("storage-only commands should not need API keys: %v", err)
	}
	a.Close()

	if _, err := newApp(context.Background(), cfg, withEmbedder); err == nil {
		t.Error("expected missing API key to fail embedder setup")
	}
}

func TestNewAppRejectsUnknownProviders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		needs  capability
	}{
		{"storage", func(c *config.Config) { c.Storage.Backend = "s3" }, 0},
		{"embedding", func(c *config.Config) { c.Embedding.Provider = "nope" }, withEmbedder},
		{"chat", func(c *config.Config) { c.Chat.Provider = "nope" }, withChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := offlineConfig(t)
			tt.mutate(cfg)
			if _, err := newApp(context.Background(), cfg, tt.needs); err == nil {
				t.Error("expected error")
			}
		})
	}
}
