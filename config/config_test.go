package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ingest.ChunkSize != 10000 {
		t.Errorf("expected ChunkSize=10000, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 1000 {
		t.Errorf("expected ChunkOverlap=1000, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Ingest.MaxPages != 100 {
		t.Errorf("expected MaxPages=100, got %d", cfg.Ingest.MaxPages)
	}
	if cfg.Retrieve.TopK != 2 {
		t.Errorf("expected TopK=2, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Storage.IndexPrefix != "index" {
		t.Errorf("expected IndexPrefix=index, got %s", cfg.Storage.IndexPrefix)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pdfchat.yaml")

	content := `
ingest:
  chunk_size: 2000
  chunk_overlap: 200
retrieve:
  top_k: 4
chat:
  timeout: 15s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Ingest.ChunkSize != 2000 {
		t.Errorf("expected ChunkSize=2000, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("expected ChunkOverlap=200, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieve.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Chat.Timeout != 15*time.Second {
		t.Errorf("expected Timeout=15s, got %s", cfg.Chat.Timeout)
	}
	// Untouched sections keep their defaults
	if cfg.Ingest.MaxPages != 100 {
		t.Errorf("expected MaxPages=100, got %d", cfg.Ingest.MaxPages)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".pdfchat"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".pdfchat", "config.yaml")

	content := `
storage:
  backend: redis
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Backend != "redis" {
		t.Errorf("expected Backend=redis, got %s", cfg.Storage.Backend)
	}
}

func TestShareURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.PublicURL = "https://chat.example.org"

	got := cfg.ShareURL("my-doc")
	if got != "https://chat.example.org/?pdf_index=my-doc" {
		t.Errorf("unexpected share url: %s", got)
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResolvePaths("/srv/app")

	if cfg.Storage.Root != filepath.Join("/srv/app", "bucket") {
		t.Errorf("unexpected root: %s", cfg.Storage.Root)
	}
	if cfg.Storage.CacheDir != filepath.Join("/srv/app", ".pdfchat", "cache") {
		t.Errorf("unexpected cache dir: %s", cfg.Storage.CacheDir)
	}
}
