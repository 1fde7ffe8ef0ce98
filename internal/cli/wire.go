package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"pdfchat/config"
	"pdfchat/internal/adapter/chunker"
	"pdfchat/internal/adapter/embedding"
	"pdfchat/internal/adapter/llm"
	"pdfchat/internal/adapter/objectstore"
	"pdfchat/internal/adapter/pdf"
	"pdfchat/internal/adapter/retry"
	"pdfchat/internal/port"
	"pdfchat/internal/usecase"
)

// app holds the engine and the resources it must release.
type app struct {
	engine  *usecase.Engine
	closers []func() error
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// capability selects which remote services a command needs, so commands
// that only touch storage run without API keys.
type capability int

const (
	withEmbedder capability = 1 << iota
	withChat
)

// newApp builds an Engine from configuration.
func newApp(ctx context.Context, cfg *config.Config, needs capability) (*app, error) {
	a := &app{}

	objects, err := newObjectStore(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	var embedder port.Embedder
	if needs&withEmbedder != 0 {
		embedder, err = newEmbedder(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	var chat port.ChatModel
	if needs&withChat != 0 {
		chat, err = newChatModel(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.engine = usecase.NewEngine(usecase.Deps{
		Store:     objects,
		Embedder:  embedder,
		Chat:      chat,
		Chunker:   chunker.NewWindowChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		Extractor: pdf.NewExtractor(),
		Logger:    logger,
	}, usecase.Options{
		MaxPages:        cfg.Ingest.MaxPages,
		RejectOverLimit: cfg.Ingest.RejectOverLimit,
		NameAttempts:    cfg.Ingest.NameAttempts,
		IndexPrefix:     cfg.Storage.IndexPrefix,
		CacheDir:        cfg.Storage.CacheDir,
		CacheSize:       cfg.Storage.CacheSize,
		BatchSize:       cfg.Embedding.BatchSize,
		TopK:            cfg.Retrieve.TopK,
		SystemPrompt:    cfg.Chat.SystemPrompt,
		ContextTemplate: cfg.Chat.ContextTemplate,
		Policy:          usecase.PolicyForTurns(cfg.Chat.HistoryTurns),
		ShareURL:        cfg.ShareURL,
	})

	return a, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config, a *app) (port.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "fs", "":
		st, err := objectstore.NewFSStore(cfg.Storage.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to open object store: %w", err)
		}
		return st, nil
	case "redis":
		st, err := objectstore.NewRedisStore(ctx, objectstore.RedisConfig{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  os.Getenv(cfg.Storage.Redis.PasswordEnv),
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		return st, nil
	case "memory":
		return objectstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		emb, err := embedding.NewOpenAIEmbedder(ctx, embedding.Config{
			APIKey:    os.Getenv(cfg.Embedding.APIKeyEnv),
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		return embedding.NewResilient(emb, retryPolicy(cfg, cfg.Embedding.Timeout, cfg.Embedding.RequestsPerSecond)), nil
	case "local":
		return embedding.NewHashingEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func newChatModel(ctx context.Context, cfg *config.Config) (port.ChatModel, error) {
	switch cfg.Chat.Provider {
	case "openai":
		cm, err := llm.NewOpenAIChatModel(ctx, llm.ChatModelConfig{
			APIKey:  os.Getenv(cfg.Chat.APIKeyEnv),
			BaseURL: cfg.Chat.BaseURL,
			Model:   cfg.Chat.Model,
			Timeout: cfg.Chat.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return llm.NewResilient(cm, retryPolicy(cfg, cfg.Chat.Timeout, 0)), nil
	case "echo":
		return llm.NewEchoChatModel(), nil
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", cfg.Chat.Provider)
	}
}

func retryPolicy(cfg *config.Config, timeout time.Duration, rps float64) retry.Policy {
	return retry.Policy{
		MaxAttempts:      cfg.Retry.MaxAttempts,
		InitialBackoff:   cfg.Retry.InitialBackoff,
		MaxBackoff:       cfg.Retry.MaxBackoff,
		RateLimitBackoff: cfg.Retry.RateLimitBackoff,
		CallTimeout:      timeout,
		Limiter:          retry.NewLimiter(rps),
	}
}
