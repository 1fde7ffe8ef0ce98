package embedding

import (
	"context"
	"fmt"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"pdfchat/internal/adapter/retry"
	"pdfchat/internal/domain"
)

// Config configures an OpenAI-compatible embedding endpoint.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
}

// EinoEmbedder adapts an eino embedding component to port.Embedder.
type EinoEmbedder struct {
	embedder  einoEmbedding.Embedder
	model     string
	dimension int
	batchSize int
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI embeddings API.
func NewOpenAIEmbedder(ctx context.Context, cfg Config) (*EinoEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for embedding model %s", cfg.Model)
	}

	emb, err := openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return NewEinoEmbedder(emb, cfg), nil
}

func NewEinoEmbedder(emb einoEmbedding.Embedder, cfg Config) *EinoEmbedder {
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = modelDimension(cfg.Model)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &EinoEmbedder{
		embedder:  emb,
		model:     cfg.Model,
		dimension: dimension,
		batchSize: batchSize,
	}
}

func (e *EinoEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := e.embedder.EmbedStrings(ctx, texts[i:end])
		if err != nil {
			return nil, retry.Classify(domain.ErrEmbeddingService, "embed", err)
		}
		if len(vectors) != end-i {
			return nil, &domain.ServiceError{
				Kind: domain.ErrEmbeddingService,
				Op:   "embed",
				Err:  fmt.Errorf("expected %d vectors, got %d", end-i, len(vectors)),
			}
		}

		for _, vec := range vectors {
			if len(vec) != e.dimension {
				return nil, &domain.ServiceError{
					Kind: domain.ErrEmbeddingService,
					Op:   "embed",
					Err:  fmt.Errorf("vector dimension mismatch: expected %d, got %d", e.dimension, len(vec)),
				}
			}
			out := make([]float32, len(vec))
			for j, v := range vec {
				out[j] = float32(v)
			}
			all = append(all, out)
		}
	}

	return all, nil
}

func (e *EinoEmbedder) Dimension() int {
	return e.dimension
}

func (e *EinoEmbedder) ModelName() string {
	return e.model
}

func modelDimension(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	default:
		return 1536
	}
}
