package embedding

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"pdfchat/internal/adapter/retry"
	"pdfchat/internal/domain"
)

type fakeEino struct {
	dim     int
	calls   int
	batches []int
	err     error
}

func (f *fakeEino) EmbedStrings(ctx context.Context, texts []string, opts ...einoEmbedding.Option) ([][]float64, error) {
	f.calls++
	f.batches = append(f.batches, len(texts))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = make([]float64, f.dim)
		out[i][0] = float64(len(text))
	}
	return out, nil
}

func TestEinoEmbedderBatches(t *testing.T) {
	fake := &fakeEino{dim: 4}
	emb := NewEinoEmbedder(fake, Config{Model: "test", Dimension: 4, BatchSize: 2})

	vecs, err := emb.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vecs))
	}
	if vecs[2][0] != 3 {
		t.Errorf("vectors out of order: %v", vecs[2])
	}
	if len(fake.batches) != 3 || fake.batches[2] != 1 {
		t.Errorf("unexpected batches: %v", fake.batches)
	}
}

func TestEinoEmbedderDimensionMismatch(t *testing.T) {
	emb := NewEinoEmbedder(&fakeEino{dim: 3}, Config{Model: "test", Dimension: 4})

	_, err := emb.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Errorf("expected ErrEmbeddingService, got %v", err)
	}
}

func TestEinoEmbedderClassifiesErrors(t *testing.T) {
	emb := NewEinoEmbedder(&fakeEino{err: errors.New("error, status code: 429, rate limit reached")}, Config{Model: "test", Dimension: 4})

	_, err := emb.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestModelDimension(t *testing.T) {
	emb := NewEinoEmbedder(&fakeEino{}, Config{Model: "text-embedding-3-large"})
	if emb.Dimension() != 3072 {
		t.Errorf("expected 3072, got %d", emb.Dimension())
	}
}

func TestHashingEmbedderDeterministic(t *testing.T) {
	emb := NewHashingEmbedder(64)

	a, _ := emb.Embed(context.Background(), []string{"The capital of Freedonia is Fredonia City."})
	b, _ := emb.Embed(context.Background(), []string{"The capital of Freedonia is Fredonia City."})

	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("expected identical vectors for identical text")
		}
	}

	var norm float64
	for _, v := range a[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected unit vector, got norm %f", norm)
	}
}

func TestHashingEmbedderSimilarity(t *testing.T) {
	emb := NewHashingEmbedder(256)

	vecs, _ := emb.Embed(context.Background(), []string{
		"What is the capital of Freedonia?",
		"The capital of Freedonia is Fredonia City.",
		"Sylvania exports cheese and wool.",
	})

	near := dot(vecs[0], vecs[1])
	far := dot(vecs[0], vecs[2])
	if near <= far {
		t.Errorf("expected related text to score higher: near=%f far=%f", near, far)
	}
}

func TestHashingEmbedderEmptyText(t *testing.T) {
	emb := NewHashingEmbedder(16)
	vecs, err := emb.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs[0]) != 16 {
		t.Errorf("expected 16 dims, got %d", len(vecs[0]))
	}
}

func TestResilientRetries(t *testing.T) {
	fake := &fakeEino{dim: 2, err: errors.New("503 service unavailable")}
	emb := NewResilient(
		NewEinoEmbedder(fake, Config{Model: "test", Dimension: 2}),
		retry.Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond},
	)

	_, err := emb.Embed(context.Background(), []string{"a"})
	if !errors.Is(err, domain.ErrEmbeddingService) {
		t.Errorf("expected ErrEmbeddingService, got %v", err)
	}
	if fake.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", fake.calls)
	}
	if emb.Dimension() != 2 || emb.ModelName() != "test" {
		t.Error("resilient wrapper must report the wrapped model")
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
