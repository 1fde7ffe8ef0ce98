package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pdfchat/config"
	"pdfchat/internal/adapter/embedding"
	"pdfchat/internal/adapter/store"
	"pdfchat/internal/port"
)

func main() {
	dir := flag.String("dir", ".", "Working directory holding pdfchat.yaml and the index cache")
	id := flag.String("id", "", "Index name (must have been opened once so it is cached locally)")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 0, "Number of results (default from config)")
	runs := flag.Int("n", 20, "Number of timed search runs")
	flag.Parse()

	if *query == "" || *id == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -id my-doc -q \"query\" [-n 20] [-k 2]")
		fmt.Println("\nReports:")
		fmt.Println("  1. Index load time and size")
		fmt.Println("  2. Query embedding latency")
		fmt.Println("  3. Nearest-neighbor search latency (min / p50 / p95 / max)")
		fmt.Println("  4. Similarity of the top matches")
		os.Exit(1)
	}

	if *runs < 1 {
		*runs = 1
	}

	ctx := context.Background()

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ResolvePaths(*dir)

	k := cfg.Retrieve.TopK
	if *topK > 0 {
		k = *topK
	}

	embedder, err := setupEmbedding(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding not available: %v\n", err)
		os.Exit(1)
	}

	indexes := store.NewIndexStore(cfg.Embedding.BatchSize)

	loadStart := time.Now()
	ix, err := indexes.Load(ctx, filepath.Join(cfg.Storage.CacheDir, *id))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading index (run 'pdfchat open %s' first): %v\n", *id, err)
		os.Exit(1)
	}
	loadTime := time.Since(loadStart)

	if ix.Dimension() != embedder.Dimension() {
		fmt.Fprintf(os.Stderr, "Index was built with %s (%d dims) but config uses %s (%d dims)\n",
			ix.Model(), ix.Dimension(), embedder.ModelName(), embedder.Dimension())
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Index:     %s (%d chunks)\n", *id, ix.Len())
	fmt.Printf("Model:     %s\n", ix.Model())
	fmt.Printf("Dimension: %d\n", ix.Dimension())
	fmt.Printf("Load time: %s\n", loadTime)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	embedStart := time.Now()
	queryVec, err := embedder.Embed(ctx, []string{*query})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Query embedded in %s\n\n", time.Since(embedStart))

	timings := make([]time.Duration, 0, *runs)
	var results []scored
	for i := 0; i < *runs; i++ {
		start := time.Now()
		found, err := ix.Search(queryVec[0], k)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		timings = append(timings, time.Since(start))

		if results == nil {
			for _, r := range found {
				results = append(results, scored{page: r.Chunk.Page, offset: r.Chunk.Offset, text: r.Chunk.Text, similarity: 1 - r.Distance})
			}
		}
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := []rune(r.text)
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		totalScore += r.similarity

		rating := "LOW"
		if r.similarity > 0.7 {
			rating = "HIGH"
		} else if r.similarity > 0.5 {
			rating = "GOOD"
		} else if r.similarity > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] page %d, offset %d\n", i+1, rating, r.similarity, r.page, r.offset)
		fmt.Printf("   %s\n\n", strings.ReplaceAll(string(preview), "\n", " "))
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("SEARCH LATENCY (%d runs):\n", len(timings))
	sort.Slice(timings, func(i, j int) bool { return timings[i] < timings[j] })
	fmt.Printf("  min: %s\n", timings[0])
	fmt.Printf("  p50: %s\n", percentile(timings, 0.50))
	fmt.Printf("  p95: %s\n", percentile(timings, 0.95))
	fmt.Printf("  max: %s\n", timings[len(timings)-1])

	if len(results) > 0 {
		fmt.Printf("\nQUALITY METRICS:\n")
		fmt.Printf("  Average similarity: %.3f\n", totalScore/float64(len(results)))
		fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].similarity)
	}
}

type scored struct {
	page       int
	offset     int
	text       string
	similarity float64
}

// percentile expects sorted input.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func setupEmbedding(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "local":
		return embedding.NewHashingEmbedder(cfg.Embedding.Dimension), nil
	case "openai":
		emb, err := embedding.NewOpenAIEmbedder(ctx, embedding.Config{
			APIKey:    os.Getenv(cfg.Embedding.APIKeyEnv),
			BaseURL:   cfg.Embedding.BaseURL,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("embedder init failed: %w", err)
		}
		return emb, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Embedding.Provider)
	}
}
