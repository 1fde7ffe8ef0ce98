package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
	"pdfchat/internal/domain"
	"pdfchat/internal/port"
)

var (
	bucketMeta   = []byte("meta")
	bucketChunks = []byte("chunks")

	keyModel     = []byte("model")
	keyDimension = []byte("dimension")
	keyCount     = []byte("count")
)

// VectorIndex maps every chunk of one document to its embedding.
// It is immutable once built or loaded.
type VectorIndex struct {
	chunks    []domain.Chunk
	vectors   [][]float32
	model     string
	dimension int
}

func (ix *VectorIndex) Len() int { return len(ix.chunks) }

func (ix *VectorIndex) Dimension() int { return ix.dimension }

func (ix *VectorIndex) Model() string { return ix.model }

// Search returns the k chunks nearest to query by cosine distance, nearest first.
// Equal distances keep reading order.
func (ix *VectorIndex) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", ix.dimension, len(query))
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	scored := make([]domain.ScoredChunk, len(ix.chunks))
	for i, chunk := range ix.chunks {
		scored[i] = domain.ScoredChunk{
			Chunk:    chunk,
			Distance: 1 - cosineSimilarity(query, ix.vectors[i]),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Distance != scored[j].Distance {
			return scored[i].Distance < scored[j].Distance
		}
		return scored[i].Chunk.Seq < scored[j].Chunk.Seq
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// IndexStore builds, persists, loads and queries vector indexes.
type IndexStore struct {
	batchSize int
}

func NewIndexStore(batchSize int) *IndexStore {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IndexStore{batchSize: batchSize}
}

// Build embeds every chunk in batches. progress, when non-nil, receives the
// number of chunks embedded so far.
func (s *IndexStore) Build(ctx context.Context, chunks []domain.Chunk, embedder port.Embedder, progress func(done, total int)) (*VectorIndex, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	ix := &VectorIndex{
		chunks:    append([]domain.Chunk(nil), chunks...),
		vectors:   make([][]float32, 0, len(chunks)),
		model:     embedder.ModelName(),
		dimension: embedder.Dimension(),
	}

	for i := 0; i < len(chunks); i += s.batchSize {
		end := i + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j, c := range chunks[i:end] {
			texts[j] = c.Text
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		}
		for _, v := range vectors {
			if len(v) != ix.dimension {
				return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", ix.dimension, len(v))
			}
		}
		ix.vectors = append(ix.vectors, vectors...)

		if progress != nil {
			progress(end, len(chunks))
		}
	}

	return ix, nil
}

type storedChunk struct {
	Chunk  domain.Chunk `json:"c"`
	Vector []float32    `json:"v"`
}

// Persist writes the index to dir/index.db, replacing any previous file.
func (s *IndexStore) Persist(ctx context.Context, ix *VectorIndex, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create index dir: %w", err)
	}

	path := filepath.Join(dir, domain.IndexFile)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyModel, []byte(ix.model)); err != nil {
			return err
		}
		if err := meta.Put(keyDimension, []byte(strconv.Itoa(ix.dimension))); err != nil {
			return err
		}
		if err := meta.Put(keyCount, []byte(strconv.Itoa(len(ix.chunks)))); err != nil {
			return err
		}

		b, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return err
		}
		for i, chunk := range ix.chunks {
			data, err := json.Marshal(storedChunk{Chunk: chunk, Vector: ix.vectors[i]})
			if err != nil {
				return err
			}
			if err := b.Put(itob(i), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to write index: %w", err)
	}
	return db.Close()
}

// Load reads dir/index.db back into memory.
func (s *IndexStore) Load(ctx context.Context, dir string) (*VectorIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, domain.IndexFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index at %s: %w", dir, domain.ErrNotFound)
		}
		return nil, err
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	defer db.Close()

	ix := &VectorIndex{}
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		b := tx.Bucket(bucketChunks)
		if meta == nil || b == nil {
			return errors.New("missing buckets")
		}

		ix.model = string(meta.Get(keyModel))
		dim, err := strconv.Atoi(string(meta.Get(keyDimension)))
		if err != nil || dim <= 0 {
			return fmt.Errorf("bad dimension %q", meta.Get(keyDimension))
		}
		ix.dimension = dim
		count, err := strconv.Atoi(string(meta.Get(keyCount)))
		if err != nil {
			return fmt.Errorf("bad count %q", meta.Get(keyCount))
		}

		err = b.ForEach(func(k, v []byte) error {
			var stored storedChunk
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("chunk %d: %w", btoi(k), err)
			}
			if len(stored.Vector) != dim {
				return fmt.Errorf("chunk %d: vector has %d dims, want %d", btoi(k), len(stored.Vector), dim)
			}
			ix.chunks = append(ix.chunks, stored.Chunk)
			ix.vectors = append(ix.vectors, stored.Vector)
			return nil
		})
		if err != nil {
			return err
		}

		if len(ix.chunks) != count {
			return fmt.Errorf("expected %d chunks, found %d", count, len(ix.chunks))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}

	return ix, nil
}

// Query embeds text and returns its k nearest chunks.
func (s *IndexStore) Query(ctx context.Context, ix *VectorIndex, embedder port.Embedder, text string, k int) ([]domain.ScoredChunk, error) {
	vectors, err := embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}
	return ix.Search(vectors[0], k)
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

func itob(i int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func btoi(b []byte) int {
	if len(b) != 8 {
		return -1
	}
	return int(binary.BigEndian.Uint64(b))
}
