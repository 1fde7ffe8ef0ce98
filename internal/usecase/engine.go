package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdfchat/internal/adapter/cache"
	"pdfchat/internal/adapter/naming"
	"pdfchat/internal/adapter/store"
	"pdfchat/internal/domain"
	"pdfchat/internal/port"
)

// Options configures an Engine.
type Options struct {
	MaxPages        int
	RejectOverLimit bool
	NameAttempts    int
	IndexPrefix     string
	CacheDir        string
	CacheSize       int
	CacheTTL        time.Duration
	BatchSize       int
	TopK            int
	SystemPrompt    string
	ContextTemplate string
	Policy          ContextPolicy
	ShareURL        func(id string) string
}

// Deps are the external collaborators of an Engine.
type Deps struct {
	Store     port.ObjectStore
	Embedder  port.Embedder
	Chat      port.ChatModel
	Chunker   port.Chunker
	Extractor port.PageExtractor
	Logger    *slog.Logger
}

// Engine ingests documents into shareable indexes and answers questions
// against them. It is safe for concurrent use; Sessions are not.
type Engine struct {
	opts      Options
	objects   port.ObjectStore
	embedder  port.Embedder
	chunker   port.Chunker
	extractor port.PageExtractor
	names     *naming.Allocator
	indexes   *store.IndexStore
	loaded    *cache.IndexCache
	assembler *ConversationAssembler
	logger    *slog.Logger
}

func NewEngine(deps Deps, opts Options) *Engine {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if opts.IndexPrefix == "" {
		opts.IndexPrefix = "index"
	}
	if opts.ShareURL == nil {
		opts.ShareURL = func(id string) string { return "/?pdf_index=" + id }
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	indexes := store.NewIndexStore(opts.BatchSize)
	return &Engine{
		opts:      opts,
		objects:   deps.Store,
		embedder:  deps.Embedder,
		chunker:   deps.Chunker,
		extractor: deps.Extractor,
		names:     naming.NewAllocator(deps.Store, opts.IndexPrefix, opts.NameAttempts),
		indexes:   indexes,
		loaded:    cache.NewIndexCache(opts.CacheSize, opts.CacheTTL),
		assembler: NewConversationAssembler(
			indexes, deps.Embedder, deps.Chat, opts.Policy, opts.TopK, opts.ContextTemplate, deps.Logger,
		),
		logger: deps.Logger,
	}
}

// IngestRequest describes one document to index.
type IngestRequest struct {
	FileName      string
	Pages         []string
	Title         string
	Description   string
	PreferredName string
	// Progress, when set, is called after every embedding batch.
	Progress func(done, total int)
}

// IngestResult reports where a document was stored.
type IngestResult struct {
	ID        string
	ShareURL  string
	Pages     int
	Chunks    int
	Truncated bool
	// NameWarning is set when the preferred name was taken and a generated
	// one was used instead.
	NameWarning error
}

// IngestPDF extracts page text from a PDF and ingests it.
func (e *Engine) IngestPDF(ctx context.Context, data []byte, req IngestRequest) (IngestResult, error) {
	if e.extractor == nil {
		return IngestResult{}, errors.New("no pdf extractor configured")
	}
	pages, err := e.extractor.ExtractPages(ctx, data)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to extract text from %s: %w", req.FileName, err)
	}
	req.Pages = pages
	return e.Ingest(ctx, req)
}

// Ingest splits, embeds and uploads a document under a freshly claimed identifier.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	var result IngestResult

	if req.PreferredName != "" && !naming.Validate(req.PreferredName) {
		return result, fmt.Errorf("%q: %w", req.PreferredName, domain.ErrInvalidIdentifier)
	}

	pages := req.Pages
	if len(pages) > e.opts.MaxPages {
		if e.opts.RejectOverLimit {
			return result, fmt.Errorf("%s has %d pages, limit is %d: %w",
				req.FileName, len(pages), e.opts.MaxPages, domain.ErrPageLimitExceeded)
		}
		e.logger.Warn("document truncated",
			"file", req.FileName,
			"pages", len(pages),
			"limit", e.opts.MaxPages,
			"error", domain.ErrPageLimitExceeded,
		)
		pages = pages[:e.opts.MaxPages]
		result.Truncated = true
	}
	result.Pages = len(pages)

	chunks := e.chunker.Split(pages)
	if len(chunks) == 0 {
		return result, fmt.Errorf("%s: %w", req.FileName, domain.ErrEmptyDocument)
	}
	result.Chunks = len(chunks)

	index, err := e.indexes.Build(ctx, chunks, e.embedder, req.Progress)
	if err != nil {
		return result, fmt.Errorf("failed to build index: %w", err)
	}

	alloc, err := e.names.Claim(ctx, req.PreferredName, req.FileName)
	if err != nil {
		return result, fmt.Errorf("failed to allocate identifier: %w", err)
	}
	if alloc.Warning != nil {
		e.logger.Warn("preferred name unavailable", "name", req.PreferredName, "using", alloc.ID)
		result.NameWarning = alloc.Warning
	}
	result.ID = alloc.ID

	meta := domain.IndexMetadata{
		IndexID:     alloc.ID,
		Title:       req.Title,
		Description: req.Description,
	}

	dir := e.localDir(alloc.ID)
	if err := e.indexes.Persist(ctx, index, dir); err != nil {
		return result, fmt.Errorf("failed to persist index: %w", err)
	}
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return result, err
	}
	if err := os.WriteFile(filepath.Join(dir, domain.MetadataFile), metaBytes, 0644); err != nil {
		return result, fmt.Errorf("failed to write metadata: %w", err)
	}

	for _, file := range []string{domain.MetadataFile, domain.IndexFile} {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return result, err
		}
		if err := e.objects.Put(ctx, e.names.Key(alloc.ID, file), data); err != nil {
			return result, fmt.Errorf("failed to upload %s: %w", file, err)
		}
	}

	e.loaded.Put(alloc.ID, cache.Entry{Index: index, Metadata: meta})
	result.ShareURL = e.opts.ShareURL(alloc.ID)

	e.logger.Info("document ingested",
		"index", alloc.ID,
		"file", req.FileName,
		"pages", result.Pages,
		"chunks", result.Chunks,
		"truncated", result.Truncated,
	)
	return result, nil
}

// NameStatus is the availability of a candidate identifier.
type NameStatus int

const (
	NameAvailable NameStatus = iota
	NameInvalid
	NameTaken
)

func (s NameStatus) String() string {
	switch s {
	case NameInvalid:
		return "invalid"
	case NameTaken:
		return "taken"
	default:
		return "available"
	}
}

// CheckName reports whether name could be used for a new index.
func (e *Engine) CheckName(ctx context.Context, name string) (NameStatus, error) {
	if !naming.Validate(name) {
		return NameInvalid, nil
	}
	taken, err := e.names.Exists(ctx, name)
	if err != nil {
		return NameAvailable, err
	}
	if taken {
		return NameTaken, nil
	}
	return NameAvailable, nil
}

// Open loads the index named id and starts a new session on it.
func (e *Engine) Open(ctx context.Context, id string) (*Session, error) {
	if !naming.Validate(id) {
		return nil, fmt.Errorf("%q: %w", id, domain.ErrInvalidIdentifier)
	}

	// The object store decides whether id exists, even when it is cached.
	ok, err := e.objects.Exists(ctx, e.names.Key(id, domain.IndexFile))
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", id, err)
	}
	if !ok {
		e.loaded.Invalidate(id)
		return nil, fmt.Errorf("index %q: %w", id, domain.ErrNotFound)
	}

	entry, err := e.loaded.GetOrLoad(id, func() (cache.Entry, error) {
		return e.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("index cache", "index", id, "entries", e.loaded.Size())

	session := NewSession(id, entry.Metadata, entry.Index, e.opts.SystemPrompt)
	e.logger.Info("session opened", "session", session.ID, "index", id, "chunks", entry.Index.Len())
	return session, nil
}

// Ask answers a question within an opened session.
func (e *Engine) Ask(ctx context.Context, session *Session, question string) (domain.Answer, error) {
	return e.assembler.Ask(ctx, session, question)
}

// Search returns the k chunks nearest to query without involving the chat model.
func (e *Engine) Search(ctx context.Context, session *Session, query string, k int) ([]domain.ScoredChunk, error) {
	if !session.open() {
		return nil, domain.ErrSessionNotOpen
	}
	if k <= 0 {
		k = e.opts.TopK
	}
	return e.indexes.Query(ctx, session.index, e.embedder, query, k)
}

func (e *Engine) load(ctx context.Context, id string) (cache.Entry, error) {
	dir := e.localDir(id)
	fresh, err := e.download(ctx, id, dir, false)
	if err != nil {
		return cache.Entry{}, err
	}

	index, err := e.indexes.Load(ctx, dir)
	if errors.Is(err, domain.ErrCorruptIndex) && !fresh {
		e.logger.Warn("local copy unreadable, downloading again", "index", id, "error", err)
		if _, err := e.download(ctx, id, dir, true); err != nil {
			return cache.Entry{}, err
		}
		index, err = e.indexes.Load(ctx, dir)
	}
	if err != nil {
		return cache.Entry{}, err
	}

	meta := domain.IndexMetadata{IndexID: id}
	data, err := os.ReadFile(filepath.Join(dir, domain.MetadataFile))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &meta); err != nil {
			return cache.Entry{}, fmt.Errorf("%s: %w: %v", domain.MetadataFile, domain.ErrCorruptIndex, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cache.Entry{}, err
	}

	return cache.Entry{Index: index, Metadata: meta}, nil
}

// download mirrors the index directory of id into dir, leaving out the
// reservation marker. Files already present are kept unless force is set.
// It reports whether index.db was fetched.
func (e *Engine) download(ctx context.Context, id, dir string, force bool) (bool, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create cache dir: %w", err)
	}

	prefix := e.names.Dir(id)
	keys, err := e.objects.List(ctx, prefix)
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	fetched := false
	for _, key := range keys {
		file := strings.TrimPrefix(key, prefix)
		if file == domain.ReservationFile || file == "" || strings.Contains(file, "/") {
			continue
		}

		local := filepath.Join(dir, file)
		if !force {
			if _, err := os.Stat(local); err == nil {
				continue
			}
		}

		data, err := e.objects.Get(ctx, key)
		if err != nil {
			return fetched, fmt.Errorf("failed to download %s: %w", file, err)
		}
		if err := writeFileAtomic(local, data); err != nil {
			return fetched, err
		}
		if file == domain.IndexFile {
			fetched = true
		}
	}

	e.logger.Debug("index mirrored", "index", id, "dir", dir, "objects", len(keys), "fetched", fetched)
	return fetched, nil
}

func (e *Engine) localDir(id string) string {
	return filepath.Join(e.opts.CacheDir, id)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
