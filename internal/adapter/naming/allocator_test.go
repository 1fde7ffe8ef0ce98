package naming

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"pdfchat/internal/adapter/objectstore"
	"pdfchat/internal/domain"
)

var generatedName = regexp.MustCompile(`^[A-Z0-9]{6}_.{1,9}$`)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"my-doc", true},
		{"Report_2023", true},
		{"abc123", true},
		{"", false},
		{"has space", false},
		{"dot.name", false},
		{"slash/name", false},
		{"ünïcode", false},
	}

	for _, tt := range tests {
		if got := Validate(tt.name); got != tt.valid {
			t.Errorf("Validate(%q) = %v, want %v", tt.name, got, tt.valid)
		}
	}
}

func TestSeed(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"annual report.pdf", "annualre"},
		{"/tmp/uploads/Q3.pdf", "Q3"},
		{"short", "short"},
		{"   .pdf", "doc"},
		{"résumé final.pdf", "rsumfina"},
	}

	for _, tt := range tests {
		if got := Seed(tt.file); got != tt.want {
			t.Errorf("Seed(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestAllocatePreferredFree(t *testing.T) {
	alloc := NewAllocator(objectstore.NewMemoryStore(), "index", 8)

	got, err := alloc.Allocate(context.Background(), "my-doc", "file.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "my-doc" || got.Generated || got.Warning != nil {
		t.Errorf("expected preferred name unchanged, got %+v", got)
	}
}

func TestAllocatePreferredInvalid(t *testing.T) {
	alloc := NewAllocator(objectstore.NewMemoryStore(), "index", 8)

	_, err := alloc.Allocate(context.Background(), "my doc!", "file.pdf")
	if !errors.Is(err, domain.ErrInvalidIdentifier) {
		t.Errorf("expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestAllocatePreferredTaken(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	store.Put(ctx, "index/my-doc/index.db", []byte("x"))
	alloc := NewAllocator(store, "index", 8)

	first, err := alloc.Allocate(ctx, "my-doc", "quarterly report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(first.Warning, domain.ErrIdentifierTaken) {
		t.Errorf("expected taken warning, got %v", first.Warning)
	}
	if first.ID == "my-doc" {
		t.Fatal("allocated a taken name")
	}
	if !generatedName.MatchString(first.ID) {
		t.Errorf("generated name %q does not match pattern", first.ID)
	}
	if !Validate(first.ID) {
		t.Errorf("generated name %q is not a valid identifier", first.ID)
	}

	second, err := alloc.Allocate(ctx, "my-doc", "quarterly report.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Errorf("expected distinct names, got %q twice", first.ID)
	}
}

func TestAllocateSkipsExistingCandidates(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	store.Put(ctx, "index/AAAAAA_doc/index.db", []byte("x"))
	store.Put(ctx, "index/BBBBBB_doc/.reserved", []byte("x"))

	alloc := NewAllocator(store, "index", 8)
	seq := []string{"AAAAAA", "BBBBBB", "CCCCCC"}
	alloc.random = func() string {
		next := seq[0]
		seq = seq[1:]
		return next
	}

	got, err := alloc.Allocate(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "CCCCCC_doc" {
		t.Errorf("expected CCCCCC_doc, got %s", got.ID)
	}
}

func TestAllocateGivesUp(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	store.Put(ctx, "index/AAAAAA_doc/index.db", []byte("x"))

	alloc := NewAllocator(store, "index", 3)
	alloc.random = func() string { return "AAAAAA" }

	if _, err := alloc.Allocate(ctx, "", "doc.pdf"); err == nil {
		t.Error("expected error when every candidate is taken")
	}
}

func TestClaimReservesAtomically(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	alloc := NewAllocator(store, "index", 8)

	first, err := alloc.Claim(ctx, "shared", "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != "shared" {
		t.Fatalf("expected shared, got %s", first.ID)
	}

	second, err := alloc.Claim(ctx, "shared", "b.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == "shared" {
		t.Error("second claim must not reuse a reserved name")
	}
	if !errors.Is(second.Warning, domain.ErrIdentifierTaken) {
		t.Errorf("expected taken warning, got %v", second.Warning)
	}
}

func TestClaimRecoversFromLostRace(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryStore()
	alloc := NewAllocator(store, "index", 8)

	// Another ingest reserves the name after our existence check would pass.
	racer := &racingStore{MemoryStore: store, key: "index/race/.reserved"}
	alloc.store = racer

	got, err := alloc.Claim(ctx, "race", "r.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID == "race" || !got.Generated {
		t.Errorf("expected generated fallback, got %+v", got)
	}
	if !errors.Is(got.Warning, domain.ErrIdentifierTaken) {
		t.Errorf("expected taken warning, got %v", got.Warning)
	}
}

func TestKeyLayout(t *testing.T) {
	alloc := NewAllocator(objectstore.NewMemoryStore(), "index", 8)

	if got := alloc.Key("abc", domain.IndexFile); got != "index/abc/index.db" {
		t.Errorf("unexpected key: %s", got)
	}
	if got := alloc.Dir("abc"); got != "index/abc/" {
		t.Errorf("unexpected dir: %s", got)
	}
}

// racingStore lets a competitor win the first PutIfAbsent on key.
type racingStore struct {
	*objectstore.MemoryStore
	key  string
	done bool
}

func (s *racingStore) PutIfAbsent(ctx context.Context, key string, data []byte) (bool, error) {
	if key == s.key && !s.done {
		s.done = true
		s.MemoryStore.Put(ctx, key, []byte("competitor"))
		return false, nil
	}
	return s.MemoryStore.PutIfAbsent(ctx, key, data)
}
