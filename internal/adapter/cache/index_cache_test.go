package cache

import (
	"errors"
	"testing"
	"time"

	"pdfchat/internal/domain"
)

func entry(id string) Entry {
	return Entry{Metadata: domain.IndexMetadata{IndexID: id}}
}

func TestIndexCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewIndexCache(2, time.Minute)

	c.Put("a", entry("a"))
	c.Put("b", entry("b"))

	// Touch a so b becomes the oldest.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit for a")
	}
	c.Put("c", entry("c"))

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestIndexCacheExpires(t *testing.T) {
	c := NewIndexCache(2, time.Millisecond)
	c.Put("a", entry("a"))

	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected entry to expire")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry to be dropped, size %d", c.Size())
	}
}

func TestIndexCacheGetOrLoad(t *testing.T) {
	c := NewIndexCache(4, time.Minute)
	loads := 0
	load := func() (Entry, error) {
		loads++
		return entry("doc"), nil
	}

	for i := 0; i < 3; i++ {
		got, err := c.GetOrLoad("doc", load)
		if err != nil {
			t.Fatal(err)
		}
		if got.Metadata.IndexID != "doc" {
			t.Errorf("unexpected entry: %+v", got.Metadata)
		}
	}
	if loads != 1 {
		t.Errorf("expected a single load, got %d", loads)
	}

	c.Invalidate("doc")
	if _, err := c.GetOrLoad("doc", load); err != nil {
		t.Fatal(err)
	}
	if loads != 2 {
		t.Errorf("expected reload after invalidate, got %d loads", loads)
	}
}

func TestIndexCacheDoesNotCacheFailures(t *testing.T) {
	c := NewIndexCache(4, time.Minute)
	boom := errors.New("boom")

	if _, err := c.GetOrLoad("x", func() (Entry, error) { return Entry{}, boom }); !errors.Is(err, boom) {
		t.Errorf("expected load error, got %v", err)
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}
