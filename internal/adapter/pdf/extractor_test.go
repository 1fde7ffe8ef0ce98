package pdf

import (
	"context"
	"testing"
)

func TestExtractPagesRejectsEmpty(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractPages(context.Background(), nil); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestExtractPagesRejectsGarbage(t *testing.T) {
	e := NewExtractor()
	if _, err := e.ExtractPages(context.Background(), []byte("definitely not a pdf")); err == nil {
		t.Error("expected error for non-pdf input")
	}
}
