// Package pdf extracts per-page plain text from PDF files.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// Extractor reads page text with github.com/ledongthuc/pdf.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractPages returns one string per page in page order. Pages without a
// content stream yield an empty string so page numbers stay aligned.
func (e *Extractor) ExtractPages(ctx context.Context, data []byte) (pages []string, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf")
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return pages, nil
}
