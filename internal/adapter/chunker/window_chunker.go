package chunker

import (
	"sort"
	"strings"

	"pdfchat/internal/domain"
)

// pageSeparator joins consecutive pages before windowing.
const pageSeparator = "\n"

// WindowChunker splits a document into fixed-size character windows.
// Consecutive windows share exactly overlap characters, across page breaks too.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 10000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 10
	}
	return &WindowChunker{
		size:    size,
		overlap: overlap,
	}
}

func (c *WindowChunker) Size() int { return c.size }

func (c *WindowChunker) Overlap() int { return c.overlap }

// Split joins the non-blank pages and slides one window over the result.
// Each chunk is attributed to the page its window starts on.
func (c *WindowChunker) Split(pages []string) []domain.Chunk {
	var (
		text    []rune
		starts  []int // offset of each kept page in text
		numbers []int // 1-based page number of each kept page
	)
	for i, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		if len(text) > 0 {
			text = append(text, []rune(pageSeparator)...)
		}
		starts = append(starts, len(text))
		numbers = append(numbers, i+1)
		text = append(text, []rune(page)...)
	}
	if len(text) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	step := c.size - c.overlap

	start := 0
	for {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}

		p := sort.SearchInts(starts, start+1) - 1
		chunks = append(chunks, domain.Chunk{
			Seq:    len(chunks),
			Page:   numbers[p],
			Offset: start - starts[p],
			Text:   string(text[start:end]),
		})

		if end == len(text) {
			break
		}
		start += step
	}

	return chunks
}
