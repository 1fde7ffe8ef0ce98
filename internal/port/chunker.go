package port

import "pdfchat/internal/domain"

type Chunker interface {
	Split(pages []string) []domain.Chunk
}
