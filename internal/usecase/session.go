package usecase

import (
	"github.com/google/uuid"

	"pdfchat/internal/adapter/store"
	"pdfchat/internal/domain"
)

// Session is one conversation against one opened index. A Session is not
// safe for concurrent use; each caller opens its own.
type Session struct {
	ID       string
	IndexID  string
	Metadata domain.IndexMetadata

	index      *store.VectorIndex
	transcript []domain.Message
}

// NewSession starts a transcript holding only the system prompt.
func NewSession(indexID string, meta domain.IndexMetadata, index *store.VectorIndex, systemPrompt string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		IndexID:  indexID,
		Metadata: meta,
		index:    index,
		transcript: []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt},
		},
	}
}

// Transcript returns a copy of the persistent conversation.
// Retrieved context never appears in it.
func (s *Session) Transcript() []domain.Message {
	return append([]domain.Message(nil), s.transcript...)
}

// Turns returns the number of completed question/answer exchanges.
func (s *Session) Turns() int {
	return (len(s.transcript) - 1) / 2
}

// Index returns the vector index the session searches.
func (s *Session) Index() *store.VectorIndex {
	return s.index
}

func (s *Session) open() bool {
	return s != nil && s.index != nil && len(s.transcript) > 0
}
