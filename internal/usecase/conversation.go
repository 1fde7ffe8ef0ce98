package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"pdfchat/internal/adapter/store"
	"pdfchat/internal/domain"
	"pdfchat/internal/port"
)

// ConversationAssembler runs question turns: it retrieves context for the
// question, sends it to the chat model alongside the transcript and records
// the exchange.
type ConversationAssembler struct {
	indexes         *store.IndexStore
	embedder        port.Embedder
	chat            port.ChatModel
	policy          ContextPolicy
	topK            int
	contextTemplate string
	logger          *slog.Logger
}

func NewConversationAssembler(
	indexes *store.IndexStore,
	embedder port.Embedder,
	chat port.ChatModel,
	policy ContextPolicy,
	topK int,
	contextTemplate string,
	logger *slog.Logger,
) *ConversationAssembler {
	if policy == nil {
		policy = Unbounded{}
	}
	if topK <= 0 {
		topK = 2
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ConversationAssembler{
		indexes:         indexes,
		embedder:        embedder,
		chat:            chat,
		policy:          policy,
		topK:            topK,
		contextTemplate: contextTemplate,
		logger:          logger,
	}
}

// Ask answers question within session. On any error the session transcript
// is unchanged.
func (a *ConversationAssembler) Ask(ctx context.Context, session *Session, question string) (domain.Answer, error) {
	if !session.open() {
		return domain.Answer{}, domain.ErrSessionNotOpen
	}
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, fmt.Errorf("question is empty")
	}

	results, err := a.indexes.Query(ctx, session.index, a.embedder, question, a.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieval failed: %w", err)
	}

	sources := make([]string, len(results))
	for i, r := range results {
		sources[i] = r.Chunk.Text
	}
	contextMsg := domain.Message{
		Role:    domain.RoleSystem,
		Content: a.contextTemplate + "\n\n" + strings.Join(sources, "\n\n"),
	}

	transcript := make([]domain.Message, 0, len(session.transcript)+2)
	transcript = append(transcript, session.transcript...)
	transcript = append(transcript, domain.Message{Role: domain.RoleUser, Content: question})

	reply, err := a.chat.Complete(ctx, withContext(a.policy.Apply(transcript), contextMsg))
	if err != nil {
		return domain.Answer{}, fmt.Errorf("chat completion failed: %w", err)
	}

	session.transcript = append(transcript, domain.Message{Role: domain.RoleAssistant, Content: reply.Content})

	a.logger.Debug("answered question",
		"session", session.ID,
		"index", session.IndexID,
		"turn", session.Turns(),
		"sources", len(sources),
	)

	return domain.Answer{Text: reply.Content, Sources: sources}, nil
}

// withContext inserts msg immediately before the final message of payload.
func withContext(payload []domain.Message, msg domain.Message) []domain.Message {
	if len(payload) == 0 {
		return []domain.Message{msg}
	}
	last := len(payload) - 1
	out := make([]domain.Message, 0, len(payload)+1)
	out = append(out, payload[:last]...)
	out = append(out, msg, payload[last])
	return out
}
