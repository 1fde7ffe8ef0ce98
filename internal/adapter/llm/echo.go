package llm

import (
	"context"
	"strings"

	"pdfchat/internal/domain"
)

// EchoChatModel answers offline by quoting the retrieved context it was given.
// It backs the "echo" chat provider for dry runs without an API key.
type EchoChatModel struct{}

func NewEchoChatModel() *EchoChatModel {
	return &EchoChatModel{}
}

func (EchoChatModel) Complete(ctx context.Context, messages []domain.Message) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	var question, excerpt string
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if question == "" && m.Role == domain.RoleUser {
			question = m.Content
			continue
		}
		if question != "" && m.Role == domain.RoleSystem {
			excerpt = strings.TrimSpace(m.Content)
			break
		}
	}

	var sb strings.Builder
	sb.WriteString("Q: ")
	sb.WriteString(question)
	if excerpt != "" {
		sb.WriteString("\n\n")
		sb.WriteString(excerpt)
	}
	return domain.Message{Role: domain.RoleAssistant, Content: sb.String()}, nil
}

func (EchoChatModel) ModelName() string {
	return "echo"
}
