package port

import (
	"context"

	"pdfchat/internal/domain"
)

// ChatModel completes a role-tagged conversation with one assistant message.
type ChatModel interface {
	Complete(ctx context.Context, messages []domain.Message) (domain.Message, error)

	// ModelName returns the name of the model.
	ModelName() string
}
