package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"pdfchat/internal/adapter/retry"
	"pdfchat/internal/domain"
)

// ChatModelConfig defines the configuration for creating a chat model.
type ChatModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// generator is the subset of eino's BaseChatModel used here.
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// EinoChatModel adapts an eino chat model to port.ChatModel.
type EinoChatModel struct {
	model generator
	name  string
}

// NewOpenAIChatModel creates an OpenAI-compatible chat model.
func NewOpenAIChatModel(ctx context.Context, cfg ChatModelConfig) (*EinoChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for chat model %s", cfg.Model)
	}

	cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return NewEinoChatModel(cm, cfg.Model), nil
}

func NewEinoChatModel(m generator, name string) *EinoChatModel {
	return &EinoChatModel{model: m, name: name}
}

func (c *EinoChatModel) Complete(ctx context.Context, messages []domain.Message) (domain.Message, error) {
	input := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		input = append(input, &schema.Message{
			Role:    toSchemaRole(m.Role),
			Content: m.Content,
		})
	}

	out, err := c.model.Generate(ctx, input)
	if err != nil {
		return domain.Message{}, retry.Classify(domain.ErrLLMService, "complete", err)
	}
	if out == nil {
		return domain.Message{}, &domain.ServiceError{
			Kind: domain.ErrLLMService,
			Op:   "complete",
			Err:  errors.New("empty completion"),
		}
	}

	return domain.Message{Role: domain.RoleAssistant, Content: out.Content}, nil
}

func (c *EinoChatModel) ModelName() string {
	return c.name
}

func toSchemaRole(r domain.Role) schema.RoleType {
	switch r {
	case domain.RoleSystem:
		return schema.System
	case domain.RoleAssistant:
		return schema.Assistant
	default:
		return schema.User
	}
}
