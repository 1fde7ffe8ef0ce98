package llm

import (
	"context"

	"pdfchat/internal/adapter/retry"
	"pdfchat/internal/domain"
	"pdfchat/internal/port"
)

// Resilient retries and paces an underlying chat model.
type Resilient struct {
	next   port.ChatModel
	policy retry.Policy
}

func NewResilient(next port.ChatModel, policy retry.Policy) *Resilient {
	return &Resilient{next: next, policy: policy}
}

func (r *Resilient) Complete(ctx context.Context, messages []domain.Message) (domain.Message, error) {
	var out domain.Message
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.Complete(ctx, messages)
		return err
	})
	return out, err
}

func (r *Resilient) ModelName() string {
	return r.next.ModelName()
}
