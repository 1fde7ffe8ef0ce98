package embedding

import (
	"context"

	"pdfchat/internal/adapter/retry"
	"pdfchat/internal/port"
)

// Resilient retries and paces an underlying embedder.
type Resilient struct {
	next   port.Embedder
	policy retry.Policy
}

func NewResilient(next port.Embedder, policy retry.Policy) *Resilient {
	return &Resilient{next: next, policy: policy}
}

func (r *Resilient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.Embed(ctx, texts)
		return err
	})
	return out, err
}

func (r *Resilient) Dimension() int {
	return r.next.Dimension()
}

func (r *Resilient) ModelName() string {
	return r.next.ModelName()
}
