package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"pdfchat/internal/adapter/retry"
	"pdfchat/internal/domain"
)

type fakeGenerator struct {
	got   []*schema.Message
	reply string
	errs  []error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.got = input
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &schema.Message{Role: schema.Assistant, Content: f.reply}, nil
}

func TestEinoChatModelComplete(t *testing.T) {
	gen := &fakeGenerator{reply: "Fredonia City."}
	cm := NewEinoChatModel(gen, "gpt-test")

	msgs := []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleAssistant, Content: "earlier"},
		{Role: domain.RoleUser, Content: "What is the capital?"},
	}
	out, err := cm.Complete(context.Background(), msgs)
	if err != nil {
		t.Fatal(err)
	}
	if out.Role != domain.RoleAssistant || out.Content != "Fredonia City." {
		t.Errorf("unexpected reply: %+v", out)
	}

	wantRoles := []schema.RoleType{schema.System, schema.Assistant, schema.User}
	for i, m := range gen.got {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d: expected role %s, got %s", i, wantRoles[i], m.Role)
		}
	}
}

func TestEinoChatModelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"service", errors.New("500 internal"), domain.ErrLLMService},
		{"throttle", errors.New("status code: 429"), domain.ErrRateLimited},
		{"timeout", context.DeadlineExceeded, domain.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := NewEinoChatModel(&fakeGenerator{errs: []error{tt.err}}, "m")
			_, err := cm.Complete(context.Background(), nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestResilientChatModel(t *testing.T) {
	gen := &fakeGenerator{reply: "ok", errs: []error{errors.New("429 too many requests")}}
	cm := NewResilient(NewEinoChatModel(gen, "m"), retry.Policy{
		MaxAttempts:      2,
		InitialBackoff:   time.Millisecond,
		RateLimitBackoff: 2 * time.Millisecond,
	})

	out, err := cm.Complete(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if out.Content != "ok" || gen.calls != 2 {
		t.Errorf("expected success on second attempt, got %q after %d calls", out.Content, gen.calls)
	}
}

func TestEchoChatModel(t *testing.T) {
	out, err := NewEchoChatModel().Complete(context.Background(), []domain.Message{
		{Role: domain.RoleSystem, Content: "You are helpful."},
		{Role: domain.RoleSystem, Content: "\n\nUse the information below.\n\nFredonia City"},
		{Role: domain.RoleUser, Content: "Capital?"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Content, "Fredonia City") || !strings.HasPrefix(out.Content, "Q: Capital?") {
		t.Errorf("unexpected echo: %q", out.Content)
	}
}
