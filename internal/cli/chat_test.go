package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"pdfchat/internal/domain"
)

func TestChatLoopAnswersUntilExit(t *testing.T) {
	in := strings.NewReader("first question\n\nsecond question\nexit\nnever asked\n")
	var out bytes.Buffer

	var asked []string
	err := chatLoop(in, &out, func(q string) (domain.Answer, error) {
		asked = append(asked, q)
		return domain.Answer{Text: "answer to " + q, Sources: []string{"excerpt"}}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(asked) != 2 || asked[0] != "first question" || asked[1] != "second question" {
		t.Errorf("unexpected questions: %v", asked)
	}
	if !strings.Contains(out.String(), "answer to second question") {
		t.Errorf("missing answer in output:\n%s", out.String())
	}
}

func TestChatLoopContinuesAfterErrors(t *testing.T) {
	in := strings.NewReader("a\nb\nc\n")
	var out bytes.Buffer

	calls := 0
	err := chatLoop(in, &out, func(q string) (domain.Answer, error) {
		calls++
		switch q {
		case "a":
			return domain.Answer{}, fmt.Errorf("ask: %w", domain.ErrRateLimited)
		case "b":
			return domain.Answer{}, errors.New("boom")
		}
		return domain.Answer{Text: "ok"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	output := out.String()
	if !strings.Contains(output, "rate limiting") || !strings.Contains(output, "Error: boom") {
		t.Errorf("expected both failures to be reported:\n%s", output)
	}
}
