package usecase

import "pdfchat/internal/domain"

// ContextPolicy selects which transcript messages are sent to the chat model.
// It only shapes the request payload; the stored transcript is left intact.
type ContextPolicy interface {
	Apply(transcript []domain.Message) []domain.Message
}

// Unbounded sends the whole transcript every turn.
type Unbounded struct{}

func (Unbounded) Apply(transcript []domain.Message) []domain.Message {
	return append([]domain.Message(nil), transcript...)
}

// SlidingWindow keeps the leading system prompt, the last MaxTurns
// question/answer pairs and the pending question.
type SlidingWindow struct {
	MaxTurns int
}

func (w SlidingWindow) Apply(transcript []domain.Message) []domain.Message {
	if len(transcript) == 0 {
		return nil
	}

	keep := 2*w.MaxTurns + 1
	if keep < 1 {
		keep = 1
	}
	rest := transcript[1:]
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}

	payload := make([]domain.Message, 0, len(rest)+1)
	payload = append(payload, transcript[0])
	return append(payload, rest...)
}

// PolicyForTurns returns SlidingWindow for a positive turn count and
// Unbounded otherwise.
func PolicyForTurns(turns int) ContextPolicy {
	if turns > 0 {
		return SlidingWindow{MaxTurns: turns}
	}
	return Unbounded{}
}
