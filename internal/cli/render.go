package cli

import (
	"embed"
	"fmt"
	"io"
	"strings"
	"text/template"

	"pdfchat/internal/domain"
)

//go:embed templates/*.txt
var outputTemplates embed.FS

var templates = template.Must(
	template.New("").Funcs(templateFuncs()).ParseFS(outputTemplates, "templates/*.txt"),
)

// AnswerData feeds templates/answer.txt.
type AnswerData struct {
	Answer     domain.Answer
	MaxExcerpt int
}

// SessionData feeds templates/session.txt.
type SessionData struct {
	Metadata domain.IndexMetadata
	Chunks   int
	ShareURL string
}

func renderAnswer(w io.Writer, answer domain.Answer, maxExcerpt int) error {
	return render(w, "answer.txt", AnswerData{Answer: answer, MaxExcerpt: maxExcerpt})
}

func renderSession(w io.Writer, data SessionData) error {
	return render(w, "session.txt", data)
}

func render(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	return nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"inc":     func(i int) int { return i + 1 },
		"excerpt": excerpt,
	}
}

// excerpt shortens s to at most max runes, cutting at a word boundary when
// one is near. A non-positive max returns s unchanged.
func excerpt(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}

	cut := string(runes[:max])
	if i := strings.LastIndexAny(cut, " \n\t"); i > len(cut)*3/4 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " \n\t") + "..."
}
