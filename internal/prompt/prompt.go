// Package prompt renders the question-answering prompt from retrieved chunks.
package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"legalrag/internal/domain"
)

// NoAnswer is the exact phrase the model is told to use when the context holds no answer.
// The service returns it directly when retrieval comes back empty.
const NoAnswer = "Ich habe keine Informationen dazu in meiner Wissensdatenbank."

const german = `Benutze den folgenden Kontext, um die Frage am Ende zu beantworten. Antworte nur auf Deutsch.
Wenn du die Antwort im Kontext nicht findest, sage: "{{.NoAnswer}}" Erfinde nichts.

Kontext:
{{.Context}}

Frage: {{.Question}}
Hilfreiche Antwort auf Deutsch:`

const generic = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{.Context}}

Question: {{.Question}}
Helpful Answer:`

var templates = map[string]*template.Template{
	"german":  template.Must(template.New("german").Parse(german)),
	"default": template.Must(template.New("default").Parse(generic)),
}

// Template fills a fixed prompt with context and question.
type Template struct {
	tmpl *template.Template
}

// New returns the named template; "" selects german.
func New(name string) (*Template, error) {
	if name == "" {
		name = "german"
	}
	t, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template: %s", name)
	}
	return &Template{tmpl: t}, nil
}

// Render stuffs the chunk texts, separated by blank lines, into the prompt.
func (t *Template) Render(question string, results []domain.SearchResult) (string, error) {
	var sb strings.Builder
	err := t.tmpl.Execute(&sb, struct {
		Context  string
		Question string
		NoAnswer string
	}{
		Context:  Context(results),
		Question: strings.TrimSpace(question),
		NoAnswer: NoAnswer,
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Context joins the chunk texts with blank lines.
func Context(results []domain.SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, strings.TrimSpace(r.Chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}
