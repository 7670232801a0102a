package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
)

func results(texts ...string) []domain.SearchResult {
	out := make([]domain.SearchResult, len(texts))
	for i, t := range texts {
		out[i] = domain.SearchResult{Chunk: domain.Chunk{Text: t}}
	}
	return out
}

func TestGerman_ContainsContextQuestionAndFallback(t *testing.T) {
	tmpl, err := New("german")
	require.NoError(t, err)

	out, err := tmpl.Render("  Wie lange ist die Kündigungsfrist?  ", results("§ 573c Kündigungsfristen", "drei Monate"))
	require.NoError(t, err)

	assert.Contains(t, out, "Antworte nur auf Deutsch.")
	assert.Contains(t, out, `"`+NoAnswer+`"`)
	assert.Contains(t, out, "Kontext:\n§ 573c Kündigungsfristen\n\ndrei Monate\n")
	assert.Contains(t, out, "Frage: Wie lange ist die Kündigungsfrist?\n")
	assert.True(t, strings.HasSuffix(out, "Hilfreiche Antwort auf Deutsch:"))
}

func TestDefaultVariant(t *testing.T) {
	tmpl, err := New("default")
	require.NoError(t, err)

	out, err := tmpl.Render("What is rent?", results("Miete"))
	require.NoError(t, err)
	assert.Contains(t, out, "Use the following pieces of context")
	assert.Contains(t, out, "Question: What is rent?")
	assert.NotContains(t, out, NoAnswer)
}

func TestNew(t *testing.T) {
	tmpl, err := New("")
	require.NoError(t, err)
	assert.Same(t, templates["german"], tmpl.tmpl)

	_, err = New("french")
	assert.Error(t, err)
}

func TestContext_Empty(t *testing.T) {
	assert.Equal(t, "", Context(nil))
}
