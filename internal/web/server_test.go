package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
)

type stubService struct {
	answer   *domain.Answer
	report   domain.IngestReport
	err      error
	size     int
	ingested []string
}

func (s *stubService) Ask(_ context.Context, q string) (*domain.Answer, error) {
	if strings.TrimSpace(q) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	return s.answer, s.err
}

func (s *stubService) IngestDocument(_ context.Context, path string) (domain.IngestReport, error) {
	s.ingested = append(s.ingested, path)
	return s.report, s.err
}

func (s *stubService) IndexSize(context.Context) (int, error) { return s.size, s.err }

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIndexPage(t *testing.T) {
	srv := New(&stubService{}, Options{Summary: "Mietrecht im Überblick."}, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "Juristischer Informations-Assistent (Beta)")
	assert.Contains(t, string(body), "Mietrecht im Überblick.")
	assert.NotContains(t, string(body), `action="/index"`)
}

func TestIndexPage_StartupErrorClearedByRebuild(t *testing.T) {
	svc := &stubService{report: domain.IngestReport{Chunks: 1, Stored: 1}}
	srv := New(svc, Options{Persistent: true, StartupError: "Ein Fehler ist aufgetreten: vector store: connection refused"}, nil)

	get := func() string {
		resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}
	assert.Contains(t, get(), "vector store: connection refused")

	status, _ := postForm(t, srv.App(), "/index", nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, get(), "connection refused")
}

func TestAsk_RendersAnswerAndSources(t *testing.T) {
	svc := &stubService{answer: &domain.Answer{
		Question: "Wie lange ist die Kündigungsfrist?",
		Text:     "Die Kündigungsfrist beträgt drei Monate.",
		Sources: []domain.SearchResult{{Chunk: domain.Chunk{
			Page: 2,
			Text: "§ 573c Fristen. Die Kündigungsfrist beträgt drei Monate. Weiteres <b>.",
		}}},
	}}
	srv := New(svc, Options{}, nil)

	status, body := postForm(t, srv.App(), "/ask", url.Values{"question": {"Wie lange ist die Kündigungsfrist?"}})

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h2>Antwort:</h2>")
	assert.Contains(t, body, "Die Kündigungsfrist beträgt drei Monate.</p>")
	assert.Contains(t, body, "<details>")
	assert.Contains(t, body, "Quelle (Seite 2):")
	assert.Contains(t, body, "<mark>Die Kündigungsfrist beträgt drei Monate.</mark>")
	assert.Contains(t, body, "&lt;b&gt;")
}

func TestAsk_EmptyQuestion(t *testing.T) {
	srv := New(&stubService{}, Options{}, nil)

	status, body := postForm(t, srv.App(), "/ask", url.Values{"question": {"  "}})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Bitte geben Sie eine Frage ein.")
}

func TestAsk_ServiceFailure(t *testing.T) {
	srv := New(&stubService{err: domain.External("llm", errors.New("timeout"))}, Options{}, nil)

	status, body := postForm(t, srv.App(), "/ask", url.Values{"question": {"Frage?"}})

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "Ein Fehler ist aufgetreten: llm: timeout")
}

func TestBuildIndex(t *testing.T) {
	svc := &stubService{report: domain.IngestReport{Chunks: 10, Stored: 20, Summary: "Neue Zusammenfassung."}}
	srv := New(svc, Options{Persistent: true, DocumentPath: "ley.pdf"}, nil)

	status, body := postForm(t, srv.App(), "/index", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"ley.pdf"}, svc.ingested)
	assert.Contains(t, body, "10 Abschnitte, 20 im Index")
	assert.Contains(t, body, "Neue Zusammenfassung.")
	assert.Contains(t, body, `action="/index"`)
}

func TestBuildIndex_EphemeralRejected(t *testing.T) {
	svc := &stubService{}
	srv := New(svc, Options{}, nil)

	status, _ := postForm(t, srv.App(), "/index", nil)

	assert.Equal(t, http.StatusConflict, status)
	assert.Empty(t, svc.ingested)
}

func TestHealth(t *testing.T) {
	srv := New(&stubService{size: 42}, Options{}, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 42, body["index_size"])
}

func TestHealth_StoreDown(t *testing.T) {
	srv := New(&stubService{err: domain.External("vector store", errors.New("connection refused"))}, Options{}, nil)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNewSourceView(t *testing.T) {
	sv := newSourceView(domain.Chunk{Page: 3, Text: "Kein Treffer hier."}, "Hund")
	assert.Equal(t, sourceView{Page: 3, Before: "Kein Treffer hier."}, sv)

	sv = newSourceView(domain.Chunk{Text: "Eins. Miete zwei. Drei."}, "Miete")
	assert.Equal(t, "Eins. ", sv.Before)
	assert.Equal(t, "Miete zwei.", sv.Best)
	assert.Equal(t, " Drei.", sv.After)
}
