package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

func newServer(t *testing.T, status int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/embeddings"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data := make([]map[string]any, len(req.Input))
		// reversed order to check index mapping
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     j,
				"embedding": []float64{float64(len(req.Input[j])), 1, 0},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "LEGALRAG_TEST_KEY"})
	assert.Error(t, err)
}

func TestEmbedBatch_SplitsAndPreservesOrder(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_KEY", "sk-test")
	var calls atomic.Int32
	srv := newServer(t, http.StatusOK, &calls)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "LEGALRAG_TEST_KEY", BatchSize: 2})
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)

	require.Len(t, vecs, 3)
	assert.Equal(t, []float64{1, 1, 0}, vecs[0])
	assert.Equal(t, []float64{2, 1, 0}, vecs[1])
	assert.Equal(t, []float64{3, 1, 0}, vecs[2])
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 3, c.Dimension())
}

func TestEmbed_ServerErrorIsNotRetried(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_KEY", "sk-test")
	var calls atomic.Int32
	srv := newServer(t, http.StatusInternalServerError, &calls)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1/", APIKeyEnv: "LEGALRAG_TEST_KEY"})
	require.NoError(t, err)

	_, err = c.Embed(context.Background(), "Kündigungsfrist")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbed_ConcurrentFirstRequests(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_KEY", "sk-test")
	var calls atomic.Int32
	srv := newServer(t, http.StatusOK, &calls)

	c, err := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "LEGALRAG_TEST_KEY"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, q := range []string{"Kaution", "Mietminderung", "Kündigungsfrist", "Eigenbedarf"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Embed(context.Background(), q)
			assert.NoError(t, err)
			_ = c.Dimension()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 3, c.Dimension())
}
