package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls    int
	prepared int
	fail     bool
}

func (e *countingEmbedder) Name() string                  { return "counting" }
func (e *countingEmbedder) Dimension() int                { return 2 }
func (e *countingEmbedder) Prepare(corpus []string) error { e.prepared++; return nil }
func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("unavailable")
	}
	return []float64{float64(len(text)), 1}, nil
}
func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, _ := e.Embed(ctx, t)
		out[i] = v
	}
	return out, nil
}

func TestCachedEmbedder_MemoizesQueries(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, time.Minute)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "Kündigungsfrist")
	require.NoError(t, err)
	v2, err := c.Embed(ctx, "Kündigungsfrist")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "counting", c.Name())
	assert.Equal(t, 2, c.Dimension())
}

func TestCachedEmbedder_PrepareFlushes(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, time.Minute)
	ctx := context.Background()

	_, _ = c.Embed(ctx, "Miete")
	require.NoError(t, c.Prepare([]string{"Miete"}))
	_, _ = c.Embed(ctx, "Miete")

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 1, inner.prepared)
}

func TestCachedEmbedder_DoesNotCacheErrors(t *testing.T) {
	inner := &countingEmbedder{fail: true}
	c := NewCachedEmbedder(inner, time.Minute)

	_, err := c.Embed(context.Background(), "Miete")
	assert.Error(t, err)
	inner.fail = false
	_, err = c.Embed(context.Background(), "Miete")
	assert.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_BatchBypassesCache(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, time.Minute)

	_, err := c.EmbedBatch(context.Background(), []string{"a", "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
