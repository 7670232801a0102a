// Package embedding holds embedder decorators shared by the concrete providers.
package embedding

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"legalrag/internal/domain"
)

// CachedEmbedder memoizes single-text embeddings, which is what queries use.
// Batch calls go straight to the wrapped embedder.
type CachedEmbedder struct {
	inner domain.Embedder
	cache *cache.Cache
}

// NewCachedEmbedder wraps inner; entries expire after ttl.
func NewCachedEmbedder(inner domain.Embedder, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedEmbedder{inner: inner, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedEmbedder) Name() string   { return c.inner.Name() }
func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

// Prepare rebuilds the wrapped embedder's model, so cached vectors are dropped.
func (c *CachedEmbedder) Prepare(corpus []string) error {
	c.cache.Flush()
	return c.inner.Prepare(corpus)
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.([]float64), nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(text, v)
	return v, nil
}

func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	return c.inner.EmbedBatch(ctx, texts)
}
