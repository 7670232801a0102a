package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
)

func seeded(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx,
		[]domain.Chunk{{ChunkID: "a", Page: 1}, {ChunkID: "b", Page: 2}, {ChunkID: "c", Page: 3}},
		[][]float64{{1, 0}, {0, 1}, {0.7, 0.7}},
	))
	return s
}

func TestSearch_OrderedAndBounded(t *testing.T) {
	s := seeded(t)

	res, err := s.Search(context.Background(), []float64{0.9, 0.1}, 2)
	require.NoError(t, err)

	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].Chunk.ChunkID)
	assert.Equal(t, "c", res[1].Chunk.ChunkID)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
}

func TestSearch_TopKLargerThanIndex(t *testing.T) {
	s := seeded(t)

	res, err := s.Search(context.Background(), []float64{0, 1}, 10)
	require.NoError(t, err)

	require.Len(t, res, 3)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
}

func TestInit_ConnectOnlyRequiresIndex(t *testing.T) {
	s := NewStorage()
	err := s.Init(context.Background(), 0)
	assert.True(t, errors.Is(err, domain.ErrIndexNotFound))

	require.NoError(t, s.Init(context.Background(), 3))
	assert.NoError(t, s.Init(context.Background(), 0))
}

func TestUpsert_Validation(t *testing.T) {
	s := NewStorage()
	ctx := context.Background()

	err := s.Upsert(ctx, []domain.Chunk{{}}, [][]float64{{1}})
	assert.True(t, errors.Is(err, domain.ErrIndexNotFound))

	require.NoError(t, s.Init(ctx, 2))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, nil))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{}}, [][]float64{{1, 2, 3}}))
}

func TestUpsert_DuplicatesAccumulate(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}}, [][]float64{{1, 0}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestClear(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.Clear(ctx))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := s.Search(ctx, []float64{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, cosine([]float64{1}, []float64{1, 0}))
	assert.Zero(t, cosine([]float64{0, 0}, []float64{1, 0}))
}
