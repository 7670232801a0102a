package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"legalrag/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
// Its contents live only as long as the process.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

func NewStorage() *Storage { return &Storage{} }

// Init sets the dimension on first use. Re-initialising with the same dimension keeps the
// stored entries; dimension 0 only checks that the index exists.
func (s *Storage) Init(_ context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dimension == 0 {
		if s.dimension == 0 {
			return domain.ErrIndexNotFound
		}
		return nil
	}
	if dimension < 0 {
		return errors.New("invalid dimension")
	}
	if s.dimension != 0 && s.dimension != dimension && len(s.vectors) > 0 {
		return errors.New("vector dimension mismatch")
	}
	s.dimension = dimension
	return nil
}

// Upsert appends entries; the same chunk ingested twice is stored twice.
func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return domain.ErrIndexNotFound
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.chunks = append(s.chunks, chunks...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns at most topK entries ordered by descending cosine similarity.
func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 4
	}
	results := make([]domain.SearchResult, len(s.vectors))
	for i := range s.vectors {
		results[i] = domain.SearchResult{Chunk: s.chunks[i], Score: cosine(s.vectors[i], vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.chunks = nil
	return nil
}

func (s *Storage) Close() error { return nil }

func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
