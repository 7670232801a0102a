package chunker

import (
	"errors"
	"strconv"
	"strings"

	"legalrag/internal/domain"
)

// WindowChunker slides a fixed-size rune window over every page.
// Consecutive chunks of one page share exactly overlap runes.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker creates a window chunker. size must exceed overlap.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 {
		return nil, errors.New("chunk size must be positive")
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.New("chunk overlap must be in [0, size)")
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

// Chunk implements domain.Chunker.
func (c *WindowChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	step := c.size - c.overlap
	idx := 0
	for _, page := range document.Pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		runes := []rune(page.Text)
		for start := 0; start < len(runes); start += step {
			end := start + c.size
			if end > len(runes) {
				end = len(runes)
			}
			chunks = append(chunks, domain.Chunk{
				DocumentID: document.ID,
				ChunkID:    document.ID + ":" + strconv.Itoa(idx),
				Source:     document.Source,
				Text:       string(runes[start:end]),
				Page:       page.Number,
				Index:      idx,
				Offset:     start,
			})
			idx++
			if end == len(runes) {
				break
			}
		}
	}
	return chunks, nil
}
