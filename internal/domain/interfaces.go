package domain

import "context"

// Page is one page of extracted document text. Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Document represents the single legal text loaded into the system.
type Document struct {
	ID     string
	Path   string
	Source string
	Pages  []Page
}

// Content joins all page texts.
func (d Document) Content() string {
	var n int
	for _, p := range d.Pages {
		n += len(p.Text) + 1
	}
	buf := make([]byte, 0, n)
	for i, p := range d.Pages {
		if i > 0 {
			buf = append(buf, '\n')
		}
		buf = append(buf, p.Text...)
	}
	return string(buf)
}

// Chunk is a contiguous span of a page used as a retrieval unit.
// Index is the position across the whole document, Offset the rune offset within the page.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Text       string
	Page       int
	Index      int
	Offset     int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Answer is the outcome of one question. It is never stored.
type Answer struct {
	Question string
	Text     string
	Sources  []SearchResult
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	DocumentID string
	Pages      int
	Chunks     int
	Stored     int
	Summary    string
}

// GenerateOptions are the fixed sampling parameters passed to the language model.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Loader reads a document from disk.
type Loader interface {
	Load(path string) (Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore persists vectors and supports similarity search.
// Init with dimension 0 only connects to an existing index.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Generator produces text from a prompt using a language model.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// RAGService defines the operations exposed by the application core.
type RAGService interface {
	IngestDocument(ctx context.Context, path string) (IngestReport, error)
	Ask(ctx context.Context, question string) (*Answer, error)
	IndexSize(ctx context.Context) (int, error)
}
