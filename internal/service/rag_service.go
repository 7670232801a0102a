package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"legalrag/internal/domain"
	"legalrag/internal/prompt"
)

// Components are the capability adapters the service orchestrates.
type Components struct {
	Loader     domain.Loader
	Chunker    domain.Chunker
	Embedder   domain.Embedder
	Store      domain.VectorStore
	Generator  domain.Generator
	Summarizer domain.Summarizer
	Prompt     *prompt.Template
}

type Options struct {
	TopK             int
	Reset            bool
	SummarySentences int
	Generate         domain.GenerateOptions
}

type RAGServiceImpl struct {
	Components
	opts Options
	log  *zap.Logger

	ingestMu sync.Mutex
	mu       sync.RWMutex
	ready    bool
	chunks   []domain.Chunk
}

func NewRAGService(c Components, opts Options, log *zap.Logger) *RAGServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	return &RAGServiceImpl{Components: c, opts: opts, log: log}
}

// IngestDocument loads, chunks, embeds and stores one document, then summarises it.
func (s *RAGServiceImpl) IngestDocument(ctx context.Context, path string) (domain.IngestReport, error) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	start := time.Now()

	doc, err := s.Loader.Load(path)
	if err != nil {
		var loadErr *domain.DocumentLoadError
		if !errors.As(err, &loadErr) {
			err = &domain.DocumentLoadError{Path: path, Err: err}
		}
		s.log.Error("load document", zap.String("path", path), zap.Error(err))
		return domain.IngestReport{}, err
	}
	chunks, err := s.Chunker.Chunk(doc)
	if err != nil {
		return domain.IngestReport{}, &domain.DocumentLoadError{Path: path, Err: err}
	}
	if len(chunks) == 0 {
		return domain.IngestReport{}, &domain.DocumentLoadError{Path: path, Err: errors.New("document produced no chunks")}
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	if err := s.Embedder.Prepare(texts); err != nil {
		return domain.IngestReport{}, s.fail("embedder", err)
	}
	vectors, err := s.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.IngestReport{}, s.fail("embedder", err)
	}
	if len(vectors) != len(chunks) || len(vectors[0]) == 0 {
		return domain.IngestReport{}, s.fail("embedder", errors.New("embedder returned no vectors"))
	}

	if s.opts.Reset {
		if err := s.Store.Clear(ctx); err != nil {
			return domain.IngestReport{}, s.fail("vector store", err)
		}
		s.mu.Lock()
		s.chunks = nil
		s.mu.Unlock()
	}
	err = s.Store.Init(ctx, len(vectors[0]))
	if err == nil {
		err = s.Store.Upsert(ctx, chunks, vectors)
	}
	if err != nil {
		if s.opts.Reset {
			s.log.Warn("index was cleared before the failed ingest and stays empty until rebuilt", zap.String("path", path))
		}
		return domain.IngestReport{}, s.fail("vector store", err)
	}
	stored, err := s.Store.Count(ctx)
	if err != nil {
		return domain.IngestReport{}, s.fail("vector store", err)
	}

	s.mu.Lock()
	s.ready = true
	s.chunks = chunks
	s.mu.Unlock()

	summary, err := s.Summarizer.Summarize(doc.Content(), s.opts.SummarySentences)
	if err != nil {
		// a missing summary does not invalidate the index
		s.log.Warn("summarize document", zap.Error(err))
	}

	s.log.Info("document ingested",
		zap.String("path", path),
		zap.String("document_id", doc.ID),
		zap.Int("pages", len(doc.Pages)),
		zap.Int("chunks", len(chunks)),
		zap.Int("stored", stored),
		zap.String("embedder", s.Embedder.Name()),
		zap.Duration("took", time.Since(start)),
	)
	return domain.IngestReport{
		DocumentID: doc.ID,
		Pages:      len(doc.Pages),
		Chunks:     len(chunks),
		Stored:     stored,
		Summary:    summary,
	}, nil
}

// Ask answers one question from the retrieved chunks. With nothing retrieved the fixed
// no-information phrase is returned and the model is not called.
func (s *RAGServiceImpl) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	results, err := s.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	answer := &domain.Answer{Question: question, Sources: results}
	if len(results) == 0 {
		s.log.Info("no chunks retrieved", zap.String("question", question))
		answer.Text = prompt.NoAnswer
		return answer, nil
	}

	p, err := s.Prompt.Render(question, results)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	text, err := s.Generator.Generate(ctx, p, s.opts.Generate)
	if err != nil {
		return nil, s.fail("llm", err)
	}
	answer.Text = strings.TrimSpace(text)
	if answer.Text == "" {
		answer.Text = prompt.NoAnswer
	}
	s.log.Info("question answered",
		zap.String("question", question),
		zap.Int("sources", len(results)),
		zap.String("model", s.Generator.Name()),
		zap.Duration("took", time.Since(start)),
	)
	return answer, nil
}

// Retrieve returns at most TopK chunks ordered by descending similarity to the question.
func (s *RAGServiceImpl) Retrieve(ctx context.Context, question string) ([]domain.SearchResult, error) {
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	vec, err := s.Embedder.Embed(ctx, question)
	if err != nil {
		return nil, s.fail("embedder", err)
	}

	s.mu.RLock()
	local := s.chunks
	s.mu.RUnlock()
	if isZero(vec) && len(local) > 0 {
		// out-of-vocabulary query; fall back to token overlap
		return lexicalSearch(local, question, s.opts.TopK), nil
	}

	res, err := s.Store.Search(ctx, vec, s.opts.TopK)
	if err != nil {
		return nil, s.fail("vector store", err)
	}
	return res, nil
}

// IndexSize reports how many chunks the vector index holds.
func (s *RAGServiceImpl) IndexSize(ctx context.Context) (int, error) {
	n, err := s.Store.Count(ctx)
	if err != nil {
		return 0, s.fail("vector store", err)
	}
	return n, nil
}

// ensureIndex connects to an existing index once. ErrIndexNotFound passes through unwrapped
// so the UI can offer to build it.
func (s *RAGServiceImpl) ensureIndex(ctx context.Context) error {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if ready {
		return nil
	}
	if err := s.Store.Init(ctx, 0); err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return domain.ErrIndexNotFound
		}
		return s.fail("vector store", err)
	}
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *RAGServiceImpl) fail(service string, err error) error {
	err = domain.External(service, err)
	s.log.Error("external service failed", zap.String("service", service), zap.Error(err))
	return err
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\d+[a-z]?`)

// lexicalSearch ranks chunks by the Ochiai coefficient of their token sets and drops chunks
// sharing no token with the question.
func lexicalSearch(chunks []domain.Chunk, question string, topK int) []domain.SearchResult {
	qset := tokenSet(question)
	out := make([]domain.SearchResult, 0, len(chunks))
	for _, ch := range chunks {
		if score := ochiai(qset, tokenSet(ch.Text)); score > 0 {
			out = append(out, domain.SearchResult{Chunk: ch, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, stop := stopwords[t]; !stop {
			m[t] = struct{}{}
		}
	}
	return m
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}

var stopwords = map[string]struct{}{
	"der": {}, "die": {}, "das": {}, "den": {}, "dem": {}, "des": {}, "ein": {}, "eine": {},
	"und": {}, "oder": {}, "ist": {}, "sind": {}, "wie": {}, "was": {}, "wer": {}, "wann": {},
	"ich": {}, "mein": {}, "meine": {}, "meiner": {}, "für": {}, "mit": {}, "von": {}, "zu": {},
	"in": {}, "im": {}, "auf": {}, "bei": {}, "lange": {}, "darf": {}, "kann": {},
}
