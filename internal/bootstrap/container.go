// Package bootstrap assembles the application's components from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"legalrag/internal/chunker"
	"legalrag/internal/config"
	"legalrag/internal/domain"
	"legalrag/internal/embedding"
	"legalrag/internal/embedding/openai"
	"legalrag/internal/embedding/tfidf"
	llmopenai "legalrag/internal/llm/openai"
	"legalrag/internal/loader"
	"legalrag/internal/prompt"
	"legalrag/internal/service"
	"legalrag/internal/summarizer"
	"legalrag/internal/vectorstore/memory"
	"legalrag/internal/vectorstore/pgvector"
	"legalrag/internal/vectorstore/qdrant"
)

// Container holds the components built once at startup and shared by the UIs.
type Container struct {
	Config  *config.AppConfig
	Log     *zap.Logger
	Service *service.RAGServiceImpl
	Store   domain.VectorStore

	// Report is set when the document was ingested during startup.
	Report *domain.IngestReport
	// IndexSize is the number of stored chunks seen at startup.
	IndexSize int
	// StartupErr is set when a persistent index could not be reached at startup. It is
	// shown by the UIs and requests keep reporting the outage until the store is back.
	StartupErr error
}

// NewContainer validates cfg and builds every component. For an ephemeral index the document
// is ingested right away and any load failure aborts startup. An unreachable persistent index
// is not fatal; it is recorded in StartupErr.
func NewContainer(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Container, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(os.LookupEnv); err != nil {
		return nil, err
	}

	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, domain.External("embedder", err)
	}
	gen, err := newGenerator(cfg.LLM)
	if err != nil {
		return nil, domain.External("llm", err)
	}
	tmpl, err := prompt.New(cfg.LLM.Prompt)
	if err != nil {
		return nil, err
	}
	st, err := newStore(cfg.VectorStore)
	if err != nil {
		return nil, domain.External("vector store", err)
	}

	var sum domain.Summarizer = summarizer.NewFrequencySummarizer()
	if cfg.Summarizer.Type == "none" {
		sum = summarizer.Noop{}
	}

	svc := service.NewRAGService(service.Components{
		Loader:     loader.Auto{},
		Chunker:    ch,
		Embedder:   emb,
		Store:      st,
		Generator:  gen,
		Summarizer: sum,
		Prompt:     tmpl,
	}, service.Options{
		TopK:             cfg.Retrieval.TopK,
		Reset:            cfg.Ingest.Reset,
		SummarySentences: cfg.Summarizer.MaxSentences,
		Generate: domain.GenerateOptions{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		},
	}, log.Named("service"))

	c := &Container{Config: cfg, Log: log, Service: svc, Store: st}
	if cfg.Ephemeral() {
		report, err := svc.IngestDocument(ctx, cfg.Document.Path)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		c.Report = &report
		c.IndexSize = report.Stored
	} else {
		n, err := svc.IndexSize(ctx)
		if err != nil {
			log.Warn("vector store unreachable at startup", zap.String("vector_store", cfg.VectorStore.Type), zap.Error(err))
			c.StartupErr = err
		}
		c.IndexSize = n
	}
	log.Info("container ready",
		zap.String("embedder", emb.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("llm", gen.Name()),
		zap.Int("index_size", c.IndexSize),
	)
	return c, nil
}

// Persistent reports whether the index outlives the process and can be rebuilt on demand.
func (c *Container) Persistent() bool { return !c.Config.Ephemeral() }

func (c *Container) Close() error {
	_ = c.Log.Sync()
	return c.Store.Close()
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "window", "":
		return chunker.NewWindowChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	case "sentence":
		return chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	var emb domain.Embedder
	switch cfg.Type {
	case "tfidf":
		emb = tfidf.NewEmbedder()
	case "openai", "":
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, err
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.CacheTTLSecs > 0 {
		emb = embedding.NewCachedEmbedder(emb, time.Duration(cfg.CacheTTLSecs)*time.Second)
	}
	return emb, nil
}

func newStore(cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewStorage(), nil
	case "qdrant":
		var key string
		if cfg.Qdrant.APIKeyEnv != "" {
			key = os.Getenv(cfg.Qdrant.APIKeyEnv)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     key,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "pgvector":
		return pgvector.Open(pgvector.Config{
			DSN:   os.Getenv(cfg.PGVector.DSNEnv),
			Table: cfg.PGVector.Table,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

func newGenerator(cfg config.LLMConfig) (domain.Generator, error) {
	switch cfg.Type {
	case "openai", "":
		return llmopenai.NewGenerator(llmopenai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown llm: %s", cfg.Type)
	}
}
