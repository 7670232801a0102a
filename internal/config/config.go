package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"legalrag/internal/domain"
)

// DocumentConfig points at the legal text to ingest.
type DocumentConfig struct {
	Path string `yaml:"path"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type         string               `yaml:"type"`
	CacheTTLSecs int                  `yaml:"cache_ttl_secs"`
	OpenAI       OpenAIEmbedderConfig `yaml:"openai"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	ChunkSize         int    `yaml:"chunk_size"`
	ChunkOverlap      int    `yaml:"chunk_overlap"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type     string         `yaml:"type"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	PGVector PGVectorConfig `yaml:"pgvector"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
// An empty APIKeyEnv disables authentication (local instances).
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// PGVectorConfig contains connection details for a Postgres/pgvector store.
type PGVectorConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	Table  string `yaml:"table"`
}

// RetrievalConfig configures the retriever.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// OpenAILLMConfig holds configuration for an OpenAI-compatible chat endpoint.
type OpenAILLMConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// LLMConfig selects the language model and its fixed sampling parameters.
type LLMConfig struct {
	Type        string          `yaml:"type"`
	Temperature float64         `yaml:"temperature"`
	MaxTokens   int             `yaml:"max_tokens"`
	Prompt      string          `yaml:"prompt"`
	OpenAI      OpenAILLMConfig `yaml:"openai"`
}

// IngestConfig controls ingestion into persistent stores.
type IngestConfig struct {
	Reset bool `yaml:"reset"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// LogConfig configures the rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// UIConfig selects the presentation layer.
type UIConfig struct {
	Type string `yaml:"type"`
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Document    DocumentConfig    `yaml:"document"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	LLM         LLMConfig         `yaml:"llm"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	Log         LogConfig         `yaml:"log"`
	UI          UIConfig          `yaml:"ui"`
}

// Ephemeral reports whether the vector index lives only for the process lifetime.
func (c *AppConfig) Ephemeral() bool {
	return c.VectorStore.Type == "memory" || c.VectorStore.Type == ""
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// ${VAR} references are expanded from the environment; keys absent from the file keep their defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*AppConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/legalrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/legalrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "legalrag", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Document: DocumentConfig{Path: "ley.pdf"},
		Embedder: EmbedderConfig{
			Type:         "openai",
			CacheTTLSecs: 600,
			OpenAI: OpenAIEmbedderConfig{
				BaseURL:     "https://api.openai.com/v1/",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "text-embedding-3-small",
				TimeoutSecs: 30,
				BatchSize:   32,
			},
		},
		Chunker: ChunkerConfig{
			Type:              "window",
			ChunkSize:         1000,
			ChunkOverlap:      150,
			SentencesPerChunk: 5,
			OverlapSentences:  1,
		},
		VectorStore: VectorStoreConfig{
			Type: "memory",
			Qdrant: QdrantConfig{
				URL:         "http://localhost:6333",
				APIKeyEnv:   "QDRANT_API_KEY",
				Collection:  "mietrecht-bgb",
				TimeoutSecs: 15,
			},
			PGVector: PGVectorConfig{DSNEnv: "DATABASE_URL", Table: "legal_chunks"},
		},
		Retrieval: RetrievalConfig{TopK: 4},
		LLM: LLMConfig{
			Type:        "openai",
			Temperature: 0.2,
			MaxTokens:   512,
			Prompt:      "german",
			OpenAI: OpenAILLMConfig{
				BaseURL:     "https://api.openai.com/v1/",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "gpt-4o-mini",
				TimeoutSecs: 120,
			},
		},
		Summarizer: SummarizerConfig{Type: "frequency", MaxSentences: 3},
		Log: LogConfig{
			File:       "legalrag.log",
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
		UI: UIConfig{Type: "tui", Addr: ":8080"},
	}
}

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks settings and required credentials, collecting every problem into a
// *domain.ConfigurationError. lookup resolves environment variables (os.LookupEnv in production).
func (c *AppConfig) Validate(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	requireEnv := func(name, what string) {
		if name == "" {
			add("%s: no environment variable configured", what)
			return
		}
		if v, ok := lookup(name); !ok || v == "" {
			add("%s: environment variable %s is not set", what, name)
		}
	}

	if c.Document.Path == "" {
		add("document.path is empty")
	}

	switch c.Chunker.Type {
	case "window", "":
		if c.Chunker.ChunkSize <= 0 {
			add("chunker.chunk_size must be positive")
		}
		if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
			add("chunker.chunk_overlap must be in [0, chunk_size)")
		}
	case "sentence":
		if c.Chunker.SentencesPerChunk <= 0 {
			add("chunker.sentences_per_chunk must be positive")
		}
		if c.Chunker.OverlapSentences >= c.Chunker.SentencesPerChunk {
			add("chunker.overlap_sentences must be smaller than sentences_per_chunk")
		}
	default:
		add("unknown chunker: %s", c.Chunker.Type)
	}

	switch c.Embedder.Type {
	case "openai", "":
		requireEnv(c.Embedder.OpenAI.APIKeyEnv, "embedder")
	case "tfidf":
		if !c.Ephemeral() {
			add("embedder tfidf builds its vocabulary per process and cannot be used with vector store %s", c.VectorStore.Type)
		}
	default:
		add("unknown embedder: %s", c.Embedder.Type)
	}

	switch c.VectorStore.Type {
	case "memory", "":
	case "qdrant":
		if c.VectorStore.Qdrant.URL == "" {
			add("vector_store.qdrant.url is empty")
		}
		if c.VectorStore.Qdrant.Collection == "" {
			add("vector_store.qdrant.collection is empty")
		}
		if c.VectorStore.Qdrant.APIKeyEnv != "" {
			requireEnv(c.VectorStore.Qdrant.APIKeyEnv, "qdrant")
		}
	case "pgvector":
		requireEnv(c.VectorStore.PGVector.DSNEnv, "pgvector")
		if !tableNameRe.MatchString(c.VectorStore.PGVector.Table) {
			add("vector_store.pgvector.table %q is not a valid table name", c.VectorStore.PGVector.Table)
		}
	default:
		add("unknown vector store: %s", c.VectorStore.Type)
	}

	if c.Retrieval.TopK <= 0 {
		add("retrieval.top_k must be positive")
	}

	switch c.LLM.Type {
	case "openai", "":
		requireEnv(c.LLM.OpenAI.APIKeyEnv, "llm")
	default:
		add("unknown llm: %s", c.LLM.Type)
	}
	switch c.LLM.Prompt {
	case "german", "default", "":
	default:
		add("unknown prompt template: %s", c.LLM.Prompt)
	}
	if c.LLM.MaxTokens <= 0 {
		add("llm.max_tokens must be positive")
	}

	switch c.Summarizer.Type {
	case "frequency", "none", "":
	default:
		add("unknown summarizer: %s", c.Summarizer.Type)
	}

	switch c.UI.Type {
	case "tui", "web", "":
	default:
		add("unknown ui: %s", c.UI.Type)
	}

	if len(problems) > 0 {
		return &domain.ConfigurationError{Problems: problems}
	}
	return nil
}
