package pgvector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"legalrag/internal/domain"
)

// chunkRow is one stored chunk. The table name is configurable, so rows are always
// addressed through db.Table.
type chunkRow struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DocumentID string          `gorm:"column:document_id"`
	ChunkID    string          `gorm:"column:chunk_id"`
	Source     string          `gorm:"column:source"`
	Page       int             `gorm:"column:page"`
	ChunkIndex int             `gorm:"column:chunk_index"`
	CharOffset int             `gorm:"column:char_offset"`
	Text       string          `gorm:"column:text"`
	Embedding  pgvector.Vector `gorm:"column:embedding"`
}

type scoredRow struct {
	chunkRow
	Score float64 `gorm:"column:score"`
}

func (r chunkRow) chunk() domain.Chunk {
	return domain.Chunk{
		DocumentID: r.DocumentID,
		ChunkID:    r.ChunkID,
		Source:     r.Source,
		Page:       r.Page,
		Index:      r.ChunkIndex,
		Offset:     r.CharOffset,
		Text:       r.Text,
	}
}

type Config struct {
	DSN   string
	Table string
}

// Storage keeps chunks in a Postgres table with a pgvector column and ranks them by
// cosine distance.
type Storage struct {
	db        *gorm.DB
	table     string
	dimension int
}

// Open prepares the connection pool without dialing; the first query connects. The gorm
// logger is silenced so it never writes to the terminal.
func Open(cfg Config) (*Storage, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	return NewWithDB(db, cfg.Table), nil
}

// NewWithDB wraps an existing connection. table must already be validated as an identifier.
func NewWithDB(db *gorm.DB, table string) *Storage {
	if table == "" {
		table = "legal_chunks"
	}
	return &Storage{db: db, table: table}
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension < 0 {
		return errors.New("invalid dimension")
	}
	exists, err := s.tableExists(ctx)
	if err != nil {
		return err
	}
	db := s.db.WithContext(ctx)
	if exists {
		size, err := s.columnDimension(ctx)
		if err != nil {
			return err
		}
		if dimension > 0 && size > 0 && size != dimension {
			return fmt.Errorf("table %s has dimension %d, embedder produces %d", s.table, size, dimension)
		}
		s.dimension = size
		return nil
	}
	if dimension == 0 {
		return fmt.Errorf("table %s: %w", s.table, domain.ErrIndexNotFound)
	}
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return err
	}
	if err := db.Exec(createTableSQL(s.table, dimension)).Error; err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

// tableExists reports connection failures, unlike Migrator().HasTable.
func (s *Storage) tableExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).Raw("SELECT to_regclass(?) IS NOT NULL", s.table).Scan(&exists).Error
	return exists, err
}

// columnDimension reads the declared vector size; for the vector type atttypmod holds it.
func (s *Storage) columnDimension(ctx context.Context) (int, error) {
	var size int
	err := s.db.WithContext(ctx).
		Raw("SELECT atttypmod FROM pg_attribute WHERE attrelid = ?::regclass AND attname = 'embedding'", s.table).
		Scan(&size).Error
	return size, err
}

// Upsert inserts every chunk under a fresh id; re-ingesting the same document adds rows.
func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]chunkRow, len(chunks))
	for i, c := range chunks {
		rows[i] = chunkRow{
			ID:         uuid.New(),
			DocumentID: c.DocumentID,
			ChunkID:    c.ChunkID,
			Source:     c.Source,
			Page:       c.Page,
			ChunkIndex: c.Index,
			CharOffset: c.Offset,
			Text:       c.Text,
			Embedding:  pgvector.NewVector(toFloat32(vectors[i])),
		}
	}
	return s.db.WithContext(ctx).Table(s.table).CreateInBatches(rows, 100).Error
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	query := pgvector.NewVector(toFloat32(vector))
	var rows []scoredRow
	err := s.db.WithContext(ctx).
		Table(s.table).
		Select("*, 1 - (embedding <=> ?) AS score", query).
		Order(gorm.Expr("embedding <=> ?", query)).
		Limit(topK).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, len(rows))
	for i, r := range rows {
		results[i] = domain.SearchResult{Chunk: r.chunk(), Score: r.Score}
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	exists, err := s.tableExists(ctx)
	if err != nil || !exists {
		return 0, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Table(s.table).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// Clear removes every row but keeps the table and its dimension.
func (s *Storage) Clear(ctx context.Context) error {
	exists, err := s.tableExists(ctx)
	if err != nil || !exists {
		return err
	}
	return s.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s", s.table)).Error
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func createTableSQL(table string, dimension int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id uuid PRIMARY KEY,
	document_id text NOT NULL,
	chunk_id text NOT NULL,
	source text NOT NULL,
	page integer NOT NULL,
	chunk_index integer NOT NULL,
	char_offset integer NOT NULL,
	text text NOT NULL,
	embedding vector(%d) NOT NULL
)`, table, dimension)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
