package vectorstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"tcm-rag/internal/config"
	"tcm-rag/internal/models"
)

type TCMDocument struct {
	bun.BaseModel `bun:"table:tcm_documents,alias:d"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Content       string    `bun:"content,notnull"`
	// 1536 dimensions, fixed by text-embedding-v1
	Embedding []float32 `bun:"embedding,notnull,type:vector(1536)"`
	Source        string    `bun:"source,notnull"`
	Position      int       `bun:"position,notnull"`
}

// PostgresStore is the pgvector-backed index backend, selected with
// store.type: postgres. "Persisted state exists" means the documents
// table is non-empty.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(ctx context.Context, cfg *config.PostgresConfig) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if _, err := db.NewCreateTable().Model((*TCMDocument)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize documents table: %v", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	docs := make([]TCMDocument, len(chunks))
	for i, chunk := range chunks {
		docs[i] = TCMDocument{
			Content:   chunk.Content,
			Embedding: vectors[i],
			Source:    chunk.Source,
			Position:  chunk.Position,
		}
	}

	_, err := s.db.NewInsert().Model(&docs).Exec(ctx)
	return err
}

func (s *PostgresStore) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	var docs []TCMDocument
	err := s.db.NewSelect().
		Model(&docs).
		Column("id", "content", "source", "position").
		OrderExpr("embedding <-> ?", vector).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredChunk, len(docs))
	for i, doc := range docs {
		scored[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				Content:  doc.Content,
				Source:   doc.Source,
				Position: doc.Position,
			},
		}
	}
	return scored, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*TCMDocument)(nil)).Count(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
