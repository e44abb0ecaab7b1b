package vectorstore

import (
	"context"
	"fmt"

	"tcm-rag/internal/config"
	"tcm-rag/internal/models"
)

// Store is the corpus index: a persistent mapping from chunks to
// embedding vectors with nearest-neighbor lookup. Read-only after build.
type Store interface {
	Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

// New selects the index backend from config.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Type {
	case "", "chromem":
		return NewChromemStore(cfg.Corpus.PersistDir, cfg.RAG.Collection)
	case "postgres":
		return NewPostgresStore(ctx, &cfg.Store.Postgres)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
}
