package vectorstore

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"tcm-rag/internal/models"
)

const compress = false

// ChromemStore is the default index backend: a chromem-go collection
// persisted under the configured persistence directory. Opening the store
// loads whatever state the directory already holds; there is no staleness
// check against the source corpus.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

func NewChromemStore(persistDir, collectionName string) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(persistDir, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}

	// embeddings are always supplied explicitly, so no embedding func
	c, err := db.GetOrCreateCollection(collectionName, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &ChromemStore{db: db, collection: c}, nil
}

func (s *ChromemStore) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("%s-%d", chunk.Source, chunk.Position),
			Content: chunk.Content,
			Metadata: map[string]string{
				"source":   chunk.Source,
				"position": strconv.Itoa(chunk.Position),
			},
			Embedding: vectors[i],
		}
	}

	err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	// chromem rejects nResults greater than the collection size
	if k > count {
		k = count
	}

	results, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	scored := make([]models.ScoredChunk, len(results))
	for i, res := range results {
		position, _ := strconv.Atoi(res.Metadata["position"])
		scored[i] = models.ScoredChunk{
			Chunk: models.Chunk{
				Content:  res.Content,
				Source:   res.Metadata["source"],
				Position: position,
			},
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding func not configured: embeddings must be supplied explicitly")
}
