package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"tcm-rag/internal/chunker"
	"tcm-rag/internal/config"
	"tcm-rag/internal/embedding"
	"tcm-rag/internal/models"
	"tcm-rag/internal/parser"
	"tcm-rag/internal/vectorstore"
)

// ErrNoDocuments is returned when the corpus directory is missing or holds
// no files with a configured extension.
var ErrNoDocuments = errors.New("no documents found in corpus directory")

// Builder fills a vector store from the corpus, unless the store already
// holds persisted state. There is no staleness check between the corpus
// and the persisted index: to rebuild, clear the persistence directory
// (or truncate the documents table).
type Builder struct {
	cfg      *config.Config
	embedder embedding.Embedder
	store    vectorstore.Store
	splitter *chunker.Splitter
}

func NewBuilder(cfg *config.Config, embedder embedding.Embedder, store vectorstore.Store) *Builder {
	return &Builder{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		splitter: chunker.New(cfg.Corpus.ChunkSize),
	}
}

// BuildOrLoad prefers previously persisted state whenever it exists; only
// an empty store triggers a corpus ingest.
func (b *Builder) BuildOrLoad(ctx context.Context) error {
	count, err := b.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to inspect stored index: %v", err)
	}
	if count > 0 {
		log.Info().Int("chunks", count).Str("persist_dir", b.cfg.Corpus.PersistDir).
			Msg("Loading stored vector index")
		return nil
	}

	log.Info().Str("data_dir", b.cfg.Corpus.DataDir).Msg("Building vector index from corpus")
	chunks, err := b.loadCorpus()
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := b.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed corpus: %v", err)
	}

	if err := b.store.Add(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("failed to store index: %v", err)
	}

	log.Info().Int("chunks", len(chunks)).Str("persist_dir", b.cfg.Corpus.PersistDir).
		Msg("Saved vector index")
	return nil
}

// loadCorpus enumerates corpus files with a configured extension and
// splits them into chunks. Files with other extensions are ignored.
func (b *Builder) loadCorpus() ([]models.Chunk, error) {
	entries, err := os.ReadDir(b.cfg.Corpus.DataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoDocuments, b.cfg.Corpus.DataDir)
		}
		return nil, err
	}

	var chunks []models.Chunk
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !b.allowedExtension(ext) {
			continue
		}
		path := filepath.Join(b.cfg.Corpus.DataDir, entry.Name())
		text, err := parser.ExtractText(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %v", entry.Name(), err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, b.splitter.Split(text, entry.Name())...)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, b.cfg.Corpus.DataDir)
	}
	return chunks, nil
}

func (b *Builder) allowedExtension(ext string) bool {
	for _, allowed := range b.cfg.Corpus.Extensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}
