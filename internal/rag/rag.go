package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"tcm-rag/internal/embedding"
	"tcm-rag/internal/llmservice"
	"tcm-rag/internal/models"
	"tcm-rag/internal/vectorstore"
)

// ErrEmptyQuery is returned before any endpoint call when the question is
// empty or whitespace-only. Callers map it to models.EmptyQueryReply.
var ErrEmptyQuery = errors.New("empty query")

const defaultTopK = 5

// RAG retrieves the top-k chunks for a question, renders the QA prompt
// and submits it to the generation endpoint. Endpoint errors propagate
// uncaught: no retry, no fallback.
type RAG struct {
	store     vectorstore.Store
	embedder  embedding.Embedder
	generator llmservice.Generator
	topK      int
}

func New(store vectorstore.Store, embedder embedding.Embedder, generator llmservice.Generator, topK int) *RAG {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &RAG{store: store, embedder: embedder, generator: generator, topK: topK}
}

// Query answers the question in one blocking call.
func (r *RAG) Query(ctx context.Context, question string) (string, error) {
	prompt, err := r.buildPrompt(ctx, question)
	if err != nil {
		return "", err
	}
	return r.generator.Generate(ctx, prompt)
}

// QueryStream answers the question as a finite fragment stream. The
// fragment channel is closed on completion; the error channel carries at
// most one terminal error.
func (r *RAG) QueryStream(ctx context.Context, question string) (<-chan string, <-chan error) {
	prompt, err := r.buildPrompt(ctx, question)
	if err != nil {
		out := make(chan string)
		close(out)
		errc := make(chan error, 1)
		errc <- err
		close(errc)
		return out, errc
	}
	return r.generator.GenerateStream(ctx, prompt)
}

func (r *RAG) buildPrompt(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuery
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %v", err)
	}

	results, err := r.store.Search(ctx, queryVector, r.topK)
	if err != nil {
		return "", fmt.Errorf("failed to search index: %v", err)
	}
	log.Debug().Int("retrieved", len(results)).Str("question", question).Msg("Retrieved context chunks")

	var contextStr strings.Builder
	for i, res := range results {
		if i > 0 {
			contextStr.WriteString(models.ContextSeparator)
		}
		contextStr.WriteString(res.Content)
	}

	return models.RenderPrompt(contextStr.String(), question), nil
}
