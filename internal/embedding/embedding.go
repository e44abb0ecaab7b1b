package embedding

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"tcm-rag/internal/config"
)

// Embedder turns text into a fixed-dimension vector. Kept as an interface
// so the index and orchestrator can be tested with a deterministic fake.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// NewDashScopeEmbedder builds an embedder against the DashScope
// OpenAI-compatible endpoint.
func NewDashScopeEmbedder(llmCfg *config.LLMConfig, embCfg *config.EmbeddingConfig, apiKey string) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmCfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(embCfg.Model),
		openai.WithEmbeddingModel(embCfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}
