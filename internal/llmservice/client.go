package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"tcm-rag/internal/config"
)

// Generator produces an answer for a rendered prompt, either as one
// complete string or as a finite stream of fragments. No retries, no
// fallback: endpoint errors propagate to the caller.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateStream returns a fragment channel that is closed when the
	// endpoint signals completion, and an error channel carrying at most
	// one terminal error. The sequence is not restartable.
	GenerateStream(ctx context.Context, prompt string) (<-chan string, <-chan error)
}

// Client calls the DashScope OpenAI-compatible chat completions endpoint.
type Client struct {
	llm         *openai.LLM
	temperature float64
	maxTokens   int
}

func NewClient(llmCfg *config.LLMConfig, apiKey string) (*Client, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmCfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(llmCfg.Model),
	)
	if err != nil {
		return nil, err
	}
	return &Client{
		llm:         llm,
		temperature: llmCfg.Temperature,
		maxTokens:   llmCfg.MaxTokens,
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := c.llm.GenerateContent(ctx, promptMessages(prompt),
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("empty response from generation endpoint")
	}
	return res.Choices[0].Content, nil
}

func (c *Client) GenerateStream(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)
		_, err := c.llm.GenerateContent(ctx, promptMessages(prompt),
			llms.WithTemperature(c.temperature),
			llms.WithMaxTokens(c.maxTokens),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case out <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			errc <- err
		}
	}()

	return out, errc
}

func promptMessages(prompt string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}
}
