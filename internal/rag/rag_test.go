package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcm-rag/internal/models"
)

type fakeStore struct {
	results     []models.ScoredChunk
	searchCalls int
	lastK       int
}

func (s *fakeStore) Add(context.Context, []models.Chunk, [][]float32) error { return nil }

func (s *fakeStore) Search(_ context.Context, _ []float32, k int) ([]models.ScoredChunk, error) {
	s.searchCalls++
	s.lastK = k
	return s.results, nil
}

func (s *fakeStore) Count(context.Context) (int, error) { return len(s.results), nil }

type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	f.calls++
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

// fakeGenerator replays a canned answer, in fragments when streaming.
type fakeGenerator struct {
	answer     string
	calls      int
	lastPrompt string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.lastPrompt = prompt
	return g.answer, nil
}

func (g *fakeGenerator) GenerateStream(_ context.Context, prompt string) (<-chan string, <-chan error) {
	g.calls++
	g.lastPrompt = prompt
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		runes := []rune(g.answer)
		for start := 0; start < len(runes); start += 3 {
			end := start + 3
			if end > len(runes) {
				end = len(runes)
			}
			out <- string(runes[start:end])
		}
	}()
	return out, errc
}

func scored(texts ...string) []models.ScoredChunk {
	results := make([]models.ScoredChunk, len(texts))
	for i, text := range texts {
		results[i] = models.ScoredChunk{Chunk: models.Chunk{Content: text, Source: "tcm.txt", Position: i}}
	}
	return results
}

func TestEmptyQuestionShortCircuits(t *testing.T) {
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{answer: "should never be produced"}
	r := New(&fakeStore{}, embedder, generator, 5)

	for _, question := range []string{"", "   ", " \n\t "} {
		_, err := r.Query(context.Background(), question)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}

	assert.Zero(t, embedder.calls, "embedding endpoint must not be called")
	assert.Zero(t, generator.calls, "generation endpoint must not be called")
}

func TestQueryStreamEmptyQuestion(t *testing.T) {
	generator := &fakeGenerator{answer: "x"}
	r := New(&fakeStore{}, &fakeEmbedder{}, generator, 5)

	fragments, errs := r.QueryStream(context.Background(), "  ")

	var got []string
	for fragment := range fragments {
		got = append(got, fragment)
	}
	assert.Empty(t, got)
	assert.ErrorIs(t, <-errs, ErrEmptyQuery)
	assert.Zero(t, generator.calls)
}

func TestQueryRendersPromptWithRankedContext(t *testing.T) {
	store := &fakeStore{results: scored("丹参活血化瘀。", "黄芪补气固表。")}
	generator := &fakeGenerator{answer: "答案"}
	r := New(store, &fakeEmbedder{}, generator, 2)

	answer, err := r.Query(context.Background(), "气虚如何调理？")
	require.NoError(t, err)
	assert.Equal(t, "答案", answer)
	assert.Equal(t, 2, store.lastK)

	prompt := generator.lastPrompt
	assert.Contains(t, prompt, "Query: 气虚如何调理？")
	assert.Contains(t, prompt, "Answer: ")

	// retrieved chunks appear in rank order
	first := strings.Index(prompt, "丹参活血化瘀。")
	second := strings.Index(prompt, "黄芪补气固表。")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestStreamConcatenationMatchesBlockingAnswer(t *testing.T) {
	store := &fakeStore{results: scored("气虚证表现为乏力、气短、自汗。")}
	generator := &fakeGenerator{answer: "气虚证治宜补气健脾，方用四君子汤加减。"}
	r := New(store, &fakeEmbedder{}, generator, 1)

	blocking, err := r.Query(context.Background(), "气虚怎么办？")
	require.NoError(t, err)

	fragments, errs := r.QueryStream(context.Background(), "气虚怎么办？")
	var streamed strings.Builder
	for fragment := range fragments {
		streamed.WriteString(fragment)
	}
	require.NoError(t, <-errs)

	assert.Equal(t, blocking, streamed.String())
}

func TestDefaultTopK(t *testing.T) {
	store := &fakeStore{results: scored("内容。")}
	r := New(store, &fakeEmbedder{}, &fakeGenerator{answer: "答"}, 0)

	_, err := r.Query(context.Background(), "问题")
	require.NoError(t, err)
	assert.Equal(t, defaultTopK, store.lastK)
}
