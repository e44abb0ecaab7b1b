package index

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcm-rag/internal/config"
	"tcm-rag/internal/models"
	"tcm-rag/internal/vectorstore"
)

const fakeDim = 64

// fakeEmbedder produces deterministic vectors from rune histograms, so
// retrieval order is stable across runs without a network endpoint.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.calls++
	v := make([]float32, fakeDim)
	for i, r := range []rune(text) {
		v[(int(r)+i)%fakeDim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		norm = 1
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func testConfig(dataDir, persistDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Corpus.DataDir = dataDir
	cfg.Corpus.PersistDir = persistDir
	return cfg
}

func writeCorpus(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func resultKeys(results []models.ScoredChunk) []string {
	keys := make([]string, len(results))
	for i, res := range results {
		keys[i] = res.Source + "#" + res.Content
	}
	return keys
}

func TestBuildThenReloadYieldsIdenticalRetrieval(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	persistDir := filepath.Join(t.TempDir(), "doc_emb")
	writeCorpus(t, dataDir, map[string]string{
		"qixu.txt":    "气虚证表现为乏力、气短、自汗。治宜补气健脾。",
		"yinxu.txt":   "阴虚证表现为口燥咽干、五心烦热。治宜滋阴降火。",
		"xueyu.txt":   "血瘀证表现为刺痛拒按、舌质紫暗。丹参活血化瘀。",
	})

	embedder := &fakeEmbedder{}
	store, err := vectorstore.NewChromemStore(persistDir, "tcm_corpus")
	require.NoError(t, err)
	require.NoError(t, NewBuilder(testConfig(dataDir, persistDir), embedder, store).BuildOrLoad(ctx))

	queryVec, err := embedder.EmbedQuery(ctx, "气虚证有哪些表现？")
	require.NoError(t, err)
	before, err := store.Search(ctx, queryVec, 3)
	require.NoError(t, err)
	require.NotEmpty(t, before)

	// reload from the persistence directory with a fresh store
	reloaded, err := vectorstore.NewChromemStore(persistDir, "tcm_corpus")
	require.NoError(t, err)
	freshEmbedder := &fakeEmbedder{}
	require.NoError(t, NewBuilder(testConfig(dataDir, persistDir), freshEmbedder, reloaded).BuildOrLoad(ctx))

	// load path: no corpus re-embedding
	assert.Zero(t, freshEmbedder.calls)

	after, err := reloaded.Search(ctx, queryVec, 3)
	require.NoError(t, err)
	assert.Equal(t, resultKeys(before), resultKeys(after))
}

func TestEmptyPersistDirTakesBuildPath(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	persistDir := filepath.Join(t.TempDir(), "doc_emb")
	require.NoError(t, os.MkdirAll(persistDir, 0o755))
	writeCorpus(t, dataDir, map[string]string{
		"qixu.txt": "气虚证表现为乏力、气短、自汗。",
	})

	embedder := &fakeEmbedder{}
	store, err := vectorstore.NewChromemStore(persistDir, "tcm_corpus")
	require.NoError(t, err)
	require.NoError(t, NewBuilder(testConfig(dataDir, persistDir), embedder, store).BuildOrLoad(ctx))

	assert.Positive(t, embedder.calls, "an empty persistence directory must trigger a build")
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestMissingCorpusDirectory(t *testing.T) {
	ctx := context.Background()
	persistDir := filepath.Join(t.TempDir(), "doc_emb")
	cfg := testConfig(filepath.Join(t.TempDir(), "does-not-exist"), persistDir)

	store, err := vectorstore.NewChromemStore(persistDir, "tcm_corpus")
	require.NoError(t, err)

	err = NewBuilder(cfg, &fakeEmbedder{}, store).BuildOrLoad(ctx)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestEmptyCorpusDirectory(t *testing.T) {
	ctx := context.Background()
	persistDir := filepath.Join(t.TempDir(), "doc_emb")
	cfg := testConfig(t.TempDir(), persistDir)

	store, err := vectorstore.NewChromemStore(persistDir, "tcm_corpus")
	require.NoError(t, err)

	err = NewBuilder(cfg, &fakeEmbedder{}, store).BuildOrLoad(ctx)
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestNonTextFilesAreIgnored(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	persistDir := filepath.Join(t.TempDir(), "doc_emb")
	writeCorpus(t, dataDir, map[string]string{
		"qixu.txt":   "气虚证表现为乏力、气短、自汗。",
		"notes.json": `{"skip": "me"}`,
		"image.png":  "\x89PNG",
	})

	store, err := vectorstore.NewChromemStore(persistDir, "tcm_corpus")
	require.NoError(t, err)
	require.NoError(t, NewBuilder(testConfig(dataDir, persistDir), &fakeEmbedder{}, store).BuildOrLoad(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSingleDocumentTopOneRetrieval(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	persistDir := filepath.Join(t.TempDir(), "doc_emb")
	writeCorpus(t, dataDir, map[string]string{
		"qixu.txt": "气虚证表现为乏力、气短、自汗",
	})

	embedder := &fakeEmbedder{}
	store, err := vectorstore.NewChromemStore(persistDir, "tcm_corpus")
	require.NoError(t, err)
	require.NoError(t, NewBuilder(testConfig(dataDir, persistDir), embedder, store).BuildOrLoad(ctx))

	queryVec, err := embedder.EmbedQuery(ctx, "气虚证有哪些表现？")
	require.NoError(t, err)
	results, err := store.Search(ctx, queryVec, 1)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "气虚证表现为乏力、气短、自汗", results[0].Content)
	assert.Equal(t, "qixu.txt", results[0].Source)
}
