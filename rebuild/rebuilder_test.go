package rebuild

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newsdex/ai/mock"
	"github.com/poiesic/newsdex/core"
	badgerstore "github.com/poiesic/newsdex/storage/badger"
)

func testConfig() *Config {
	return &Config{
		Dim:            384,
		BatchSize:      10,
		ReportInterval: 10,
		MaxRetries:     2,
		RetryDelay:     1 * time.Millisecond,
	}
}

func TestRebuild_EmptyCorpus(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	rebuilder, err := NewRebuilder(docRepo, chunkRepo, mock.NewMockEmbedder(), nil, testConfig(), io.Discard)
	require.NoError(t, err)

	result, err := rebuilder.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Documents)
	assert.Equal(t, 0, result.Chunks)
	assert.Equal(t, 0, result.Vectors.Len())
	assert.Equal(t, 0, result.Terms.Len())
}

func TestRebuild_RederivesChunksAndIndexes(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	_, err = docRepo.AddDocuments(ctx,
		&core.Document{
			Id:    1,
			Title: "Central bank raises rates",
			Body:  "The central bank raised its benchmark rate. " + strings.Repeat("Markets reacted swiftly to the decision. ", 12),
		},
		&core.Document{
			Id:    2,
			Title: "Cup final goes to penalties",
			Body:  "The final was decided from the spot after extra time.",
		},
	)
	require.NoError(t, err)

	// A stale chunk that re-segmentation must replace
	_, err = chunkRepo.AddChunks(ctx, &core.Chunk{
		Id:         core.ChunkID(1, 99, "stale"),
		DocumentId: 1,
		Seq:        99,
		Text:       "stale",
	})
	require.NoError(t, err)

	rebuilder, err := NewRebuilder(docRepo, chunkRepo, mock.NewMockEmbedder(), nil, testConfig(), io.Discard)
	require.NoError(t, err)

	result, err := rebuilder.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Documents)
	assert.Greater(t, result.Chunks, 2)

	// Stored chunks match what the rebuild reported
	count, err := chunkRepo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, result.Chunks, count)

	// The stale chunk is gone
	for _, chunk := range mustChunks(t, chunkRepo, 1) {
		assert.NotEqual(t, "stale", chunk.Text)
		assert.Len(t, chunk.Vector, 384, "chunks carry normalized embeddings")
	}

	// Fresh indexes cover every chunk
	assert.Equal(t, result.Chunks, result.Vectors.Len())
	assert.Equal(t, result.Chunks, result.Terms.Len())

	// The fresh vector index answers queries
	chunks := mustChunks(t, chunkRepo, 2)
	require.NotEmpty(t, chunks)
	res, err := result.Vectors.Query(chunks[0].Vector, 1)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, chunks[0].Id, res.Hits[0].ChunkID)
}

func TestRebuild_Idempotent(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	_, err = docRepo.AddDocuments(ctx, &core.Document{
		Id:    1,
		Title: "Stable content",
		Body:  "Identical content must reproduce the identical chunk set.",
	})
	require.NoError(t, err)

	rebuilder, err := NewRebuilder(docRepo, chunkRepo, mock.NewMockEmbedder(), nil, testConfig(), io.Discard)
	require.NoError(t, err)

	first, err := rebuilder.Rebuild(ctx)
	require.NoError(t, err)
	second, err := rebuilder.Rebuild(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Chunks)

	count, err := chunkRepo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Chunks, count, "repeat rebuilds must not accumulate chunks")
}

func TestRebuild_EmbedderFailure(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	_, err = docRepo.AddDocuments(ctx, &core.Document{
		Id:    1,
		Title: "Doomed",
		Body:  "This document cannot be embedded.",
	})
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("backend down")
	}

	rebuilder, err := NewRebuilder(docRepo, chunkRepo, embedder, nil, testConfig(), io.Discard)
	require.NoError(t, err)

	_, err = rebuilder.Rebuild(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestRebuild_ProbesDimensionWhenUnset(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	config := testConfig()
	config.Dim = 0

	rebuilder, err := NewRebuilder(docRepo, chunkRepo, mock.NewMockEmbedder(), nil, config, io.Discard)
	require.NoError(t, err)

	result, err := rebuilder.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 384, result.Vectors.Dim())
}

func TestNewRebuilder_Validation(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewRebuilder(nil, chunkRepo, mock.NewMockEmbedder(), nil, nil, io.Discard)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)

	_, err = NewRebuilder(docRepo, nil, mock.NewMockEmbedder(), nil, nil, io.Discard)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewRebuilder(docRepo, chunkRepo, nil, nil, nil, io.Discard)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNormalizeVector(t *testing.T) {
	t.Run("unit length", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})
		assert.InDelta(t, 0.6, v[0], 0.0001)
		assert.InDelta(t, 0.8, v[1], 0.0001)
	})

	t.Run("zero vector", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})
}

func mustChunks(t *testing.T, repo interface {
	GetChunksByDocument(ctx context.Context, docID core.ID) ([]*core.Chunk, error)
}, docID core.ID) []*core.Chunk {
	t.Helper()
	chunks, err := repo.GetChunksByDocument(context.Background(), docID)
	require.NoError(t, err)
	return chunks
}
