package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/storage"
)

func newTestChunkRepo(t *testing.T) (storage.ChunkRepository, func()) {
	t.Helper()
	docRepo, chunkRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	return chunkRepo, func() {
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	}
}

func makeTestChunks(docID core.ID, n int) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("chunk %d of document %d", i, docID)
		chunks[i] = &core.Chunk{
			Id:         core.ChunkID(docID, i, text),
			DocumentId: docID,
			Seq:        i,
			Text:       text,
			Vector:     []float32{float32(i), 1.0},
		}
	}
	return chunks
}

func TestAddAndGetChunk(t *testing.T) {
	repo, cleanup := newTestChunkRepo(t)
	defer cleanup()

	ctx := context.Background()
	chunks := makeTestChunks(7, 1)
	added, err := repo.AddChunks(ctx, chunks...)
	require.NoError(t, err)
	require.Len(t, added, 1)

	got, err := repo.GetChunk(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Equal(t, chunks[0].DocumentId, got.DocumentId)
	assert.Equal(t, chunks[0].Seq, got.Seq)
	assert.Equal(t, chunks[0].Text, got.Text)
	assert.Equal(t, chunks[0].Vector, got.Vector)

	t.Run("unknown chunk", func(t *testing.T) {
		_, err := repo.GetChunk(ctx, core.ID(999999))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("re-add overwrites", func(t *testing.T) {
		chunks[0].Vector = []float32{0.5, 0.5}
		_, err := repo.AddChunks(ctx, chunks[0])
		require.NoError(t, err)

		got, err := repo.GetChunk(ctx, chunks[0].Id)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, 0.5}, got.Vector)

		count, err := repo.CountChunks(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestDeleteChunks(t *testing.T) {
	repo, cleanup := newTestChunkRepo(t)
	defer cleanup()

	ctx := context.Background()
	chunks := makeTestChunks(7, 3)
	_, err := repo.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	err = repo.DeleteChunks(ctx, chunks[1].Id)
	require.NoError(t, err)

	_, err = repo.GetChunk(ctx, chunks[1].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	remaining, err := repo.GetChunksByDocument(ctx, 7)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, 0, remaining[0].Seq)
	assert.Equal(t, 2, remaining[1].Seq)

	t.Run("unknown chunk", func(t *testing.T) {
		err := repo.DeleteChunks(ctx, core.ID(424242))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDeleteChunksByDocument(t *testing.T) {
	repo, cleanup := newTestChunkRepo(t)
	defer cleanup()

	ctx := context.Background()
	docA := makeTestChunks(7, 3)
	docB := makeTestChunks(8, 2)
	_, err := repo.AddChunks(ctx, docA...)
	require.NoError(t, err)
	_, err = repo.AddChunks(ctx, docB...)
	require.NoError(t, err)

	deleted, err := repo.DeleteChunksByDocument(ctx, 7)
	require.NoError(t, err)
	require.Len(t, deleted, 3)
	for _, chunk := range docA {
		assert.Contains(t, deleted, chunk.Id)
	}

	// Other documents are untouched
	remaining, err := repo.GetChunksByDocument(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	t.Run("unknown document is a no-op", func(t *testing.T) {
		deleted, err := repo.DeleteChunksByDocument(ctx, core.ID(999))
		require.NoError(t, err)
		assert.Empty(t, deleted)
	})
}

func TestGetChunksByDocument_OrderedBySeq(t *testing.T) {
	repo, cleanup := newTestChunkRepo(t)
	defer cleanup()

	ctx := context.Background()
	chunks := makeTestChunks(7, 5)

	// Insert out of order; retrieval must sort by sequence
	_, err := repo.AddChunks(ctx, chunks[3], chunks[0], chunks[4], chunks[1], chunks[2])
	require.NoError(t, err)

	got, err := repo.GetChunksByDocument(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, chunk := range got {
		assert.Equal(t, i, chunk.Seq)
	}

	t.Run("unknown document", func(t *testing.T) {
		got, err := repo.GetChunksByDocument(ctx, core.ID(999))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestForEachChunk(t *testing.T) {
	repo, cleanup := newTestChunkRepo(t)
	defer cleanup()

	ctx := context.Background()
	_, err := repo.AddChunks(ctx, makeTestChunks(7, 2)...)
	require.NoError(t, err)
	_, err = repo.AddChunks(ctx, makeTestChunks(8, 2)...)
	require.NoError(t, err)

	seen := 0
	err = repo.ForEachChunk(ctx, func(chunk *core.Chunk) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, seen)

	t.Run("callback error stops iteration", func(t *testing.T) {
		err := repo.ForEachChunk(ctx, func(chunk *core.Chunk) error {
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestCountChunks(t *testing.T) {
	repo, cleanup := newTestChunkRepo(t)
	defer cleanup()

	ctx := context.Background()
	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = repo.AddChunks(ctx, makeTestChunks(7, 3)...)
	require.NoError(t, err)

	count, err = repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
