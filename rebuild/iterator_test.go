package rebuild

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/storage"
	badgerstore "github.com/poiesic/newsdex/storage/badger"
)

func seedDocuments(t *testing.T, repo storage.DocumentRepository, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		_, err := repo.AddDocuments(ctx, &core.Document{
			Id:    core.ID(i + 1),
			Title: fmt.Sprintf("Article %d", i+1),
			Body:  "Body text for iteration tests.",
		})
		require.NoError(t, err)
	}
}

func TestDocumentIterator_Batches(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	seedDocuments(t, docRepo, 25)

	iterator := NewDocumentIterator(docRepo, 10)

	var batchSizes []int
	total := 0
	err = iterator.ForEach(context.Background(), func(docs []*core.Document) error {
		batchSizes = append(batchSizes, len(docs))
		total += len(docs)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 25, total)
	assert.Equal(t, []int{10, 10, 5}, batchSizes)
}

func TestDocumentIterator_Empty(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	iterator := NewDocumentIterator(docRepo, 10)
	calls := 0
	err = iterator.ForEach(context.Background(), func(docs []*core.Document) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestDocumentIterator_ErrorStopsIteration(t *testing.T) {
	docRepo, chunkRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		chunkRepo.Close()
		docRepo.Close()
		backend.Close()
	}()

	seedDocuments(t, docRepo, 25)

	iterator := NewDocumentIterator(docRepo, 10)
	calls := 0
	err = iterator.ForEach(context.Background(), func(docs []*core.Document) error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}

func TestDocumentIterator_DefaultBatchSize(t *testing.T) {
	iterator := NewDocumentIterator(nil, 0)
	assert.Equal(t, DefaultBatchSize, iterator.batchSize)
}
