// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/storage"
)

// relatedCategoryBonus is added to the tag-overlap score when both documents
// share a category.
const relatedCategoryBonus = 0.1

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (storage.DocumentRepository, error) {
	return &DocumentRepository{backend: backend}, nil
}

// Close is a no-op; the shared backend owns the database handle.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddDocuments adds one or more documents to storage.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, doc := range docs {
			if doc.Id == 0 {
				doc.Id = deriveDocumentID(doc)
			}
			if doc.IngestedAt.IsZero() {
				doc.IngestedAt = now
			}
			doc.UpdatedAt = now

			// Store primary record
			key := makeDocumentKey(doc.Id)
			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}

			// Update date index
			dateKey := makeDocumentDateKey(doc.PublishedAt, doc.Id)
			if err := tx.Set(dateKey, storage.MarshalID(doc.Id)); err != nil {
				return err
			}

			// Update category index
			if doc.Category != "" {
				catKey := makeDocumentCategoryKey(doc.Category, doc.Id)
				if err := tx.Set(catKey, storage.MarshalID(doc.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// UpdateDocuments updates existing documents.
func (r *DocumentRepository) UpdateDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, doc := range docs {
			key := makeDocumentKey(doc.Id)

			// Read old record to detect index changes
			old, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			doc.UpdatedAt = time.Now().UTC()
			if doc.IngestedAt.IsZero() {
				doc.IngestedAt = old.IngestedAt
			}

			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}

			// Update date index if publication time changed
			if !old.PublishedAt.Equal(doc.PublishedAt) {
				if err := tx.Delete(makeDocumentDateKey(old.PublishedAt, old.Id)); err != nil {
					return err
				}
				if err := tx.Set(makeDocumentDateKey(doc.PublishedAt, doc.Id), storage.MarshalID(doc.Id)); err != nil {
					return err
				}
			}

			// Update category index if category changed
			if old.Category != doc.Category {
				if old.Category != "" {
					if err := tx.Delete(makeDocumentCategoryKey(old.Category, old.Id)); err != nil {
						return err
					}
				}
				if doc.Category != "" {
					if err := tx.Set(makeDocumentCategoryKey(doc.Category, doc.Id), storage.MarshalID(doc.Id)); err != nil {
						return err
					}
				}
			}
		}
		return tx.Commit()
	}, true)

	return docs, err
}

// DeleteDocuments removes documents by their IDs.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocumentKey(id)

			// Read record to get metadata for index cleanup
			doc, err := readDocument(tx, key)
			if err != nil {
				return err
			}
			if doc == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(makeDocumentDateKey(doc.PublishedAt, doc.Id)); err != nil {
				return err
			}
			if doc.Category != "" {
				if err := tx.Delete(makeDocumentCategoryKey(doc.Category, doc.Id)); err != nil {
					return err
				}
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.ID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetDocumentsByDateRange retrieves documents within a publication time range.
func (r *DocumentRepository) GetDocumentsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Document, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialDocumentDateKey(start)
		endKey := makePartialDocumentDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			doc, err := readIndexedDocument(tx, iter.Item())
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)

	return results, err
}

// GetRecentDocuments retrieves the N most recently published documents.
func (r *DocumentRepository) GetRecentDocuments(ctx context.Context, limit int) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Reverse iterator walks the date index newest-first
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		startKey := makePartialDocumentDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(documentDatePrefix + ":")

		count := 0
		for iter.Seek(startKey); iter.Valid() && count < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			doc, err := readIndexedDocument(tx, iter.Item())
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
				count++
			}
		}
		return nil
	}, false)

	return results, err
}

// GetDocumentsByCategory retrieves up to limit documents in a category.
func (r *DocumentRepository) GetDocumentsByCategory(ctx context.Context, category string, limit int) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialDocumentCategoryKey(category)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid() && len(results) < limit; iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) || slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			doc, err := readIndexedDocument(tx, iter.Item())
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)

	return results, err
}

// RelatedDocuments finds documents sharing entity and keyword tags with the
// given document. Overlap is Jaccard similarity over the union of each
// document's entities and keywords, with a small bonus for a shared category.
func (r *DocumentRepository) RelatedDocuments(ctx context.Context, id core.ID, limit int) ([]*core.RelatedDocument, error) {
	ref, err := r.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	refTags := tagSet(ref)
	if len(refTags) == 0 {
		return nil, nil
	}

	var related []*core.RelatedDocument
	err = r.ForEachDocument(ctx, func(doc *core.Document) error {
		if doc.Id == id {
			return nil
		}

		docTags := tagSet(doc)
		shared := make([]string, 0, len(refTags))
		for tag := range refTags {
			if docTags[tag] {
				shared = append(shared, tag)
			}
		}
		if len(shared) == 0 {
			return nil
		}

		union := len(refTags) + len(docTags) - len(shared)
		score := float32(len(shared)) / float32(union)
		if ref.Category != "" && ref.Category == doc.Category {
			score += relatedCategoryBonus
		}

		slices.Sort(shared)
		related = append(related, &core.RelatedDocument{
			DocumentId: doc.Id,
			Title:      doc.Title,
			Category:   doc.Category,
			Score:      score,
			Shared:     shared,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(related, func(a, b *core.RelatedDocument) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.DocumentId < b.DocumentId {
			return -1
		}
		if a.DocumentId > b.DocumentId {
			return 1
		}
		return 0
	})

	if len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

// ForEachDocument visits every stored document.
func (r *DocumentRepository) ForEachDocument(ctx context.Context, fn func(*core.Document) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			if err := fn(doc); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// CountDocuments returns the number of stored documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Helper functions

// deriveDocumentID derives a content-based ID, preferring the link.
func deriveDocumentID(doc *core.Document) core.ID {
	if doc.Link != "" {
		return core.IDFromContent(doc.Link)
	}
	return core.IDFromContent(doc.Title)
}

// readDocument reads a document from the transaction.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

// readIndexedDocument resolves an index entry to its full document.
func readIndexedDocument(tx *badger.Txn, item *badger.Item) (*core.Document, error) {
	var docID core.ID
	if err := item.Value(func(val []byte) error {
		var err error
		docID, err = storage.UnmarshalID(val)
		return err
	}); err != nil {
		return nil, err
	}
	return readDocument(tx, makeDocumentKey(docID))
}

// tagSet collects a document's lowercased entity and keyword tags.
func tagSet(doc *core.Document) map[string]bool {
	tags := make(map[string]bool, len(doc.Entities)+len(doc.Keywords))
	for _, e := range doc.Entities {
		if e != "" {
			tags[strings.ToLower(e)] = true
		}
	}
	for _, k := range doc.Keywords {
		if k != "" {
			tags[strings.ToLower(k)] = true
		}
	}
	return tags
}
