// Package rebuild re-derives chunks and search indexes from stored documents,
// typically after an embedding model change or when persisted index artifacts
// fail to load.
//
// The package supports batch processing with progress tracking, retry logic
// with exponential backoff, and vector normalization so inner-product scoring
// behaves as cosine similarity.
package rebuild
