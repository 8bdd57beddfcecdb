// Package ingestion provides pipeline orchestration for indexing documents.
//
// The Pipeline type manages the full indexing workflow, including:
//   - Validating and storing documents
//   - Segmenting title, summary, and body into chunks
//   - Generating embeddings in concurrent batches
//   - Maintaining the vector and lexical indexes
//   - Extracting named entities asynchronously
//
// Embedding and enrichment run on worker pools. An embedding failure degrades
// a document to lexical-only search; enrichment errors are logged and never
// fail the indexing operation.
package ingestion
