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


package core

import "errors"

// Domain and retrieval errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyBody indicates the Body field is empty.
	ErrEmptyBody = errors.New("body cannot be empty")

	// ErrEmptyChunkText indicates the chunk Text field is empty.
	ErrEmptyChunkText = errors.New("chunk text cannot be empty")

	// ErrDimensionMismatch indicates a vector's length disagrees with the
	// dimension established at the index's first insert. The offending upsert
	// is rejected; the index itself is not corrupted.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrIndexCorrupt indicates persisted index artifacts are unreadable or
	// were written with a different dimension or schema version. Recoverable:
	// callers should discard the artifacts and rebuild from source documents.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrEmptyCorpus indicates no documents are indexed. Searches against an
	// empty corpus return a typed empty result, not this error; it exists for
	// operations that require at least one document.
	ErrEmptyCorpus = errors.New("empty corpus")

	// ErrBackendUnavailable indicates a transient failure of an external
	// capability (embedding, expansion, tagging, reranking). Callers degrade
	// locally rather than propagating it to the user.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
