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


package vector

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/newsdex/core"
)

// Persisted artifact format: a fixed magic string, then MUS-encoded
// schemaVersion, dimension, and entry count, then the entries. The vectors
// artifact holds chunkID + vector pairs; the map artifact holds
// chunkID + docID pairs. Any structural problem surfaces as
// core.ErrIndexCorrupt so callers know a rebuild recovers.
const (
	vectorsMagic  = "NDXV"
	mappingMagic  = "NDXM"
	schemaVersion = 1
)

// SaveTo writes the index contents to the two artifact files. Writes go to
// temp files first and rename into place, so a crash never leaves a
// half-written artifact behind.
func (idx *Index) SaveTo(vecPath, mapPath string) error {
	idx.mu.RLock()
	vectors := make(map[core.ID][]float32, len(idx.vectors))
	docs := make(map[core.ID]core.ID, len(idx.docs))
	for id, v := range idx.vectors {
		vectors[id] = v
		docs[id] = idx.docs[id]
	}
	idx.mu.RUnlock()

	if err := writeArtifact(vecPath, encodeVectors(vectors, idx.dim)); err != nil {
		return fmt.Errorf("writing vectors artifact: %w", err)
	}
	if err := writeArtifact(mapPath, encodeMapping(docs, idx.dim)); err != nil {
		return fmt.Errorf("writing mapping artifact: %w", err)
	}

	idx.logger.Debug("saved index artifacts", "vectors", len(vectors), "path", vecPath)
	return nil
}

// LoadFrom replaces the index contents with the persisted artifacts.
// Missing files return the underlying os error (a fresh corpus has no
// artifacts yet); unreadable, mismatched, or truncated content returns
// core.ErrIndexCorrupt and leaves the index unchanged.
func (idx *Index) LoadFrom(vecPath, mapPath string) error {
	vecData, err := os.ReadFile(vecPath)
	if err != nil {
		return err
	}
	mapData, err := os.ReadFile(mapPath)
	if err != nil {
		return err
	}

	vectors, err := decodeVectors(vecData, idx.dim)
	if err != nil {
		return err
	}
	docs, err := decodeMapping(mapData, idx.dim)
	if err != nil {
		return err
	}

	// Both artifacts must describe the same chunk set
	if len(vectors) != len(docs) {
		return fmt.Errorf("%w: %d vectors but %d mappings", core.ErrIndexCorrupt, len(vectors), len(docs))
	}
	for id := range vectors {
		if _, ok := docs[id]; !ok {
			return fmt.Errorf("%w: chunk %d has no document mapping", core.ErrIndexCorrupt, id)
		}
	}

	idx.mu.Lock()
	idx.vectors = vectors
	idx.docs = docs
	if len(vectors) == 0 {
		idx.state = StateEmpty
	} else {
		idx.state = StateStale
	}
	idx.built = false
	idx.partitions.Store(nil)
	idx.mu.Unlock()

	idx.logger.Debug("loaded index artifacts", "vectors", len(vectors), "path", vecPath)
	return nil
}

func writeArtifact(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func encodeHeader(magic string, dim, count int) []byte {
	size := len(magic) + varint.Int.Size(schemaVersion) + varint.Int.Size(dim) + varint.Int.Size(count)
	bs := make([]byte, size)
	n := copy(bs, magic)
	n += varint.Int.Marshal(schemaVersion, bs[n:])
	n += varint.Int.Marshal(dim, bs[n:])
	varint.Int.Marshal(count, bs[n:])
	return bs
}

// decodeHeader validates magic, version, and dimension and returns the entry
// count with the number of consumed bytes.
func decodeHeader(bs []byte, magic string, dim int) (count, n int, err error) {
	if len(bs) < len(magic) || !bytes.Equal(bs[:len(magic)], []byte(magic)) {
		return 0, 0, fmt.Errorf("%w: bad magic", core.ErrIndexCorrupt)
	}
	n = len(magic)

	version, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return 0, n, fmt.Errorf("%w: unreadable version: %v", core.ErrIndexCorrupt, err)
	}
	n += m
	if version != schemaVersion {
		return 0, n, fmt.Errorf("%w: schema version %d, want %d", core.ErrIndexCorrupt, version, schemaVersion)
	}

	fileDim, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return 0, n, fmt.Errorf("%w: unreadable dimension: %v", core.ErrIndexCorrupt, err)
	}
	n += m
	if fileDim != dim {
		return 0, n, fmt.Errorf("%w: artifact dimension %d, index dimension %d", core.ErrIndexCorrupt, fileDim, dim)
	}

	count, m, err = varint.Int.Unmarshal(bs[n:])
	if err != nil || count < 0 {
		return 0, n, fmt.Errorf("%w: unreadable entry count", core.ErrIndexCorrupt)
	}
	n += m
	return count, n, nil
}

func encodeVectors(vectors map[core.ID][]float32, dim int) []byte {
	size := 0
	for id, v := range vectors {
		size += core.IDMUS.Size(id) + core.SizeVector(v)
	}

	header := encodeHeader(vectorsMagic, dim, len(vectors))
	bs := make([]byte, len(header)+size)
	n := copy(bs, header)
	for id, v := range vectors {
		n += core.IDMUS.Marshal(id, bs[n:])
		n += core.MarshalVector(v, bs[n:])
	}
	return bs
}

func decodeVectors(bs []byte, dim int) (map[core.ID][]float32, error) {
	count, n, err := decodeHeader(bs, vectorsMagic, dim)
	if err != nil {
		return nil, err
	}

	vectors := make(map[core.ID][]float32, count)
	for i := 0; i < count; i++ {
		id, m, err := core.IDMUS.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: truncated vector entry %d", core.ErrIndexCorrupt, i)
		}
		n += m
		vec, m, err := core.UnmarshalVector(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: truncated vector entry %d", core.ErrIndexCorrupt, i)
		}
		n += m
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: entry %d has dimension %d, want %d", core.ErrIndexCorrupt, i, len(vec), dim)
		}
		vectors[id] = vec
	}
	return vectors, nil
}

func encodeMapping(docs map[core.ID]core.ID, dim int) []byte {
	size := 0
	for chunkID, docID := range docs {
		size += core.IDMUS.Size(chunkID) + core.IDMUS.Size(docID)
	}

	header := encodeHeader(mappingMagic, dim, len(docs))
	bs := make([]byte, len(header)+size)
	n := copy(bs, header)
	for chunkID, docID := range docs {
		n += core.IDMUS.Marshal(chunkID, bs[n:])
		n += core.IDMUS.Marshal(docID, bs[n:])
	}
	return bs
}

func decodeMapping(bs []byte, dim int) (map[core.ID]core.ID, error) {
	count, n, err := decodeHeader(bs, mappingMagic, dim)
	if err != nil {
		return nil, err
	}

	docs := make(map[core.ID]core.ID, count)
	for i := 0; i < count; i++ {
		chunkID, m, err := core.IDMUS.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: truncated mapping entry %d", core.ErrIndexCorrupt, i)
		}
		n += m
		docID, m, err := core.IDMUS.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: truncated mapping entry %d", core.ErrIndexCorrupt, i)
		}
		n += m
		docs[chunkID] = docID
	}
	return docs, nil
}
