package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentMUS_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := Document{
		Id:          IDFromContent("https://example.com/a1"),
		Title:       "Central bank holds rates steady",
		Body:        "The central bank announced on Thursday that rates will remain unchanged.",
		Source:      "example-news",
		Link:        "https://example.com/a1",
		PublishedAt: now.Add(-2 * time.Hour),
		IngestedAt:  now,
		UpdatedAt:   now,
		Summary:     "Rates unchanged.",
		Entities:    []string{"central bank"},
		Keywords:    []string{"rates", "economy"},
		Category:    "Finance",
	}

	buf := make([]byte, DocumentMUS.Size(doc))
	n := DocumentMUS.Marshal(doc, buf)
	assert.Equal(t, len(buf), n)

	got, read, err := DocumentMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, n, read)
	assert.Equal(t, doc, got)
}

func TestChunkMUS_RoundTrip(t *testing.T) {
	chunk := Chunk{
		Id:         ChunkID(9, 2, "a span of article text"),
		DocumentId: 9,
		Seq:        2,
		Text:       "a span of article text",
		Vector:     []float32{0.25, -0.5, 0.125, 1.0},
	}

	buf := make([]byte, ChunkMUS.Size(chunk))
	n := ChunkMUS.Marshal(chunk, buf)
	assert.Equal(t, len(buf), n)

	got, read, err := ChunkMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, n, read)
	assert.Equal(t, chunk, got)
}

func TestVector_RoundTrip_Empty(t *testing.T) {
	buf := make([]byte, SizeVector(nil))
	n := MarshalVector(nil, buf)
	assert.Equal(t, len(buf), n)

	got, read, err := UnmarshalVector(buf)
	require.NoError(t, err)
	assert.Equal(t, n, read)
	assert.Nil(t, got)
}

func TestUnmarshal_TruncatedData(t *testing.T) {
	chunk := Chunk{
		Id:         1,
		DocumentId: 2,
		Seq:        0,
		Text:       "text",
		Vector:     []float32{0.5},
	}
	buf := make([]byte, ChunkMUS.Size(chunk))
	ChunkMUS.Marshal(chunk, buf)

	_, _, err := ChunkMUS.Unmarshal(buf[:len(buf)/2])
	assert.Error(t, err)
}
