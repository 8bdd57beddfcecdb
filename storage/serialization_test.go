package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/newsdex/core"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("https://example.com/articles/1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalDocument(t *testing.T) {
	published := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	doc := &core.Document{
		Id:          core.IDFromContent("https://example.com/articles/ecb"),
		Title:       "ECB raises rates",
		Body:        "The European Central Bank raised its key rate by 25 basis points.",
		Source:      "Example Wire",
		Link:        "https://example.com/articles/ecb",
		PublishedAt: published,
		IngestedAt:  published.Add(10 * time.Minute),
		UpdatedAt:   published.Add(10 * time.Minute),
		Summary:     "Rate hike announced.",
		Entities:    []string{"european central bank", "frankfurt"},
		Keywords:    []string{"rates", "monetary policy"},
		Category:    "Finance",
	}

	data := MarshalDocument(doc)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalDocument(data)
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestUnmarshalDocument_Truncated(t *testing.T) {
	doc := &core.Document{
		Id:    1,
		Title: "truncate me",
		Body:  "body text",
	}
	data := MarshalDocument(doc)

	_, err := UnmarshalDocument(data[:len(data)/2])
	assert.Error(t, err)
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	chunk := &core.Chunk{
		Id:         core.ChunkID(7, 0, "chunk text"),
		DocumentId: 7,
		Seq:        0,
		Text:       "chunk text",
		Vector:     []float32{0.25, -0.5, 0.75},
	}

	data := MarshalChunk(chunk)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}

func TestMarshalUnmarshalChunk_NoVector(t *testing.T) {
	chunk := &core.Chunk{
		Id:         42,
		DocumentId: 7,
		Seq:        3,
		Text:       "not yet embedded",
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
}
