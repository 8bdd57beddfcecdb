package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "same content produces same ID",
			content: "test content",
		},
		{
			name:    "empty string",
			content: "",
		},
		{
			name:    "long content",
			content: "This is a much longer piece of content that should still hash consistently",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	id1 := ChunkID(42, 0, "the first span of text")
	id2 := ChunkID(42, 0, "the first span of text")
	if id1 != id2 {
		t.Errorf("ChunkID() produced different IDs for identical inputs: %d vs %d", id1, id2)
	}
}

func TestChunkID_Distinct(t *testing.T) {
	base := ChunkID(42, 0, "span")

	if ChunkID(43, 0, "span") == base {
		t.Error("ChunkID() collided across document ids")
	}
	if ChunkID(42, 1, "span") == base {
		t.Error("ChunkID() collided across sequence indexes")
	}
	if ChunkID(42, 0, "other span") == base {
		t.Error("ChunkID() collided across text spans")
	}
}
