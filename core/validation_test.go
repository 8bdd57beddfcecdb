package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDocument(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc: &Document{
				Id:          1,
				Title:       "City council approves new transit plan",
				Body:        "The council voted on Tuesday to approve the plan.",
				Source:      "example-news",
				PublishedAt: validTime,
			},
			wantErr: nil,
		},
		{
			name: "valid document without enrichment",
			doc: &Document{
				Id:          1,
				Title:       "Headline",
				Body:        "Body text",
				PublishedAt: validTime,
				Entities:    nil,
				Keywords:    nil,
			},
			wantErr: nil,
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name: "empty title",
			doc: &Document{
				Body:        "Body text",
				PublishedAt: validTime,
			},
			wantErr: ErrEmptyTitle,
		},
		{
			name: "empty body",
			doc: &Document{
				Title:       "Headline",
				PublishedAt: validTime,
			},
			wantErr: ErrEmptyBody,
		},
		{
			name: "future publish timestamp",
			doc: &Document{
				Title:       "Headline",
				Body:        "Body text",
				PublishedAt: futureTime,
			},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDocument() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDocument() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				Id:         ChunkID(7, 0, "some text"),
				DocumentId: 7,
				Seq:        0,
				Text:       "some text",
			},
			wantErr: nil,
		},
		{
			name: "valid chunk without vector",
			chunk: &Chunk{
				Id:         ChunkID(7, 1, "more text"),
				DocumentId: 7,
				Seq:        1,
				Text:       "more text",
				Vector:     nil,
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name: "empty text",
			chunk: &Chunk{
				Id:         1,
				DocumentId: 7,
			},
			wantErr: ErrEmptyChunkText,
		},
		{
			name: "missing parent id",
			chunk: &Chunk{
				Id:   1,
				Text: "orphan text",
			},
			wantErr: ErrInvalidChunk,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsValidTimestamp(t *testing.T) {
	if !IsValidTimestamp(time.Now().Add(-time.Minute)) {
		t.Error("past timestamp should be valid")
	}
	if IsValidTimestamp(time.Now().Add(time.Minute)) {
		t.Error("future timestamp should be invalid")
	}
}
