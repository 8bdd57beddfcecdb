package segment

import (
	"strings"

	"github.com/poiesic/newsdex/core"
)

// ChunkDocument splits a document into chunks ready for indexing.
// The title and summary are indexed as their own leading chunks so short,
// dense text ranks alongside body spans. Chunk IDs are derived from the
// document id, sequence, and text, so an unchanged document always yields
// the same chunk set.
func (s *Segmenter) ChunkDocument(doc *core.Document) []*core.Chunk {
	var chunks []*core.Chunk
	seq := 0

	add := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		chunks = append(chunks, &core.Chunk{
			Id:         core.ChunkID(doc.Id, seq, text),
			DocumentId: doc.Id,
			Seq:        seq,
			Text:       text,
		})
		seq++
	}

	add(doc.Title)
	add(doc.Summary)
	for _, span := range s.Split(doc.Body) {
		add(span.Text)
	}
	return chunks
}
