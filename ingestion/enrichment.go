package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/newsdex/ai"
	"github.com/poiesic/newsdex/cache"
	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/lexical"
	"github.com/poiesic/newsdex/storage"
)

// tagTextMaxChars caps how much body text is sent to the tagger. Named
// entities cluster near the top of news articles, so the cap rarely loses
// any.
const tagTextMaxChars = 2000

// keywordLimit caps how many derived keywords are stored per document.
const keywordLimit = 8

// keywordMinLength filters out short fragments left over from tokenization.
const keywordMinLength = 3

// tagProcessor extracts named entities and keyword tags from documents and
// stores them on the document record.
type tagProcessor struct {
	documents storage.DocumentRepository
	tagger    ai.EntityTagger
	results   *cache.ResultCache
	logger    *slog.Logger
}

var _ processor = (*tagProcessor)(nil)

// newTagProcessor creates a new keyword and entity tagging processor.
func newTagProcessor(documents storage.DocumentRepository, tagger ai.EntityTagger, results *cache.ResultCache, logger *slog.Logger) (processor, error) {
	if documents == nil {
		return nil, fmt.Errorf("document repository required")
	}
	if tagger == nil {
		return nil, fmt.Errorf("entity tagger required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tagProcessor{
		documents: documents,
		tagger:    tagger,
		results:   results,
		logger:    logger.With("processor", "tags"),
	}, nil
}

// process extracts keywords and entities for the specified documents.
// Entity extraction failure for one document is logged and does not stop the
// rest; keywords are derived locally and need no model.
func (tp *tagProcessor) process(ctx context.Context, ids ...core.ID) error {
	tp.logger.Debug("processing documents for tags", "documents", len(ids))

	for _, id := range ids {
		doc, err := tp.documents.GetDocument(ctx, id)
		if err != nil {
			return err
		}

		changed := false

		// Caller-supplied keywords win over derived ones
		if len(doc.Keywords) == 0 {
			if keywords := extractKeywords(doc, keywordLimit); len(keywords) > 0 {
				doc.Keywords = keywords
				changed = true
			}
		}

		entities, err := tp.tagger.ExtractEntities(ctx, tagText(doc))
		if err != nil {
			tp.logger.Warn("entity extraction failed", "document", id, "err", err)
		} else if len(entities) > 0 {
			names := make([]string, len(entities))
			for i, entity := range entities {
				names[i] = entity.Name
			}
			doc.Entities = names
			changed = true
		}

		if !changed {
			continue
		}

		if _, err := tp.documents.UpdateDocuments(ctx, doc); err != nil {
			return err
		}

		// Entities feed the search-time gate and keywords feed related-
		// document lookups, so cached results are stale now
		if tp.results != nil {
			tp.results.Purge()
		}
	}

	return nil
}

// extractKeywords derives keyword tags from term frequency over the title,
// summary, and body. Title terms count double so headline topics rank first.
func extractKeywords(doc *core.Document, limit int) []string {
	counts := make(map[string]int)
	for _, term := range lexical.Tokenize(doc.Title) {
		if len(term) >= keywordMinLength {
			counts[term] += 2
		}
	}
	for _, term := range lexical.Tokenize(doc.Summary + " " + doc.Body) {
		if len(term) >= keywordMinLength {
			counts[term]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	slices.SortFunc(terms, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})

	if len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// tagText builds the tagger input from the title and a bounded body prefix.
func tagText(doc *core.Document) string {
	body := doc.Body
	if runes := []rune(body); len(runes) > tagTextMaxChars {
		body = string(runes[:tagTextMaxChars])
	}
	return doc.Title + "\n\n" + body
}
