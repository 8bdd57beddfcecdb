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


package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/newsdex"
	"github.com/poiesic/newsdex/ai"
	"github.com/poiesic/newsdex/core"
	"github.com/poiesic/newsdex/search"
)

func main() {
	app := &cli.App{
		Name:  "newsdex",
		Usage: "Hybrid retrieval engine for a local news corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index news articles from a JSON-lines file",
				ArgsUsage: "<articles.jsonl>",
				Action:    indexCommand,
				Flags:     append(corpusFlags(), aiFlags()...),
			},
			{
				Name:      "search",
				Usage:     "Search the corpus",
				ArgsUsage: "<query...>",
				Action:    searchCommand,
				Flags: append(append(corpusFlags(), aiFlags()...),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Restrict results to a category",
					},
				),
			},
			{
				Name:   "rebuild",
				Usage:  "Re-segment and re-embed every stored document",
				Action: rebuildCommand,
				Flags:  append(corpusFlags(), aiFlags()...),
			},
			{
				Name:   "stats",
				Usage:  "Show corpus and index statistics",
				Action: statsCommand,
				Flags:  corpusFlags(),
			},
			{
				Name:   "list",
				Usage:  "List the most recently published documents",
				Action: listCommand,
				Flags: append(corpusFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of documents",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "List documents in a category instead",
					},
				),
			},
			{
				Name:      "related",
				Usage:     "Show documents related to a document by shared tags",
				ArgsUsage: "<document-id>",
				Action:    relatedCommand,
				Flags: append(corpusFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of related documents",
						Value:   5,
					},
				),
			},
			{
				Name:      "remove",
				Usage:     "Remove a document and its index entries",
				ArgsUsage: "<document-id>",
				Action:    removeCommand,
				Flags:     append(corpusFlags(), aiFlags()...),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func corpusFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the corpus directory",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "embedding-dim",
			Usage: "Embedding dimension; must match the embedding model",
			Value: newsdex.DefaultEmbeddingDim,
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL for embedding and chat",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name for tagging, expansion and reranking",
			Value: "qwen2.5:3b",
		},
		&cli.DurationFlag{
			Name:  "request-timeout",
			Usage: "Per-call timeout for AI capability requests",
			Value: 10 * time.Second,
		},
	}
}

func openCorpus(c *cli.Context) (*newsdex.Corpus, error) {
	opts := []newsdex.CorpusOption{
		newsdex.WithEmbeddingDim(c.Int("embedding-dim")),
	}
	if c.IsSet("host") || c.IsSet("embedding-model") || c.IsSet("chat-model") || c.IsSet("request-timeout") {
		opts = append(opts, newsdex.WithAIConfig(ai.NewConfig(
			ai.WithHost(c.String("host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
			ai.WithChatModel(c.String("chat-model")),
			ai.WithRequestTimeout(c.Duration("request-timeout")),
		)))
	}

	corpus, err := newsdex.OpenCorpus(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	return corpus, nil
}

// article is the JSON-lines input shape for the index command.
type article struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	Link        string    `json:"link"`
	Category    string    `json:"category"`
	Keywords    []string  `json:"keywords"`
	PublishedAt time.Time `json:"published_at"`
}

func indexCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one articles file, got %d arguments", c.NArg())
	}

	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	pipeline, err := corpus.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	f, err := os.Open(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to open articles file: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	indexed := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var a article
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			return fmt.Errorf("line %d: invalid article: %w", indexed+1, err)
		}

		doc := &core.Document{
			Title:       a.Title,
			Summary:     a.Summary,
			Body:        a.Body,
			Source:      a.Source,
			Link:        a.Link,
			Category:    a.Category,
			Keywords:    a.Keywords,
			PublishedAt: a.PublishedAt,
		}
		if err := pipeline.IndexDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to index %q: %w", a.Title, err)
		}
		indexed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read articles file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %d documents\n", indexed)
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("query is required")
	}
	query := strings.Join(c.Args().Slice(), " ")

	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	searcher, err := corpus.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	var opts []search.SearchOption
	if category := c.String("category"); category != "" {
		opts = append(opts, search.WithCategory(category))
	}

	resp, err := searcher.Search(context.Background(), query, c.Int("limit"), opts...)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Found %d hits (mode: %s, cached: %t)\n", len(resp.Results), resp.Mode, resp.CacheHit)
	ctx := context.Background()
	for _, hit := range resp.Results {
		title := "(missing document)"
		if doc, err := corpus.DocumentRepository().GetDocument(ctx, hit.DocumentId); err == nil {
			title = doc.Title
		}
		fmt.Printf("%d. %s (%d) [%.3f]\n   %s\n", hit.Rank, title, hit.DocumentId, hit.Score, hit.Snippet)
	}
	return nil
}

func rebuildCommand(c *cli.Context) error {
	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	if _, err := corpus.Rebuild(context.Background(), os.Stderr); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	ctx := context.Background()
	docs, err := corpus.DocumentRepository().CountDocuments(ctx)
	if err != nil {
		return fmt.Errorf("failed to count documents: %w", err)
	}
	chunks, err := corpus.ChunkRepository().CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	fmt.Printf("Documents:     %d\n", docs)
	fmt.Printf("Chunks:        %d\n", chunks)
	fmt.Printf("Cached result sets: %d\n", corpus.ResultCache().Len())
	return nil
}

func listCommand(c *cli.Context) error {
	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	ctx := context.Background()
	var docs []*core.Document
	if category := c.String("category"); category != "" {
		docs, err = corpus.DocumentRepository().GetDocumentsByCategory(ctx, category, c.Int("limit"))
	} else {
		docs, err = corpus.DocumentRepository().GetRecentDocuments(ctx, c.Int("limit"))
	}
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	for _, doc := range docs {
		fmt.Printf("%d  %s  [%s]  %s\n", doc.Id, doc.PublishedAt.Format("2006-01-02 15:04"), doc.Category, doc.Title)
	}
	return nil
}

func relatedCommand(c *cli.Context) error {
	id, err := parseDocumentID(c)
	if err != nil {
		return err
	}

	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	related, err := corpus.DocumentRepository().RelatedDocuments(context.Background(), id, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to find related documents: %w", err)
	}

	for _, rel := range related {
		fmt.Printf("%d  [%.3f]  %s  (shared: %s)\n", rel.DocumentId, rel.Score, rel.Title, strings.Join(rel.Shared, ", "))
	}
	return nil
}

func removeCommand(c *cli.Context) error {
	id, err := parseDocumentID(c)
	if err != nil {
		return err
	}

	corpus, err := openCorpus(c)
	if err != nil {
		return err
	}
	defer corpus.Close()

	pipeline, err := corpus.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	if err := pipeline.RemoveDocument(context.Background(), id); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Removed document %d\n", id)
	return nil
}

func parseDocumentID(c *cli.Context) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one document id, got %d arguments", c.NArg())
	}
	raw, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document id %q: %w", c.Args().First(), err)
	}
	return core.ID(raw), nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
