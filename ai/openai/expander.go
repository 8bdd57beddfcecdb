package openai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/newsdex/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// QueryExpander implements ai.QueryExpander using OpenAI-compatible chat APIs.
type QueryExpander struct {
	client      llms.Model
	maxVariants int
	timeout     time.Duration
	logger      *slog.Logger
}

// newQueryExpander is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newQueryExpander(config *ai.Config) (*QueryExpander, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &QueryExpander{
		client:      client,
		maxVariants: config.MaxVariants,
		timeout:     config.RequestTimeout,
		logger:      slog.Default().With("component", "openai-expander"),
	}, nil
}

// NewQueryExpander creates a new query expander using the provided configuration.
//
// Returns ai.QueryExpander interface to enforce abstraction.
func NewQueryExpander(config *ai.Config) (ai.QueryExpander, error) {
	return newQueryExpander(config)
}

// Expand asks the LLM for alternative phrasings of the query. The original
// query is never part of the result; duplicates and empty lines are dropped.
// Callers treat any error as "search with the original query only".
func (e *QueryExpander) Expand(ctx context.Context, query string) ([]string, error) {
	if e.maxVariants == 0 {
		return []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildExpansionPrompt(e.maxVariants)),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(strings.TrimSpace(query)),
			},
		},
	}

	response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.7))
	if err != nil {
		e.logger.Warn("query expansion failed", "err", err)
		return nil, err
	}

	if len(response.Choices) < 1 {
		e.logger.Debug("no choices returned from model")
		return []string{}, nil
	}

	variants := parseVariants(response.Choices[0].Content, query, e.maxVariants)
	e.logger.Debug("expanded query", "variants", len(variants))
	return variants, nil
}

// parseVariants cleans up the model's line-oriented output. Models tend to
// number or quote their suggestions even when told not to.
func parseVariants(raw, original string, max int) []string {
	lowerOriginal := strings.ToLower(strings.TrimSpace(original))

	seen := make(map[string]bool)
	variants := make([]string, 0, max)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		// Strip list numbering ("1. ", "2) ") and bullet markers
		line = strings.TrimLeft(line, "0123456789")
		line = strings.TrimLeft(line, ".)")
		line = strings.TrimLeft(line, "-*")
		line = strings.Trim(strings.TrimSpace(line), "\"'")

		if line == "" {
			continue
		}

		key := strings.ToLower(line)
		if key == lowerOriginal || seen[key] {
			continue
		}
		seen[key] = true

		variants = append(variants, line)
		if len(variants) >= max {
			break
		}
	}

	return variants
}
