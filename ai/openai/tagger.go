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


package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/newsdex/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// EntityTagger implements ai.EntityTagger using OpenAI-compatible chat APIs.
type EntityTagger struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// entity is an internal type used for JSON unmarshaling.
// It matches the structure expected by the LLM.
type entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// tagging is the wrapper structure for the LLM's JSON response.
type tagging struct {
	Entities []entity `json:"entities"`
}

// newEntityTagger is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityTagger(config *ai.Config) (*EntityTagger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &EntityTagger{
		client:  client,
		timeout: config.RequestTimeout,
		logger:  slog.Default().With("component", "openai-tagger"),
	}, nil
}

// NewEntityTagger creates a new entity tagger using the provided configuration.
//
// Returns ai.EntityTagger interface to enforce abstraction.
func NewEntityTagger(config *ai.Config) (ai.EntityTagger, error) {
	return newEntityTagger(config)
}

// ExtractEntities extracts named entities from text using an LLM.
// Entity names are lowercased and deduplicated; entries with unknown types
// are dropped.
func (e *EntityTagger) ExtractEntities(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Build the system and user prompts
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildTaggingPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(strings.TrimSpace(text)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result tagging
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []ai.ExtractedEntity{}, nil
		}

		responseText := stripCodeFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing tagger response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Success
		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse tagger response after retries", "err", lastErr)
		return nil, lastErr
	}

	// Normalize, validate type, and deduplicate by name
	seen := make(map[string]bool, len(result.Entities))
	extracted := make([]ai.ExtractedEntity, 0, len(result.Entities))
	for _, ent := range result.Entities {
		name := strings.ToLower(strings.TrimSpace(ent.Name))
		entType := strings.ToLower(strings.TrimSpace(ent.Type))
		if name == "" || seen[name] {
			continue
		}
		if !slices.Contains(ai.EntityTypes, entType) {
			e.logger.Debug("dropping entity with unknown type", "name", name, "type", entType)
			continue
		}
		seen[name] = true
		extracted = append(extracted, ai.ExtractedEntity{
			Name: name,
			Type: entType,
		})
	}

	e.logger.Debug("extracted entities",
		"total", len(result.Entities),
		"kept", len(extracted))

	return extracted, nil
}
