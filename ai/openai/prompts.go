package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/newsdex/ai"
)

const taggingResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {
            "type": "string",
            "pattern": "^[a-z0-9]+( [a-z0-9]+)*$"
          },
          "type": {
            "type": "string"
          }
        },
        "required": ["name", "type"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const taggingPromptTemplate = `Extract the named entities from the given news text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Entity names must be lowercase and match their surface form in the text.
- Type field must match exactly one of the listed values: %s.
- Include only entities that are explicitly mentioned in the text. Do not hallucinate.
- Report each entity once, even if mentioned multiple times.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "The European Central Bank raised rates on Thursday, President Lagarde said in Frankfurt."
Output:
{
  "entities": [
    {"name":"european central bank","type":"organization"},
    {"name":"lagarde","type":"person"},
    {"name":"frankfurt","type":"place"}
  ]
}

Example (no entities):
Input: "Markets were quiet ahead of the long weekend."
Output:
{
  "entities": []
}`

const expansionPromptTemplate = `You rewrite search queries for a news search engine.

Given a user query, produce %d alternative phrasings that could surface relevant
articles the original wording might miss. Vary vocabulary and specificity, but
keep the meaning of the original query.

Rules:
- Output one variant per line, nothing else.
- Do not repeat the original query.
- Do not number, quote, or annotate the variants.
- Keep each variant short, at most a dozen words.`

const rerankPrompt = `You judge how relevant a news passage is to a search query.

Respond ONLY with a JSON object of the form {"score": <number>} where the number
is between 0.0 and 1.0:

- 1.0: the passage directly answers or covers the query
- 0.5: the passage is topically related but not specific to the query
- 0.0: the passage is unrelated to the query

No preamble, no explanation, no extra keys.`

// buildTaggingPrompt creates the system prompt with entity types embedded.
func buildTaggingPrompt() string {
	return fmt.Sprintf(taggingPromptTemplate,
		taggingResponseSchema,
		strings.Join(ai.EntityTypes, ", "))
}

// buildExpansionPrompt creates the system prompt for the requested variant count.
func buildExpansionPrompt(maxVariants int) string {
	return fmt.Sprintf(expansionPromptTemplate, maxVariants)
}
