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


package segment

import (
	"strings"
	"unicode"
)

const (
	// DefaultMaxChunkChars is the default maximum span length in runes.
	DefaultMaxChunkChars = 300

	// DefaultOverlapChars is the default overlap between consecutive spans.
	DefaultOverlapChars = 50

	// DefaultMinChunkChars is the minimum span length; shorter spans are
	// dropped as noise.
	DefaultMinChunkChars = 5
)

// sentenceEnders are the rune boundaries a span prefers to break after.
// Includes CJK fullwidth punctuation since the corpus is bilingual.
const sentenceEnders = ".!?;。！？；"

// Span is a contiguous slice of the source text.
// Start and End are rune offsets into the original input.
type Span struct {
	Start int
	End   int
	Text  string
}

// Segmenter splits document text into overlapping spans suitable for
// embedding. A zero-value Segmenter is not usable; construct with New.
type Segmenter struct {
	maxChars     int
	overlapChars int
	minChars     int
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithMaxChunkChars sets the maximum span length in runes.
func WithMaxChunkChars(n int) Option {
	return func(s *Segmenter) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithOverlapChars sets the overlap between consecutive spans.
// Values at or above the maximum span length are ignored since the
// segmenter must always make forward progress.
func WithOverlapChars(n int) Option {
	return func(s *Segmenter) {
		if n >= 0 {
			s.overlapChars = n
		}
	}
}

// WithMinChunkChars sets the minimum span length; shorter spans are dropped.
func WithMinChunkChars(n int) Option {
	return func(s *Segmenter) {
		if n > 0 {
			s.minChars = n
		}
	}
}

// New creates a Segmenter with the given options applied over defaults.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		maxChars:     DefaultMaxChunkChars,
		overlapChars: DefaultOverlapChars,
		minChars:     DefaultMinChunkChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlapChars >= s.maxChars {
		s.overlapChars = s.maxChars / 2
	}
	return s
}

// Split breaks text into overlapping spans. Boundaries land after
// sentence-ending punctuation when one exists in the window, then after
// whitespace, then at the hard limit. Whitespace-only input yields no spans.
func (s *Segmenter) Split(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 || strings.TrimSpace(text) == "" {
		return nil
	}

	var spans []Span
	start := 0
	for start < n {
		end := start + s.maxChars
		if end >= n {
			end = n
		} else {
			end = s.breakPoint(runes, start, end)
		}

		spanText := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(spanText)) >= s.minChars {
			spans = append(spans, Span{
				Start: start,
				End:   end,
				Text:  spanText,
			})
		}

		if end >= n {
			break
		}

		next := end - s.overlapChars
		if next <= start {
			// Overlap must never stall the walk
			next = start + 1
		}
		start = next
	}

	return spans
}

// breakPoint finds the best boundary in (start, limit]. Prefers the last
// sentence ender, then the last whitespace, then the hard limit.
func (s *Segmenter) breakPoint(runes []rune, start, limit int) int {
	lastSpace := -1
	for i := limit - 1; i > start; i-- {
		r := runes[i]
		if strings.ContainsRune(sentenceEnders, r) {
			return i + 1
		}
		if lastSpace == -1 && unicode.IsSpace(r) {
			lastSpace = i
		}
	}
	if lastSpace > start {
		return lastSpace + 1
	}
	return limit
}
