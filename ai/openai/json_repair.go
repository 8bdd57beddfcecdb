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

import "strings"

// repairJSON fixes the one malformation small local models produce often
// enough to matter: an object key missing its opening quote, as in
// `{name": "x"}` or `, type": "place"`. Anything else is left for the JSON
// decoder to reject.
func repairJSON(s string) string {
	var out strings.Builder
	out.Grow(len(s) + 16)

	runes := []rune(s)
	i := 0
	for i < len(runes) {
		out.WriteRune(runes[i])
		if runes[i] != '{' && runes[i] != ',' {
			i++
			continue
		}
		i++

		// Preserve whitespace between the delimiter and the key
		for i < len(runes) && (runes[i] == ' ' || runes[i] == '\t' || runes[i] == '\n') {
			out.WriteRune(runes[i])
			i++
		}

		if i >= len(runes) || !isLetter(runes[i]) {
			continue
		}

		// Bare identifier: only an unquoted key if it runs straight into `":`
		start := i
		for i < len(runes) && (isLetter(runes[i]) || runes[i] == '_') {
			i++
		}
		if i+1 < len(runes) && runes[i] == '"' && runes[i+1] == ':' {
			out.WriteRune('"')
		}
		out.WriteString(string(runes[start:i]))
	}

	return out.String()
}
