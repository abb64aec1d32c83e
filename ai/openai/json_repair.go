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
	"strings"
	"unicode"
)

// extractJSONObject strips markdown code fences and any chatter around the
// outermost JSON object in a model reply.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// repairJSON attempts to fix common JSON formatting issues from LLM responses:
// keys missing their opening quote, fully unquoted keys, and trailing commas.
// String contents are never modified.
func repairJSON(s string) string {
	rs := []rune(s)
	out := make([]rune, 0, len(rs)+16)
	inString := false

	i := 0
	for i < len(rs) {
		ch := rs[i]
		switch {
		case inString:
			out = append(out, ch)
			if ch == '\\' && i+1 < len(rs) {
				out = append(out, rs[i+1])
				i += 2
				continue
			}
			if ch == '"' {
				inString = false
			}
			i++
		case ch == '"':
			inString = true
			out = append(out, ch)
			i++
		case ch == ',' && closesNext(rs, i+1):
			// Trailing comma
			i++
		case ch == '{' || ch == ',':
			out = append(out, ch)
			i++
			for i < len(rs) && unicode.IsSpace(rs[i]) {
				out = append(out, rs[i])
				i++
			}
			i, out = quoteBareKey(rs, i, out)
		default:
			out = append(out, ch)
			i++
		}
	}

	return string(out)
}

// quoteBareKey quotes an object key starting at rs[i] if it lacks its
// opening quote or both quotes. It returns the index of the next rune to
// process. When no repair applies, i is returned unchanged.
func quoteBareKey(rs []rune, i int, out []rune) (int, []rune) {
	start := i
	for i < len(rs) && isKeyRune(rs[i]) {
		i++
	}
	if i == start || (!unicode.IsLetter(rs[start]) && rs[start] != '_') {
		return start, out
	}
	key := rs[start:i]

	// key": -> "key":
	if i+1 < len(rs) && rs[i] == '"' && rs[i+1] == ':' {
		out = append(out, '"')
		out = append(out, key...)
		out = append(out, '"')
		return i + 1, out
	}

	// key: -> "key":
	j := i
	for j < len(rs) && unicode.IsSpace(rs[j]) {
		j++
	}
	if j < len(rs) && rs[j] == ':' {
		out = append(out, '"')
		out = append(out, key...)
		out = append(out, '"')
		return i, out
	}

	return start, out
}

func closesNext(rs []rune, i int) bool {
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	return i < len(rs) && (rs[i] == '}' || rs[i] == ']')
}

func isKeyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
