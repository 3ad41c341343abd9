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

package insight

import "strings"

// repairJSON fixes the JSON mistakes language models commonly make:
// unquoted keys (`{title: "x"}`), keys missing their opening quote
// (`{title": "x"}`) and trailing commas before a closing bracket.
// Text inside string literals is never modified.
func repairJSON(s string) string {
	in := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 16)

	inString, escaped := false, false
	for i := 0; i < len(in); i++ {
		ch := in[i]
		if inString {
			out.WriteRune(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out.WriteRune(ch)
			continue
		case ',':
			if next := skipSpace(in, i+1); next < len(in) && (in[next] == '}' || in[next] == ']') {
				continue
			}
		case '{':
		default:
			out.WriteRune(ch)
			continue
		}

		// ch opens an object or separates members, so a key may follow
		out.WriteRune(ch)
		start := skipSpace(in, i+1)
		out.WriteString(string(in[i+1 : start]))
		end := start
		for end < len(in) && (isLetter(in[end]) || in[end] == '_' || (end > start && in[end] >= '0' && in[end] <= '9')) {
			end++
		}
		if end == start {
			i = start - 1
			continue
		}

		key := string(in[start:end])
		switch {
		case end+1 < len(in) && in[end] == '"' && in[end+1] == ':':
			// Missing opening quote; the closing quote is consumed here
			out.WriteString(`"` + key + `"`)
			i = end
		case skipSpace(in, end) < len(in) && in[skipSpace(in, end)] == ':':
			out.WriteString(`"` + key + `"`)
			i = end - 1
		default:
			// A bare literal such as true or null
			out.WriteString(key)
			i = end - 1
		}
	}
	return out.String()
}

// skipSpace returns the index of the first non-whitespace rune at or after i.
func skipSpace(in []rune, i int) int {
	for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t' || in[i] == '\r') {
		i++
	}
	return i
}
