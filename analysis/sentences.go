package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// span is a half-open byte range [start, end) of a text.
type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

// abbreviations that end in a period without ending a sentence.
var abbreviations = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "dr": {}, "prof": {}, "sr": {}, "jr": {}, "st": {},
	"vs": {}, "etc": {}, "e.g": {}, "i.e": {}, "fig": {}, "vol": {}, "al": {},
	"inc": {}, "ltd": {}, "jan": {}, "feb": {}, "mar": {}, "apr": {}, "jun": {},
	"jul": {}, "aug": {}, "sep": {}, "sept": {}, "oct": {}, "nov": {}, "dec": {},
}

// splitSentences returns the sentence spans of text. Every non-space byte of
// text belongs to exactly one span. Sentences end at terminal punctuation
// followed by whitespace, or at a line break.
func splitSentences(text string) []span {
	var spans []span
	start := -1

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if start < 0 {
			if !unicode.IsSpace(r) {
				start = i
			}
			i += size
			continue
		}

		if r == '\n' {
			spans = append(spans, span{start, trimRightSpace(text, start, i)})
			start = -1
			i += size
			continue
		}

		if r == '.' || r == '!' || r == '?' {
			end := i + size
			// Absorb runs of terminators and closing quotes/brackets
			for end < len(text) && strings.ContainsRune(`.!?"')]`, rune(text[end])) {
				end++
			}
			if end == len(text) || isSpaceAt(text, end) {
				if r != '.' || !isAbbreviation(text[start:i]) {
					spans = append(spans, span{start, end})
					start = -1
				}
			}
			i = end
			continue
		}

		i += size
	}

	if start >= 0 {
		if end := trimRightSpace(text, start, len(text)); end > start {
			spans = append(spans, span{start, end})
		}
	}
	return spans
}

func isSpaceAt(text string, i int) bool {
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsSpace(r)
}

func trimRightSpace(text string, start, end int) int {
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return end
}

// isAbbreviation reports whether the sentence so far ends in a known
// abbreviation or a single initial.
func isAbbreviation(sentence string) bool {
	fields := strings.Fields(sentence)
	if len(fields) == 0 {
		return false
	}
	last := strings.TrimLeft(fields[len(fields)-1], `("'[`)
	if _, ok := abbreviations[strings.ToLower(last)]; ok {
		return true
	}
	// Single initial such as "J."
	r, size := utf8.DecodeRuneInString(last)
	return size > 0 && size == len(last) && unicode.IsUpper(r)
}

// splitLong breaks spans longer than limit at word boundaries so every
// returned span is at most limit bytes, unless a single word is longer.
func splitLong(text string, spans []span, limit int) []span {
	out := make([]span, 0, len(spans))
	for _, s := range spans {
		for s.len() > limit {
			cut := s.start + limit
			for cut > s.start && !utf8.RuneStart(text[cut]) {
				cut--
			}
			// Prefer the last whitespace before the limit
			if ws := strings.LastIndexFunc(text[s.start:cut], unicode.IsSpace); ws > 0 {
				cut = s.start + ws
			}
			if cut <= s.start {
				break
			}
			piece := span{s.start, trimRightSpace(text, s.start, cut)}
			out = append(out, piece)

			next := cut
			for next < s.end && isSpaceAt(text, next) {
				_, size := utf8.DecodeRuneInString(text[next:])
				next += size
			}
			s.start = next
		}
		if s.len() > 0 {
			out = append(out, s)
		}
	}
	return out
}

// words splits text into whitespace-separated words.
func words(text string) []string {
	return strings.Fields(text)
}

// normalizeWord lowercases w and trims surrounding punctuation.
func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(w, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}
