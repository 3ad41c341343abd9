package analysis

import (
	"regexp"
	"strings"
	"unicode"
)

// boilerplatePatterns match navigation and site chrome that survives extraction.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcookie policy\b`),
	regexp.MustCompile(`(?i)\bprivacy policy\b`),
	regexp.MustCompile(`(?i)\bterms of (service|use)\b`),
	regexp.MustCompile(`(?i)\bsubscribe\b`),
	regexp.MustCompile(`(?i)\bnewsletter\b`),
	regexp.MustCompile(`(?i)\bfollow us\b`),
	regexp.MustCompile(`(?i)\bshare this\b`),
	regexp.MustCompile(`(?i)\brelated articles\b`),
	regexp.MustCompile(`(?i)\badvertis(ement|e)\b`),
	regexp.MustCompile(`(?i)©\s*\d{4}`),
	regexp.MustCompile(`(?i)\ball rights reserved\b`),
	regexp.MustCompile(`(?i)\bloading\.\.\.`),
	regexp.MustCompile(`(?i)\bplease wait\.\.\.`),
	regexp.MustCompile(`(?i)\bjavascript is required\b`),
	regexp.MustCompile(`(?i)\benable javascript\b`),
}

// maxBoilerplateLineWords is the longest line dropped for containing boilerplate.
// Longer lines are prose that merely mentions a pattern and are kept.
const maxBoilerplateLineWords = 12

var (
	repeatedTerminators = regexp.MustCompile(`[.!?]{2,}`)
	repeatedSeparators  = regexp.MustCompile(`[,;]{2,}`)
	quoteReplacer       = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		"–", "-", "—", "-",
		"\u00a0", " ",
	)
)

// clean strips boilerplate lines, normalizes whitespace and punctuation and
// drops near-empty lines. Paragraph breaks are preserved as a single blank line.
func clean(raw string) string {
	text := quoteReplacer.Replace(raw)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	pendingBreak := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			pendingBreak = b.Len() > 0
			continue
		}
		if isBoilerplateLine(line) || isNearEmpty(line) {
			continue
		}
		line = repeatedTerminators.ReplaceAllStringFunc(line, func(m string) string {
			if strings.Trim(m, ".") == "" && len(m) == 3 {
				return m // ellipsis
			}
			return m[:1]
		})
		line = repeatedSeparators.ReplaceAllStringFunc(line, func(m string) string { return m[:1] })

		if b.Len() > 0 {
			if pendingBreak {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		pendingBreak = false
		b.WriteString(line)
	}
	return b.String()
}

func isBoilerplateLine(line string) bool {
	if len(strings.Fields(line)) > maxBoilerplateLineWords {
		return false
	}
	for _, re := range boilerplatePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// isNearEmpty reports lines with fewer than two letters or digits, such as
// separators and stray punctuation.
func isNearEmpty(line string) bool {
	n := 0
	for _, r := range line {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
			if n >= 2 {
				return false
			}
		}
	}
	return true
}

// countBoilerplate counts boilerplate pattern matches remaining in text.
func countBoilerplate(text string) int {
	n := 0
	for _, re := range boilerplatePatterns {
		n += len(re.FindAllStringIndex(text, -1))
	}
	return n
}
