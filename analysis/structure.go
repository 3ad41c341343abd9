package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/poiesic/gleaner/core"
)

const maxHeaders = 50

var (
	listItemPattern    = regexp.MustCompile(`(?m)^\s*(?:[-*+•]|\d+[.)]|[a-zA-Z][.)])\s+\S`)
	fencePattern       = regexp.MustCompile("(?m)^\\s*```")
	preCodePattern     = regexp.MustCompile(`(?i)<pre[\s>]|<code>[\s\S]*?</code>`)
	inlineCodePattern  = regexp.MustCompile("`[^`\\n]+`")
	urlPattern         = regexp.MustCompile(`https?://[^\s<>()"']+`)
	markdownLinkPattern = regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`)
	htmlLinkPattern    = regexp.MustCompile(`(?i)<a\s+[^>]*href=`)
)

// analyzeStructure describes headers, lists, code and links in the source
// text. Averages are computed over the cleaned text.
func analyzeStructure(raw, cleaned string, sentences []span) core.Structure {
	s := core.Structure{}

	for _, line := range strings.Split(raw, "\n") {
		if h, ok := headerText(line); ok {
			s.HeaderCount++
			if len(s.Headers) < maxHeaders {
				s.Headers = append(s.Headers, h)
			}
		}
	}

	s.ListItemCount = len(listItemPattern.FindAllStringIndex(raw, -1))
	s.CodeBlockCount = len(fencePattern.FindAllStringIndex(raw, -1))/2 +
		len(preCodePattern.FindAllStringIndex(raw, -1))

	// Markdown links contain a URL; count them once.
	mdLinks := len(markdownLinkPattern.FindAllStringIndex(raw, -1))
	s.LinkCount = max(len(urlPattern.FindAllStringIndex(raw, -1)), mdLinks) +
		len(htmlLinkPattern.FindAllStringIndex(raw, -1))

	s.HasHeaders = s.HeaderCount > 0
	s.HasLists = s.ListItemCount > 0
	s.HasCodeBlocks = s.CodeBlockCount > 0 || inlineCodePattern.MatchString(raw)
	s.HasLinks = s.LinkCount > 0

	if len(sentences) > 0 {
		total := 0
		for _, sp := range sentences {
			total += len(words(cleaned[sp.start:sp.end]))
		}
		s.AvgSentenceLength = float64(total) / float64(len(sentences))
	}
	if paragraphs := splitParagraphs(cleaned); len(paragraphs) > 0 {
		total := 0
		for _, p := range paragraphs {
			total += len(words(p))
		}
		s.AvgParagraphLength = float64(total) / float64(len(paragraphs))
	}
	s.BoilerplateRemnants = countBoilerplate(cleaned)
	return s
}

// headerText recognizes markdown headings and short all-caps lines.
func headerText(line string) (string, bool) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		h := strings.TrimSpace(strings.TrimLeft(line, "#"))
		return h, h != ""
	}

	ws := words(line)
	if len(ws) == 0 || len(ws) > 10 {
		return "", false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return "", false
			}
			letters++
		}
	}
	return line, letters >= 3
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
