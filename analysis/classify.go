package analysis

import (
	"regexp"
	"strings"

	"github.com/poiesic/gleaner/core"
)

// classificationThreshold is the score a content type must reach to be chosen.
const classificationThreshold = 3.0

// maxTermHits caps how much lexical evidence a single category can collect.
const maxTermHits = 10

type classifier struct {
	contentType core.ContentType
	terms       []string
	urlHints    []string
}

// classifiers are evaluated in order; earlier entries win ties.
var classifiers = []classifier{
	{
		contentType: core.ContentTypeTechnical,
		terms:       []string{"api", "function", "method", "class", "interface", "database", "algorithm", "server", "compile", "runtime", "deploy", "configuration", "library", "framework", "variable"},
		urlHints:    []string{"github.com", "stackoverflow.com", "/api/", "dev.to"},
	},
	{
		contentType: core.ContentTypeAcademic,
		terms:       []string{"research", "study", "methodology", "hypothesis", "abstract", "findings", "participants", "et al", "literature", "empirical", "journal"},
		urlHints:    []string{"arxiv.org", "doi.org", ".edu/", "scholar.", "pubmed", "researchgate"},
	},
	{
		contentType: core.ContentTypeDocumentation,
		terms:       []string{"documentation", "installation", "usage", "getting started", "parameters", "returns", "example", "configure", "reference", "prerequisites"},
		urlHints:    []string{"docs", "documentation", "guide", "tutorial", "manual", "reference", "readthedocs"},
	},
	{
		contentType: core.ContentTypeNews,
		terms:       []string{"breaking", "reported", "announced", "press release", "according to", "officials", "spokesperson", "yesterday", "statement"},
		urlHints:    []string{"news", "press", "reuters.com", "apnews.com", "bbc."},
	},
	{
		contentType: core.ContentTypeBlogPost,
		terms:       []string{"i think", "i've", "my experience", "in my opinion", "personally", "i learned", "thoughts"},
		urlHints:    []string{"blog", "/post", "medium.com", "substack.com", "wordpress"},
	},
}

const urlHintScore = 3.0

var citationPattern = regexp.MustCompile(`\[\d+(?:[,–-]\s*\d+)*\]|\([A-Z][a-zA-Z]+(?: et al\.?)?,? \d{4}\)|\bdoi:\s*10\.`)

// classifyContent picks the content type with the highest score at or above
// the threshold, or general when none qualifies.
func classifyContent(cleaned, sourceURL string, structure core.Structure, wordCount, paragraphCount int) core.ContentType {
	text := " " + strings.ToLower(cleaned) + " "
	url := strings.ToLower(sourceURL)

	best, bestScore := core.ContentTypeGeneral, 0.0
	for _, c := range classifiers {
		score := float64(min(termHits(text, c.terms), maxTermHits))
		for _, hint := range c.urlHints {
			if url != "" && strings.Contains(url, hint) {
				score += urlHintScore
				break
			}
		}

		switch c.contentType {
		case core.ContentTypeTechnical:
			if structure.CodeBlockCount > 0 {
				score += 3
			} else if structure.HasCodeBlocks {
				score++
			}
		case core.ContentTypeAcademic:
			score += float64(min(len(citationPattern.FindAllStringIndex(cleaned, -1)), 5))
		case core.ContentTypeDocumentation:
			if structure.HeaderCount >= 3 && structure.HasLists {
				score += 2
			}
		}

		if score >= classificationThreshold && score > bestScore {
			best, bestScore = c.contentType, score
		}
	}

	// Substantial editorial prose with no stronger signal is an article.
	if best == core.ContentTypeGeneral && wordCount >= 300 && paragraphCount >= 3 {
		return core.ContentTypeArticle
	}
	return best
}

// termHits counts whole-word occurrences of terms in text, which must be
// lowercased and padded with spaces.
func termHits(text string, terms []string) int {
	hits := 0
	for _, term := range terms {
		for idx := 0; ; {
			i := strings.Index(text[idx:], term)
			if i < 0 {
				break
			}
			pos := idx + i
			if isBoundary(text, pos-1) && isBoundary(text, pos+len(term)) {
				hits++
			}
			idx = pos + len(term)
		}
	}
	return hits
}

func isBoundary(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	c := text[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_')
}
