package analysis

// DefaultLanguage is reported when detection is inconclusive.
const DefaultLanguage = "en"

const (
	// minLanguageWords is the sample size below which detection is not attempted.
	minLanguageWords = 5
	// languageSampleWords bounds how much text is examined.
	languageSampleWords = 300
	// minStopwordShare is the fraction of sample words that must be stopwords
	// of the winning language.
	minStopwordShare = 0.08
)

// languageStopwords are frequent function words used to tell languages apart.
var languageStopwords = map[string]map[string]struct{}{
	"en": set("the", "and", "of", "to", "is", "in", "that", "it", "for", "with", "was", "on", "are", "as", "this", "be", "by", "not", "or", "have", "from", "but", "they", "which", "you", "at", "we", "an", "their", "has"),
	"es": set("el", "la", "de", "que", "y", "en", "los", "se", "del", "las", "un", "por", "con", "no", "una", "su", "para", "es", "al", "lo", "como", "más", "pero", "sus", "le", "ya", "o", "este", "sí", "porque"),
	"fr": set("le", "la", "les", "de", "des", "et", "est", "un", "une", "du", "en", "que", "qui", "dans", "pour", "pas", "sur", "au", "avec", "ce", "il", "elle", "ne", "se", "plus", "par", "sont", "nous", "vous", "mais"),
	"de": set("der", "die", "das", "und", "ist", "nicht", "ein", "eine", "zu", "den", "von", "mit", "sich", "des", "auf", "für", "im", "dem", "auch", "es", "an", "werden", "aus", "er", "hat", "dass", "sie", "nach", "wird", "bei"),
	"it": set("il", "di", "che", "e", "la", "un", "una", "per", "non", "sono", "del", "della", "con", "le", "gli", "si", "da", "nel", "come", "anche", "più", "ma", "questo", "alla", "ha", "dei", "delle", "lo", "nella", "essere"),
	"pt": set("o", "a", "de", "que", "e", "do", "da", "em", "um", "uma", "para", "com", "não", "os", "no", "se", "na", "por", "mais", "as", "dos", "como", "mas", "ao", "ele", "das", "seu", "sua", "ou", "quando"),
	"nl": set("de", "het", "een", "en", "van", "is", "dat", "op", "te", "in", "zijn", "voor", "met", "die", "niet", "aan", "er", "maar", "om", "ook", "als", "bij", "dan", "nog", "wordt", "naar", "kan", "uit", "worden", "deze"),
}

// languageOrder breaks ties deterministically.
var languageOrder = []string{"en", "es", "fr", "de", "it", "pt", "nl"}

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}

// detectLanguage guesses the ISO 639-1 code of text from stopword frequency.
// It returns DefaultLanguage for short or inconclusive input.
func detectLanguage(text string) string {
	ws := words(text)
	if len(ws) > languageSampleWords {
		ws = ws[:languageSampleWords]
	}
	if len(ws) < minLanguageWords {
		return DefaultLanguage
	}

	counts := make(map[string]int, len(languageOrder))
	for _, w := range ws {
		w = normalizeWord(w)
		for lang, stops := range languageStopwords {
			if _, ok := stops[w]; ok {
				counts[lang]++
			}
		}
	}

	best, bestCount, runnerUp := DefaultLanguage, 0, 0
	for _, lang := range languageOrder {
		switch c := counts[lang]; {
		case c > bestCount:
			best, runnerUp, bestCount = lang, bestCount, c
		case c > runnerUp:
			runnerUp = c
		}
	}

	if float64(bestCount)/float64(len(ws)) < minStopwordShare || bestCount == runnerUp {
		return DefaultLanguage
	}
	return best
}

// isStopword reports whether w (already normalized) is an English stopword.
func isStopword(w string) bool {
	if _, ok := languageStopwords["en"][w]; ok {
		return true
	}
	_, ok := extraStopwords[w]
	return ok
}

// extraStopwords extend the English set for phrase and topic extraction.
var extraStopwords = set(
	"a", "about", "above", "after", "again", "against", "all", "am", "any", "because", "been", "before",
	"being", "below", "between", "both", "can", "could", "did", "do", "does", "doing", "down", "during",
	"each", "few", "further", "had", "having", "he", "her", "here", "hers", "herself", "him", "himself",
	"his", "how", "i", "if", "into", "its", "itself", "just", "me", "more", "most", "my", "myself", "no",
	"nor", "now", "off", "once", "only", "other", "our", "ours", "ourselves", "out", "over", "own", "same",
	"she", "should", "so", "some", "such", "than", "them", "themselves", "then", "there", "these", "those",
	"through", "too", "under", "until", "up", "very", "were", "what", "when", "where", "while", "who",
	"whom", "why", "will", "would", "your", "yours", "yourself", "also", "may", "might", "must", "shall",
	"many", "much", "every", "however", "yet", "its", "via", "using", "use", "used", "new", "like", "get",
	"one", "two", "make", "way", "well", "even", "still", "s", "t",
)
