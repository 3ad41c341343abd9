package analysis

import (
	"slices"
	"strings"
	"unicode"
)

const (
	maxPhraseWords = 4
	minTopicLength = 4
)

type phrase struct {
	words []string
	text  string
	score float64
	first int
}

// extractKeyPhrases ranks multi-word candidate phrases by the summed
// degree-to-frequency ratio of their words. Candidates are runs of
// non-stopwords between stopwords and punctuation.
func extractKeyPhrases(text string, limit int) []string {
	if limit <= 0 {
		return []string{}
	}

	var candidates [][]string
	var current []string
	flush := func() {
		if len(current) > 0 {
			candidates = append(candidates, current)
			current = nil
		}
	}
	for _, raw := range words(text) {
		w := normalizeWord(raw)
		if w == "" || isStopword(w) || !hasLetter(w) {
			flush()
			continue
		}
		current = append(current, w)
		// Punctuation ends a phrase
		if last, _ := lastRune(raw); strings.ContainsRune(".,;:!?)]\"", last) {
			flush()
		}
	}
	flush()

	freq := map[string]int{}
	degree := map[string]int{}
	for _, c := range candidates {
		for _, w := range c {
			freq[w]++
			degree[w] += len(c) - 1
		}
	}

	seen := map[string]int{}
	var phrases []phrase
	for i, c := range candidates {
		if len(c) < 2 || len(c) > maxPhraseWords {
			continue
		}
		key := strings.Join(c, " ")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = i
		score := 0.0
		for _, w := range c {
			score += float64(degree[w]+freq[w]) / float64(freq[w])
		}
		phrases = append(phrases, phrase{words: c, text: key, score: score, first: i})
	}

	slices.SortStableFunc(phrases, func(a, b phrase) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return a.first - b.first
	})

	out := make([]string, 0, min(limit, len(phrases)))
	for _, p := range phrases {
		if len(out) == limit {
			break
		}
		out = append(out, p.text)
	}
	return out
}

// extractTopics returns the most frequent content words, ties broken by
// first occurrence.
func extractTopics(text string, limit int) []string {
	type topic struct {
		word  string
		count int
		first int
	}
	index := map[string]int{}
	var topics []topic
	for i, raw := range words(text) {
		w := normalizeWord(raw)
		if len(w) < minTopicLength || isStopword(w) || !isAlpha(w) {
			continue
		}
		if at, ok := index[w]; ok {
			topics[at].count++
			continue
		}
		index[w] = len(topics)
		topics = append(topics, topic{word: w, count: 1, first: i})
	}

	slices.SortStableFunc(topics, func(a, b topic) int {
		if a.count != b.count {
			return b.count - a.count
		}
		return a.first - b.first
	})

	out := make([]string, 0, min(limit, len(topics)))
	for _, t := range topics {
		if len(out) == limit {
			break
		}
		out = append(out, t.word)
	}
	return out
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func isAlpha(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }) < 0
}

func lastRune(s string) (rune, bool) {
	if s == "" {
		return 0, false
	}
	r := []rune(s)
	return r[len(r)-1], true
}
