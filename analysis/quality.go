package analysis

import (
	"math"
	"strings"

	"github.com/poiesic/gleaner/core"
)

// Quality weights. The score is out of 100.
const (
	lengthWeight      = 30
	structureWeight   = 20
	coherenceWeight   = 35
	boilerplateWeight = 15

	excellentThreshold = 80
	goodThreshold      = 60
	fairThreshold      = 40
)

type textStats struct {
	wordCount      int
	sentenceCount  int
	paragraphCount int
	uniqueWords    int
	sentenceWords  []int
	avgWordLength  float64
	typeTokenRatio float64
}

func computeStats(cleaned string, sentences []span) textStats {
	ws := words(cleaned)
	st := textStats{
		wordCount:      len(ws),
		sentenceCount:  len(sentences),
		paragraphCount: len(splitParagraphs(cleaned)),
		sentenceWords:  make([]int, len(sentences)),
	}
	for i, s := range sentences {
		st.sentenceWords[i] = len(words(cleaned[s.start:s.end]))
	}

	seen := make(map[string]struct{}, len(ws))
	letters, counted := 0, 0
	for _, w := range ws {
		n := normalizeWord(w)
		if n == "" {
			continue
		}
		seen[n] = struct{}{}
		letters += len([]rune(n))
		counted++
	}
	st.uniqueWords = len(seen)
	if counted > 0 {
		st.avgWordLength = float64(letters) / float64(counted)
		st.typeTokenRatio = float64(len(seen)) / float64(counted)
	}
	return st
}

// assessQuality returns the quality category and its 0-100 score.
func assessQuality(st textStats, structure core.Structure) (core.Quality, float64) {
	if st.wordCount == 0 {
		return core.QualityPoor, 0
	}

	score := lengthScore(st.wordCount) +
		structureScore(st, structure) +
		coherenceScore(st, structure.AvgSentenceLength) +
		boilerplateScore(structure.BoilerplateRemnants)

	switch {
	case score >= excellentThreshold:
		return core.QualityExcellent, score
	case score >= goodThreshold:
		return core.QualityGood, score
	case score >= fairThreshold:
		return core.QualityFair, score
	}
	return core.QualityPoor, score
}

func lengthScore(wordCount int) float64 {
	switch {
	case wordCount >= 1000:
		return lengthWeight
	case wordCount >= 500:
		return lengthWeight * 0.8
	case wordCount >= 200:
		return lengthWeight * 0.55
	case wordCount >= 100:
		return lengthWeight * 0.3
	}
	return 0
}

func structureScore(st textStats, s core.Structure) float64 {
	score := 0.0
	if st.paragraphCount > 5 {
		score += 5
	}
	if st.sentenceCount > 10 {
		score += 5
	}
	if s.HasHeaders {
		score += 5
	}
	if s.HasLists {
		score += 3
	}
	if s.HasLinks {
		score += 2
	}
	return min(score, structureWeight)
}

// coherenceScore rewards a readable sentence length band and a rich vocabulary.
func coherenceScore(st textStats, avgSentence float64) float64 {
	score := 0.0
	switch {
	case avgSentence >= 10 && avgSentence <= 25:
		score += 20
	case avgSentence >= 5 && avgSentence <= 30:
		score += 14
	case avgSentence > 0:
		score += 7
	}
	switch {
	case st.uniqueWords > 200:
		score += 15
	case st.uniqueWords > 100:
		score += 11
	case st.uniqueWords > 50:
		score += 7
	case st.uniqueWords > 0:
		score += 3
	}
	return min(score, coherenceWeight)
}

func boilerplateScore(remnants int) float64 {
	return max(boilerplateWeight-5*float64(remnants), 0)
}

// complexityScore blends sentence length, sentence length variation, word
// length and vocabulary diversity into [0,1]. Higher is harder to read.
func complexityScore(st textStats) float64 {
	if st.wordCount == 0 || len(st.sentenceWords) == 0 {
		return 0
	}

	mean := float64(st.wordCount) / float64(len(st.sentenceWords))
	variance := 0.0
	for _, n := range st.sentenceWords {
		d := float64(n) - mean
		variance += d * d
	}
	cv := 0.0
	if mean > 0 {
		cv = math.Sqrt(variance/float64(len(st.sentenceWords))) / mean
	}

	score := 0.35*math.Min(mean/30, 1) +
		0.15*math.Min(cv, 1) +
		0.25*math.Min(st.avgWordLength/8, 1) +
		0.25*st.typeTokenRatio
	return math.Max(0, math.Min(score, 1))
}

// readingTime is ceil(words / wpm), at least one minute for non-empty text.
func readingTime(wordCount, wpm int) int {
	if wordCount == 0 {
		return 0
	}
	return max(1, (wordCount+wpm-1)/wpm)
}

// extractiveSummary is the first two sentences, plus the last when there are
// more than four. Short texts are returned whole.
func extractiveSummary(cleaned string, sentences []span) string {
	if len(sentences) <= 3 {
		return strings.Join(strings.Fields(cleaned), " ")
	}
	parts := []string{
		cleaned[sentences[0].start:sentences[0].end],
		cleaned[sentences[1].start:sentences[1].end],
	}
	if len(sentences) > 4 {
		last := sentences[len(sentences)-1]
		parts = append(parts, cleaned[last.start:last.end])
	}
	return strings.Join(parts, " ")
}
