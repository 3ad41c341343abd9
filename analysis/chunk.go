package analysis

import (
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/gleaner/core"
)

// chunkText splits text into chunks of roughly size bytes along sentence
// boundaries. Consecutive chunks share up to overlap bytes: whole trailing
// sentences when they fit, otherwise the trailing words of the last
// sentence. Chunks are substrings of text and together cover all of it.
func chunkText(text string, sentences []span, size, overlap int) []core.Chunk {
	sentences = splitLong(text, sentences, size)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []core.Chunk
	chunkStart := sentences[0].start
	i := 0
	for i < len(sentences) {
		// Take at least one sentence, then as many as fit.
		j := i + 1
		for j < len(sentences) && sentences[j].end-chunkStart <= size {
			j++
		}
		chunkEnd := sentences[j-1].end
		chunks = append(chunks, newChunk(text, len(chunks), chunkStart, chunkEnd, sentences))

		if j == len(sentences) {
			break
		}
		chunkStart = overlapStart(text, sentences, i, j, chunkStart, overlap)
		i = j
	}
	return chunks
}

// overlapStart picks where the chunk following sentences[i:j] begins.
// The result is always before sentences[j-1].end, so no text falls between
// chunks.
func overlapStart(text string, sentences []span, i, j, chunkStart, overlap int) int {
	end := sentences[j-1].end

	// Earliest whole trailing sentence that keeps the overlap within budget,
	// never reaching back to the start of the current chunk.
	best := -1
	for k := j - 1; k >= i; k-- {
		if end-sentences[k].start > overlap || sentences[k].start <= chunkStart {
			break
		}
		best = sentences[k].start
	}
	if best >= 0 {
		return best
	}

	// Trailing words of the last sentence
	from := max(end-overlap, chunkStart+1, sentences[j-1].start)
	for p := from; p < end; p++ {
		if utf8.RuneStart(text[p]) && !isSpaceAt(text, p) && p > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:p])
			if unicode.IsSpace(prev) {
				return p
			}
		}
	}

	// A single long word: overlap by its trailing runes
	for p := max(end-overlap, chunkStart+1); p < end; p++ {
		if utf8.RuneStart(text[p]) {
			return p
		}
	}
	return end
}

func newChunk(text string, index, start, end int, sentences []span) core.Chunk {
	body := text[start:end]
	sentenceCount := 0
	for _, s := range sentences {
		if s.start < end && s.end > start {
			sentenceCount++
		}
	}
	wordCount := len(words(body))
	return core.Chunk{
		Index:         index,
		Text:          body,
		StartOffset:   start,
		EndOffset:     end,
		WordCount:     wordCount,
		SentenceCount: sentenceCount,
		QualityScore:  chunkQuality(body, wordCount, sentenceCount),
	}
}

// chunkQuality scores a chunk in [0,1] from its length, vocabulary and
// sentence structure.
func chunkQuality(body string, wordCount, sentenceCount int) float64 {
	if wordCount == 0 {
		return 0
	}
	score := 0.0

	switch {
	case wordCount > 50:
		score += 0.3
	case wordCount > 20:
		score += 0.2
	case wordCount > 10:
		score += 0.1
	}

	unique := uniqueWords(words(body))
	switch {
	case unique > 20:
		score += 0.3
	case unique > 10:
		score += 0.2
	}

	switch {
	case sentenceCount > 2:
		score += 0.2
	case sentenceCount > 1:
		score += 0.1
	}

	if sentenceCount > 0 {
		avg := float64(wordCount) / float64(sentenceCount)
		switch {
		case avg >= 10 && avg <= 25:
			score += 0.2
		case avg >= 5 && avg <= 30:
			score += 0.1
		}
	}
	return min(score, 1)
}

func uniqueWords(ws []string) int {
	seen := make(map[string]struct{}, len(ws))
	for _, w := range ws {
		if n := normalizeWord(w); n != "" {
			seen[n] = struct{}{}
		}
	}
	return len(seen)
}
