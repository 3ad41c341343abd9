package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/core"
)

// sampleProse builds n sentences of varying length.
func sampleProse(n int) string {
	subjects := []string{"The system", "Every request", "A careful reader", "The storage layer", "Our team"}
	verbs := []string{"processes", "validates", "reviews", "persists", "measures"}
	objects := []string{
		"the incoming documents",
		"each chunk of text before it is embedded into the index",
		"latency",
		"the results of the previous stage together with its metadata and timing information",
		"errors",
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 && i%7 == 0 {
			b.WriteString("\n\n")
		} else if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s %s %s.", subjects[i%len(subjects)], verbs[(i/2)%len(verbs)], objects[(i/3)%len(objects)])
	}
	return b.String()
}

func assertChunkInvariants(t *testing.T, result *core.AnalysisResult) {
	t.Helper()
	require.NotEmpty(t, result.Chunks)

	total := 0
	for i, c := range result.Chunks {
		assert.Equal(t, i, c.Index, "chunk indices must be contiguous")
		assert.NotEmpty(t, strings.TrimSpace(c.Text), "chunk %d is empty", i)
		assert.Equal(t, result.CleanedText[c.StartOffset:c.EndOffset], c.Text)
		assert.GreaterOrEqual(t, c.QualityScore, 0.0)
		assert.LessOrEqual(t, c.QualityScore, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, c.StartOffset, result.Chunks[i-1].EndOffset, "gap before chunk %d", i)
			assert.Greater(t, c.StartOffset, result.Chunks[i-1].StartOffset)
		}
		total += len(c.Text)
	}
	assert.Equal(t, 0, result.Chunks[0].StartOffset)
	assert.Equal(t, len(result.CleanedText), result.Chunks[len(result.Chunks)-1].EndOffset)
	assert.GreaterOrEqual(t, total, len(result.CleanedText))
}

func TestAnalyze_ChunkInvariants(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "prose", text: sampleProse(120)},
		{name: "single short sentence", text: "Just one sentence here."},
		{name: "long sentence without punctuation", text: strings.Repeat("lorem ipsum dolor sit amet ", 150)},
		{name: "one huge word", text: strings.Repeat("x", 2500)},
		{name: "lines without terminators", text: strings.Repeat("a line of text with several words\n", 80)},
		{name: "unicode", text: strings.Repeat("Größere Äpfel schmecken süß. ", 90)},
	}

	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertChunkInvariants(t, a.Analyze(tt.text, ""))
		})
	}
}

func TestAnalyze_ChunkSizing(t *testing.T) {
	a := NewAnalyzer(WithChunkSize(500), WithChunkOverlap(100))
	result := a.Analyze(sampleProse(200), "")
	assertChunkInvariants(t, result)

	require.Greater(t, len(result.Chunks), 2)
	for i, c := range result.Chunks {
		assert.LessOrEqual(t, len(c.Text), 500+100+2, "chunk %d too large", i)
	}
	// The last chunk may be shorter than the target, the rest are reasonably full.
	for _, c := range result.Chunks[:len(result.Chunks)-1] {
		assert.Greater(t, len(c.Text), 250)
	}
}

func TestAnalyze_ShortText(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha ", 50))

	result := NewAnalyzer().Analyze(text, "")

	assert.Equal(t, 50, result.WordCount)
	assert.Equal(t, 1, result.ReadingTimeMinutes)
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, text, result.Chunks[0].Text)
	assert.Equal(t, core.QualityPoor, result.Quality)
	assert.Equal(t, DefaultLanguage, result.Language)
}

func TestAnalyze_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   \n\t "} {
		result := NewAnalyzer().Analyze(text, "")
		assert.Equal(t, 0, result.WordCount)
		assert.Empty(t, result.Chunks)
		assert.NotNil(t, result.Chunks)
		assert.Equal(t, core.QualityPoor, result.Quality)
		assert.Equal(t, DefaultLanguage, result.Language)
		assert.Equal(t, core.ContentTypeGeneral, result.ContentType)
		assert.Empty(t, result.KeyPhrases)
	}
}

func TestAnalyze_NoiseOnlyInputKeepsText(t *testing.T) {
	result := NewAnalyzer().Analyze("!! ?? --", "")
	require.Len(t, result.Chunks, 1)
	assert.Equal(t, "!! ?? --", result.CleanedText)
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := NewAnalyzer()
	text := sampleProse(80)
	assert.Equal(t, a.Analyze(text, "https://example.com/a"), a.Analyze(text, "https://example.com/a"))
}

func TestAnalyze_RangesAndCounts(t *testing.T) {
	a := NewAnalyzer()
	for _, n := range []int{1, 5, 20, 100, 300} {
		result := a.Analyze(sampleProse(n), "")
		assert.GreaterOrEqual(t, result.ComplexityScore, 0.0)
		assert.LessOrEqual(t, result.ComplexityScore, 1.0)
		assert.GreaterOrEqual(t, result.ReadingTimeMinutes, 1)
		assert.Equal(t, n, result.SentenceCount)
		assert.LessOrEqual(t, len(result.KeyPhrases), DefaultMaxKeyPhrases)
		assert.LessOrEqual(t, len(result.Topics), DefaultMaxTopics)
		assert.NotEmpty(t, result.ExtractiveSummary)
	}
}

func TestAnalyze_QualityImprovesWithStructure(t *testing.T) {
	a := NewAnalyzer()
	plain := a.Analyze(sampleProse(150), "")

	var b strings.Builder
	b.WriteString("# Processing Guide\n\n")
	b.WriteString(sampleProse(150))
	b.WriteString("\n\n## Steps\n\n- validate input\n- store output\n\nSee https://example.com/more for details.")
	structured := a.Analyze(b.String(), "")

	assert.Greater(t, structured.QualityScore, plain.QualityScore)
	assert.Contains(t, []core.Quality{core.QualityGood, core.QualityExcellent}, structured.Quality)
}

func TestReadingTime(t *testing.T) {
	prev := 0
	for words := 1; words <= 2000; words += 37 {
		got := readingTime(words, 200)
		assert.GreaterOrEqual(t, got, 1)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
	assert.Equal(t, 1, readingTime(200, 200))
	assert.Equal(t, 2, readingTime(201, 200))
	assert.Equal(t, 0, readingTime(0, 200))
}

func TestNewAnalyzer_NormalizesSettings(t *testing.T) {
	a := NewAnalyzer(WithChunkSize(0), WithChunkOverlap(5000), WithReadingSpeed(-1))
	assert.Equal(t, DefaultChunkSize, a.chunkSize)
	assert.Equal(t, DefaultChunkSize/5, a.chunkOverlap)
	assert.Equal(t, DefaultReadingSpeedWPM, a.readingSpeed)
}

func TestExtractiveSummary(t *testing.T) {
	text := "One. Two. Three. Four. Five."
	assert.Equal(t, "One. Two. Five.", extractiveSummary(text, splitSentences(text)))

	short := "Alpha. Beta."
	assert.Equal(t, short, extractiveSummary(short, splitSentences(short)))
}
