package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/core"
)

func TestClean(t *testing.T) {
	raw := "Title\n\n\n\nFirst   paragraph  here.\n---\nCookie Policy\nSecond line!!!\n\n  \nThird paragraph...\r\nShe said “hi” — twice;;"
	want := "Title\n\nFirst paragraph here.\nSecond line!\n\nThird paragraph...\nShe said \"hi\" - twice;"
	assert.Equal(t, want, clean(raw))
}

func TestClean_KeepsProseMentioningBoilerplate(t *testing.T) {
	line := "Readers who subscribe to the journal receive a printed copy of every issue along with the online archive."
	assert.Equal(t, line, clean(line))
	assert.Equal(t, "", clean("Subscribe to our newsletter\n© 2024 Example Inc. All rights reserved"))
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "basic", text: "One two. Three four! Five?", want: []string{"One two.", "Three four!", "Five?"}},
		{name: "abbreviation", text: "Dr. Smith arrived. He sat down.", want: []string{"Dr. Smith arrived.", "He sat down."}},
		{name: "decimal", text: "Pi is 3.14 roughly. Yes.", want: []string{"Pi is 3.14 roughly.", "Yes."}},
		{name: "quotes", text: `He said "stop." Then left.`, want: []string{`He said "stop."`, "Then left."}},
		{name: "line breaks", text: "# Heading\nBody text here", want: []string{"# Heading", "Body text here"}},
		{name: "no terminator", text: "trailing words", want: []string{"trailing words"}},
		{name: "empty", text: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, s := range splitSentences(tt.text) {
				got = append(got, tt.text[s.start:s.end])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "english", text: "The cat sat on the mat and it was happy with the result of the day.", want: "en"},
		{name: "spanish", text: "El gato está en la casa y los perros son muy grandes para el jardín de la escuela.", want: "es"},
		{name: "german", text: "Der Hund und die Katze sind nicht in dem Haus, weil es zu kalt ist.", want: "de"},
		{name: "french", text: "Le chat est dans la maison et les chiens sont dans le jardin avec nous pour la nuit.", want: "fr"},
		{name: "too short", text: "hola amigo", want: DefaultLanguage},
		{name: "no stopwords", text: "xyzzy plugh frobozz quux wibble wobble", want: DefaultLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectLanguage(tt.text))
		})
	}
}

func TestClassifyContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		url  string
		want core.ContentType
	}{
		{
			name: "technical",
			raw:  "The API exposes a function that reads from the database. Each method on the interface returns an error.\n```go\nfunc main() {}\n```",
			want: core.ContentTypeTechnical,
		},
		{
			name: "academic",
			raw:  "This study presents research on sleep. Our methodology follows prior work (Smith, 2020) and [3]. The hypothesis was confirmed by the findings.",
			want: core.ContentTypeAcademic,
		},
		{
			name: "documentation by url",
			raw:  "Run the installer and follow the steps shown below to finish setup.",
			url:  "https://example.com/docs/setup",
			want: core.ContentTypeDocumentation,
		},
		{
			name: "news",
			raw:  "Officials announced the closure yesterday. According to a spokesperson, the statement was reported widely.",
			want: core.ContentTypeNews,
		},
		{
			name: "blog by url",
			raw:  "I spent the weekend rebuilding my garden shed.",
			url:  "https://someone.substack.com/p/shed",
			want: core.ContentTypeBlogPost,
		},
		{
			name: "general",
			raw:  "hello there friend, nice weather today",
			want: core.ContentTypeGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewAnalyzer().Analyze(tt.raw, tt.url)
			assert.Equal(t, tt.want, result.ContentType)
		})
	}
}

func TestAnalyzeStructure(t *testing.T) {
	raw := "# Intro\n\nSome text with `inline` code and [a link](https://example.com).\n\n" +
		"## Usage\n\n- first\n- second\n1. numbered\n\n```\ncode here\n```\n\nINSTALL NOTES\n"
	cleaned := clean(raw)
	s := analyzeStructure(raw, cleaned, splitSentences(cleaned))

	assert.Equal(t, 3, s.HeaderCount)
	assert.Equal(t, []string{"Intro", "Usage", "INSTALL NOTES"}, s.Headers)
	assert.Equal(t, 3, s.ListItemCount)
	assert.Equal(t, 1, s.CodeBlockCount)
	assert.Equal(t, 1, s.LinkCount)
	assert.True(t, s.HasHeaders)
	assert.True(t, s.HasLists)
	assert.True(t, s.HasCodeBlocks)
	assert.True(t, s.HasLinks)
	assert.Equal(t, 0, s.BoilerplateRemnants)
}

func TestExtractKeyPhrases(t *testing.T) {
	text := "Vector databases store embeddings. The vector databases are fast and the embeddings are compact."
	got := extractKeyPhrases(text, 20)

	require.NotEmpty(t, got)
	assert.Contains(t, got, "vector databases")
	for _, p := range got {
		n := len(words(p))
		assert.GreaterOrEqual(t, n, 2)
		assert.LessOrEqual(t, n, maxPhraseWords)
	}

	assert.Len(t, extractKeyPhrases(sampleProse(200), 3), 3)
	assert.Empty(t, extractKeyPhrases(text, 0))
}

func TestExtractTopics(t *testing.T) {
	text := "Kafka brokers replicate partitions. Kafka consumers read partitions. Brokers elect leaders for kafka."
	got := extractTopics(text, 10)
	require.NotEmpty(t, got)
	assert.Equal(t, "kafka", got[0])
	assert.Equal(t, []string{"kafka", "brokers", "partitions"}, got[:3])
}
