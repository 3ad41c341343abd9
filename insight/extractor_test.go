package insight

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
)

func goodTechnical() *core.AnalysisResult {
	return &core.AnalysisResult{
		Language:          "en",
		ContentType:       core.ContentTypeTechnical,
		Quality:           core.QualityGood,
		WordCount:         800,
		ExtractiveSummary: "Extractive first sentence. Second sentence.",
	}
}

func TestNewExtractor_RequiresModel(t *testing.T) {
	_, err := NewExtractor(nil)
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestExtract_DefaultResponses(t *testing.T) {
	model := mock.NewMockLanguageModel()
	e, err := NewExtractor(model)
	require.NoError(t, err)

	got, err := e.Extract(context.Background(), "Some technical text.", goodTechnical(), "")
	require.NoError(t, err)

	assert.Equal(t, string(StrategyComprehensive), got.Strategy)
	assert.Equal(t, "Mock Document Title", got.Title)
	assert.Equal(t, "This is a mock summary of the content.", got.Summary)
	assert.Equal(t, []string{"mock", "testing", "content"}, got.Tags)
	require.Len(t, got.Insights, 2)
	assert.Equal(t, 0.9, got.Insights[0].Relevance)
	assert.Len(t, got.ActionItems, 2)
	assert.Len(t, got.QuotableSnippets, 1)
	assert.Equal(t, 6, model.CallCount())
}

func TestExtract_KnownTitleSkipsRequest(t *testing.T) {
	model := mock.NewMockLanguageModel()
	e, err := NewExtractor(model)
	require.NoError(t, err)

	got, err := e.Extract(context.Background(), "text", goodTechnical(), "Known Title")
	require.NoError(t, err)
	assert.Equal(t, "Known Title", got.Title)
	assert.Equal(t, 5, model.CallCount())
	for _, p := range model.Prompts() {
		assert.NotContains(t, p, `{"title": "..."}`)
	}
}

func TestExtract_LightStrategy(t *testing.T) {
	model := mock.NewMockLanguageModel()
	e, err := NewExtractor(model)
	require.NoError(t, err)

	analysis := &core.AnalysisResult{Quality: core.QualityPoor, WordCount: 50, Language: "en"}
	got, err := e.Extract(context.Background(), "short text", analysis, "")
	require.NoError(t, err)

	assert.Equal(t, string(StrategyLight), got.Strategy)
	assert.Equal(t, 3, model.CallCount())
	// Fields not requested keep stable empty shapes
	assert.NotNil(t, got.Insights)
	assert.Empty(t, got.Insights)
	assert.NotNil(t, got.ActionItems)
	assert.NotNil(t, got.QuotableSnippets)
}

func TestExtract_FieldFailureIsolated(t *testing.T) {
	model := mock.NewMockLanguageModel()
	model.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		switch {
		case strings.Contains(prompt, `{"tags":`):
			return `{"tags": [broken`, nil
		case strings.Contains(prompt, `{"summary":`):
			return "", errors.New("model overloaded")
		}
		return mock.DefaultResponse, nil
	}
	e, err := NewExtractor(model)
	require.NoError(t, err)

	analysis := goodTechnical()
	analysis.Quality = core.QualityFair // technical, sequential
	got, err := e.Extract(context.Background(), "text", analysis, "")
	require.NoError(t, err)

	assert.Equal(t, string(StrategyTechnical), got.Strategy)
	assert.Empty(t, got.Tags)
	assert.Equal(t, analysis.ExtractiveSummary, got.Summary)
	assert.Equal(t, "Mock Document Title", got.Title)
	assert.NotEmpty(t, got.Insights)
}

func TestExtract_AllRequestsFail(t *testing.T) {
	var calls atomic.Int32
	model := mock.NewMockLanguageModel()
	model.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		calls.Add(1)
		return "", errors.New("connection refused")
	}
	e, err := NewExtractor(model)
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), "text", goodTechnical(), "")
	require.Error(t, err)

	var aiErr *core.AIProcessingError
	require.ErrorAs(t, err, &aiErr)
	assert.True(t, core.IsRetryable(err))
	assert.Equal(t, int32(6), calls.Load())
}

func TestExtract_Fallbacks(t *testing.T) {
	model := mock.NewMockLanguageModel()
	model.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		return `{}`, nil
	}
	e, err := NewExtractor(model)
	require.NoError(t, err)

	t.Run("first heading", func(t *testing.T) {
		analysis := goodTechnical()
		analysis.Structure.Headers = []string{"Getting Started"}
		got, err := e.Extract(context.Background(), "text", analysis, "")
		require.NoError(t, err)
		assert.Equal(t, "Getting Started", got.Title)
		assert.Equal(t, analysis.ExtractiveSummary, got.Summary)
	})

	t.Run("first sentence", func(t *testing.T) {
		got, err := e.Extract(context.Background(), "text", goodTechnical(), "")
		require.NoError(t, err)
		assert.Equal(t, "Extractive first sentence", got.Title)
	})

	t.Run("nothing available", func(t *testing.T) {
		analysis := goodTechnical()
		analysis.ExtractiveSummary = ""
		got, err := e.Extract(context.Background(), "text", analysis, "")
		require.NoError(t, err)
		assert.Equal(t, UntitledTitle, got.Title)
		assert.Equal(t, SummaryUnavailable, got.Summary)
	})
}

func TestExtract_ContentWindow(t *testing.T) {
	model := mock.NewMockLanguageModel()
	e, err := NewExtractor(model)
	require.NoError(t, err)

	text := strings.Repeat("lorem ipsum ", 2000)
	_, err = e.Extract(context.Background(), text, goodTechnical(), "")
	require.NoError(t, err)

	for _, p := range model.Prompts() {
		assert.Less(t, len(p), 9000)
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	model := mock.NewMockLanguageModel()
	e, err := NewExtractor(model)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = e.Extract(ctx, "text", goodTechnical(), "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, core.IsRetryable(err))
}
