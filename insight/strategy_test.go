package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/gleaner/core"
)

func TestSelectStrategy(t *testing.T) {
	tests := []struct {
		name        string
		quality     core.Quality
		contentType core.ContentType
		words       int
		want        Strategy
	}{
		{name: "poor quality", quality: core.QualityPoor, contentType: core.ContentTypeTechnical, words: 1000, want: StrategyLight},
		{name: "too short", quality: core.QualityExcellent, contentType: core.ContentTypeAcademic, words: 50, want: StrategyLight},
		{name: "excellent academic", quality: core.QualityExcellent, contentType: core.ContentTypeAcademic, words: 1000, want: StrategyComprehensive},
		{name: "good technical", quality: core.QualityGood, contentType: core.ContentTypeTechnical, words: 500, want: StrategyComprehensive},
		{name: "fair technical", quality: core.QualityFair, contentType: core.ContentTypeTechnical, words: 500, want: StrategyTechnical},
		{name: "fair academic", quality: core.QualityFair, contentType: core.ContentTypeAcademic, words: 500, want: StrategyAcademic},
		{name: "good news", quality: core.QualityGood, contentType: core.ContentTypeNews, words: 500, want: StrategyStandard},
		{name: "fair blog", quality: core.QualityFair, contentType: core.ContentTypeBlogPost, words: 300, want: StrategyStandard},
		{name: "general at threshold", quality: core.QualityFair, contentType: core.ContentTypeGeneral, words: MinWordCount, want: StrategyStandard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := &core.AnalysisResult{Quality: tt.quality, ContentType: tt.contentType, WordCount: tt.words}
			assert.Equal(t, tt.want, SelectStrategy(analysis))
		})
	}

	assert.Equal(t, StrategyLight, SelectStrategy(nil))
}

func TestStrategyProfiles(t *testing.T) {
	for _, s := range Strategies {
		t.Run(string(s), func(t *testing.T) {
			fields := s.Fields()
			assert.Contains(t, fields, FieldTitle)
			assert.Contains(t, fields, FieldSummary)
			assert.Contains(t, fields, FieldTags)
			for _, f := range fields {
				_, ok := fieldRequests[f]
				assert.True(t, ok, "field %s has no request parameters", f)
			}
		})
	}

	assert.True(t, StrategyComprehensive.Parallel())
	assert.False(t, StrategyStandard.Parallel())
	assert.Len(t, StrategyLight.Fields(), 3)
	assert.Len(t, StrategyStandard.Fields(), 6)
}
