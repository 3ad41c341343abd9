// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package insight

import (
	"github.com/poiesic/gleaner/core"
)

// Strategy is the depth of insight extraction chosen for a document.
type Strategy string

const (
	StrategyComprehensive Strategy = "comprehensive"
	StrategyStandard      Strategy = "standard"
	StrategyLight         Strategy = "light"
	StrategyTechnical     Strategy = "technical"
	StrategyAcademic      Strategy = "academic"
)

// MinWordCount is the word count below which content is processed with
// the light strategy regardless of quality.
const MinWordCount = 100

// Strategies lists every strategy.
var Strategies = []Strategy{
	StrategyComprehensive,
	StrategyStandard,
	StrategyLight,
	StrategyTechnical,
	StrategyAcademic,
}

// SelectStrategy picks the extraction strategy for an analysis result.
// It is a pure function of its input.
func SelectStrategy(analysis *core.AnalysisResult) Strategy {
	if analysis == nil {
		return StrategyLight
	}
	if analysis.Quality == core.QualityPoor || analysis.WordCount < MinWordCount {
		return StrategyLight
	}

	highQuality := analysis.Quality == core.QualityExcellent || analysis.Quality == core.QualityGood
	switch analysis.ContentType {
	case core.ContentTypeAcademic:
		if highQuality {
			return StrategyComprehensive
		}
		return StrategyAcademic
	case core.ContentTypeTechnical:
		if highQuality {
			return StrategyComprehensive
		}
		return StrategyTechnical
	}
	return StrategyStandard
}

// Field is one independently requested part of the insights.
type Field string

const (
	FieldTitle            Field = "title"
	FieldSummary          Field = "summary"
	FieldTags             Field = "tags"
	FieldInsights         Field = "insights"
	FieldActionItems      Field = "action_items"
	FieldQuotableSnippets Field = "quotable_snippets"
)

// request holds the model parameters for one field request.
type request struct {
	window      int // characters of content sent
	maxTokens   int
	temperature float64
}

var fieldRequests = map[Field]request{
	FieldTitle:            {window: 2000, maxTokens: 100, temperature: 0.3},
	FieldSummary:          {window: 5000, maxTokens: 500, temperature: 0.4},
	FieldInsights:         {window: 8000, maxTokens: 800, temperature: 0.4},
	FieldTags:             {window: 3000, maxTokens: 300, temperature: 0.3},
	FieldActionItems:      {window: 4000, maxTokens: 400, temperature: 0.4},
	FieldQuotableSnippets: {window: 6000, maxTokens: 600, temperature: 0.4},
}

// profile is the prompt guidance and dispatch shape of a strategy.
type profile struct {
	summaryGuidance string
	insightCount    string
	fields          []Field
	parallel        bool
}

var allFields = []Field{
	FieldTitle,
	FieldSummary,
	FieldInsights,
	FieldTags,
	FieldActionItems,
	FieldQuotableSnippets,
}

var profiles = map[Strategy]profile{
	StrategyComprehensive: {
		summaryGuidance: "Create a comprehensive summary (200-300 words) covering all major points, key findings, and important details.",
		insightCount:    "5-8",
		fields:          allFields,
		parallel:        true,
	},
	StrategyStandard: {
		summaryGuidance: "Create a balanced summary (150-200 words) covering the main points and key insights.",
		insightCount:    "3-5",
		fields:          allFields,
	},
	StrategyLight: {
		summaryGuidance: "Create a concise summary (100-150 words) focusing on the most important points.",
		insightCount:    "2-3",
		fields:          []Field{FieldTitle, FieldSummary, FieldTags},
	},
	StrategyTechnical: {
		summaryGuidance: "Create a technical summary (150-250 words) focusing on functionality, features, and implementation details.",
		insightCount:    "4-6",
		fields:          allFields,
	},
	StrategyAcademic: {
		summaryGuidance: "Create an academic summary (200-300 words) covering methodology, findings, and implications.",
		insightCount:    "5-7",
		fields:          allFields,
	},
}

func (s Strategy) profile() profile {
	if p, ok := profiles[s]; ok {
		return p
	}
	return profiles[StrategyStandard]
}

// Fields returns the fields requested from the model under this strategy.
func (s Strategy) Fields() []Field {
	return s.profile().fields
}

// Parallel reports whether field requests are dispatched concurrently.
func (s Strategy) Parallel() bool {
	return s.profile().parallel
}
