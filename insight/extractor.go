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
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
)

const (
	// UntitledTitle is used when no title can be determined.
	UntitledTitle = "Untitled"
	// SummaryUnavailable is used when neither the model nor the analyzer produced a summary.
	SummaryUnavailable = "Summary not available"
)

// ErrModelRequired is returned when an Extractor is created without a language model.
var ErrModelRequired = errors.New("language model is required")

// Extractor produces document insights using a language model.
type Extractor struct {
	model  ai.LanguageModel
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an Extractor backed by model.
func NewExtractor(model ai.LanguageModel, opts ...Option) (*Extractor, error) {
	if model == nil {
		return nil, ErrModelRequired
	}
	e := &Extractor{
		model:  model,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "insight-extractor")
	return e, nil
}

// fieldResult is the outcome of one field request.
type fieldResult struct {
	response string
	err      error
}

// Extract requests every field the selected strategy calls for and assembles
// the results. A field that fails or cannot be parsed falls back to its
// default value. Extract returns a *core.AIProcessingError only when every
// model request failed. knownTitle, when non-empty, skips the title request.
func (e *Extractor) Extract(ctx context.Context, text string, analysis *core.AnalysisResult, knownTitle string) (*core.Insights, error) {
	strategy := SelectStrategy(analysis)
	fields := make([]Field, 0, len(strategy.Fields()))
	for _, f := range strategy.Fields() {
		if f == FieldTitle && strings.TrimSpace(knownTitle) != "" {
			continue
		}
		fields = append(fields, f)
	}

	contentType, language := core.ContentTypeGeneral, "en"
	if analysis != nil {
		contentType, language = analysis.ContentType, analysis.Language
	}

	e.logger.Debug("extracting insights",
		"strategy", strategy,
		"fields", len(fields),
		"contentType", contentType)

	results := make([]fieldResult, len(fields))
	call := func(i int) {
		f := fields[i]
		req := fieldRequests[f]
		prompt := buildPrompt(f, strategy, contentType, language, truncate(text, req.window))
		response, err := e.model.Complete(ctx, prompt, req.maxTokens, req.temperature)
		results[i] = fieldResult{response: response, err: err}
	}

	if strategy.Parallel() {
		// Each goroutine writes only its own slot; failures never cancel siblings.
		var g errgroup.Group
		for i := range fields {
			g.Go(func() error {
				call(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range fields {
			if ctx.Err() != nil {
				results[i].err = ctx.Err()
				continue
			}
			call(i)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs []error
	for i, r := range results {
		if r.err != nil {
			e.logger.Warn("field request failed", "field", fields[i], "err", r.err)
			errs = append(errs, r.err)
		}
	}
	if len(fields) > 0 && len(errs) == len(fields) {
		return nil, &core.AIProcessingError{Err: errors.Join(errs...)}
	}

	insights := e.assemble(fields, results, analysis, knownTitle)
	insights.Strategy = string(strategy)
	return insights, nil
}

func (e *Extractor) assemble(fields []Field, results []fieldResult, analysis *core.AnalysisResult, knownTitle string) *core.Insights {
	out := &core.Insights{
		Title:            strings.TrimSpace(knownTitle),
		Tags:             []string{},
		Insights:         []core.Insight{},
		ActionItems:      []string{},
		QuotableSnippets: []core.Snippet{},
	}

	for i, f := range fields {
		r := results[i]
		if r.err != nil {
			continue
		}
		var err error
		switch f {
		case FieldTitle:
			var title string
			if title, err = parseTitle(r.response); err == nil {
				out.Title = title
			}
		case FieldSummary:
			var summary string
			if summary, err = parseSummary(r.response); err == nil {
				out.Summary = summary
			}
		case FieldTags:
			var tags []string
			if tags, err = parseTags(r.response); err == nil {
				out.Tags = tags
			}
		case FieldInsights:
			var insights []core.Insight
			if insights, err = parseInsights(r.response); err == nil {
				out.Insights = insights
			}
		case FieldActionItems:
			var items []string
			if items, err = parseActionItems(r.response); err == nil {
				out.ActionItems = items
			}
		case FieldQuotableSnippets:
			var snippets []core.Snippet
			if snippets, err = parseSnippets(r.response); err == nil {
				out.QuotableSnippets = snippets
			}
		}
		if err != nil {
			e.logger.Warn("using fallback for unparseable field", "field", f, "err", err)
		}
	}

	if out.Title == "" {
		out.Title = fallbackTitle(analysis)
	}
	if out.Summary == "" {
		out.Summary = SummaryUnavailable
		if analysis != nil && strings.TrimSpace(analysis.ExtractiveSummary) != "" {
			out.Summary = analysis.ExtractiveSummary
		}
	}
	return out
}

// fallbackTitle derives a title from the first heading or the first sentence.
func fallbackTitle(analysis *core.AnalysisResult) string {
	if analysis == nil {
		return UntitledTitle
	}
	if len(analysis.Structure.Headers) > 0 {
		if title, err := cleanTitle(analysis.Structure.Headers[0]); err == nil {
			return title
		}
	}
	summary := analysis.ExtractiveSummary
	if end := strings.IndexAny(summary, ".!?\n"); end > 0 {
		summary = summary[:end]
	}
	if title, err := cleanTitle(summary); err == nil {
		return title
	}
	return UntitledTitle
}
