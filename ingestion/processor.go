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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/poiesic/gleaner/core"
)

// Fetcher resolves a source to raw content.
type Fetcher interface {
	Fetch(ctx context.Context, source core.Source) (*core.RawContent, error)
}

// Analyzer cleans, chunks and scores raw text. It never fails.
type Analyzer interface {
	Analyze(raw, sourceURL string) *core.AnalysisResult
}

// InsightExtractor produces insights from analyzed text.
type InsightExtractor interface {
	Extract(ctx context.Context, text string, analysis *core.AnalysisResult, knownTitle string) (*core.Insights, error)
}

// EmbeddingGenerator converts ordered texts to ordered vectors.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// taskRun holds one task's intermediate state while it moves through the
// stages. Only the goroutine running the task touches it, except for the
// cancellation flag.
type taskRun struct {
	id     string
	source core.Source
	owner  string

	cancelRequested atomic.Bool

	raw        *core.RawContent
	analysis   *core.AnalysisResult
	insights   *core.Insights
	embeddings [][]float32
	documentID string
}

func (r *taskRun) cancelled() bool {
	return r.cancelRequested.Load()
}

// processor runs one stage of a task, extending the task's state.
type processor func(ctx context.Context, run *taskRun) error

// stageProcessor pairs a stage with the processor that performs it.
type stageProcessor struct {
	stage core.Stage
	run   processor
}

// processors returns the stages in their fixed linear order.
func (p *Pipeline) processors() []stageProcessor {
	return []stageProcessor{
		{stage: core.StageContentExtraction, run: p.extractContent},
		{stage: core.StageTextProcessing, run: p.processText},
		{stage: core.StageAIAnalysis, run: p.analyzeInsights},
		{stage: core.StageEmbeddingGeneration, run: p.generateEmbeddings},
		{stage: core.StageDatabaseStorage, run: p.storeDocument},
	}
}

func (p *Pipeline) extractContent(ctx context.Context, run *taskRun) error {
	raw, err := p.fetcher.Fetch(ctx, run.source)
	if err != nil {
		return err
	}
	run.raw = raw
	return nil
}

func (p *Pipeline) processText(_ context.Context, run *taskRun) error {
	analysis := p.analyzer.Analyze(run.raw.Text, run.raw.URL)
	if len(analysis.Chunks) == 0 {
		return ErrNoContent
	}
	run.analysis = analysis
	return nil
}

func (p *Pipeline) analyzeInsights(ctx context.Context, run *taskRun) error {
	insights, err := p.extractor.Extract(ctx, run.analysis.CleanedText, run.analysis, run.raw.Title)
	if err != nil {
		return err
	}
	run.insights = insights
	return nil
}

func (p *Pipeline) storeDocument(ctx context.Context, run *taskRun) error {
	doc := newDocument(run)
	id, err := p.documents.UpsertDocument(ctx, doc, run.analysis.Chunks, run.embeddings)
	if err != nil {
		if errors.Is(err, core.ErrInvalidDocument) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &core.StorageError{Op: "upsert document", Err: err}
	}
	run.documentID = id
	return nil
}

// newDocument assembles the durable document from a task's state.
func newDocument(run *taskRun) *core.Document {
	a := run.analysis
	ins := run.insights
	return &core.Document{
		Fingerprint:        core.Fingerprint(run.owner, run.source),
		Owner:              run.owner,
		Title:              ins.Title,
		Summary:            ins.Summary,
		Source:             run.source,
		SourceURL:          run.raw.URL,
		Author:             run.raw.Author,
		PublishedAt:        run.raw.PublishedAt,
		ExtractionMethod:   run.raw.Method,
		Tags:               ins.Tags,
		Insights:           ins.Insights,
		ActionItems:        ins.ActionItems,
		QuotableSnippets:   ins.QuotableSnippets,
		ContentType:        a.ContentType,
		Quality:            a.Quality,
		Language:           a.Language,
		WordCount:          a.WordCount,
		SentenceCount:      a.SentenceCount,
		ParagraphCount:     a.ParagraphCount,
		ReadingTimeMinutes: a.ReadingTimeMinutes,
		ComplexityScore:    a.ComplexityScore,
		KeyPhrases:         a.KeyPhrases,
		Structure:          a.Structure,
		Strategy:           ins.Strategy,
	}
}

// result summarises a completed task.
func (r *taskRun) result() *core.TaskResult {
	return &core.TaskResult{
		DocumentID:       r.documentID,
		ChunkCount:       len(r.analysis.Chunks),
		EmbeddingCount:   len(r.embeddings),
		ContentLength:    len(r.analysis.CleanedText),
		Strategy:         r.insights.Strategy,
		ExtractionMethod: r.raw.Method,
	}
}

// errorMessage renders err as the concise message stored on a failed task.
func errorMessage(stage core.Stage, err error) string {
	return fmt.Sprintf("%s: %v", stage, err)
}
