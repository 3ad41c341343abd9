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

package analysis

import (
	"log/slog"
	"strings"

	"github.com/poiesic/gleaner/core"
)

// Default analyzer settings.
const (
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultReadingSpeedWPM = 200
	DefaultMaxKeyPhrases   = 20
	DefaultMaxTopics       = 10
)

// Analyzer cleans, chunks, classifies and scores text.
// It is safe for concurrent use.
type Analyzer struct {
	chunkSize     int
	chunkOverlap  int
	readingSpeed  int
	maxKeyPhrases int
	maxTopics     int
	logger        *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithChunkSize sets the target chunk size in bytes.
func WithChunkSize(size int) Option {
	return func(a *Analyzer) {
		a.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap between consecutive chunks in bytes.
func WithChunkOverlap(overlap int) Option {
	return func(a *Analyzer) {
		a.chunkOverlap = overlap
	}
}

// WithReadingSpeed sets the reading speed in words per minute.
func WithReadingSpeed(wpm int) Option {
	return func(a *Analyzer) {
		a.readingSpeed = wpm
	}
}

// WithMaxKeyPhrases caps the number of key phrases returned.
func WithMaxKeyPhrases(n int) Option {
	return func(a *Analyzer) {
		a.maxKeyPhrases = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer creates an Analyzer. Out-of-range settings fall back to the
// defaults, and an overlap that is not smaller than the chunk size is
// reduced to a fifth of it.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		chunkSize:     DefaultChunkSize,
		chunkOverlap:  DefaultChunkOverlap,
		readingSpeed:  DefaultReadingSpeedWPM,
		maxKeyPhrases: DefaultMaxKeyPhrases,
		maxTopics:     DefaultMaxTopics,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.chunkSize <= 0 {
		a.chunkSize = DefaultChunkSize
	}
	if a.chunkOverlap < 0 || a.chunkOverlap >= a.chunkSize {
		a.chunkOverlap = a.chunkSize / 5
	}
	if a.readingSpeed <= 0 {
		a.readingSpeed = DefaultReadingSpeedWPM
	}
	if a.maxKeyPhrases < 0 {
		a.maxKeyPhrases = DefaultMaxKeyPhrases
	}
	a.logger = a.logger.With("component", "analyzer")
	return a
}

// Analyze produces the analysis of raw text. sourceURL, when known, informs
// content type classification. Analyze never fails: malformed or empty input
// yields a degraded result (poor quality, empty phrase lists).
func (a *Analyzer) Analyze(raw, sourceURL string) *core.AnalysisResult {
	cleaned := clean(raw)
	if cleaned == "" && strings.TrimSpace(raw) != "" {
		// Everything looked like noise; keep the text rather than lose it.
		cleaned = strings.Join(strings.Fields(raw), " ")
	}

	sentences := splitSentences(cleaned)
	structure := analyzeStructure(raw, cleaned, sentences)
	stats := computeStats(cleaned, sentences)
	quality, qualityScore := assessQuality(stats, structure)

	result := &core.AnalysisResult{
		CleanedText:        cleaned,
		Chunks:             chunkText(cleaned, sentences, a.chunkSize, a.chunkOverlap),
		Language:           detectLanguage(cleaned),
		ContentType:        classifyContent(cleaned, sourceURL, structure, stats.wordCount, stats.paragraphCount),
		Quality:            quality,
		QualityScore:       qualityScore,
		WordCount:          stats.wordCount,
		SentenceCount:      stats.sentenceCount,
		ParagraphCount:     stats.paragraphCount,
		ReadingTimeMinutes: readingTime(stats.wordCount, a.readingSpeed),
		ComplexityScore:    complexityScore(stats),
		KeyPhrases:         extractKeyPhrases(cleaned, a.maxKeyPhrases),
		Topics:             extractTopics(cleaned, a.maxTopics),
		ExtractiveSummary:  extractiveSummary(cleaned, sentences),
		Structure:          structure,
	}
	if result.Chunks == nil {
		result.Chunks = []core.Chunk{}
	}

	a.logger.Debug("analyzed text",
		"rawLength", len(raw),
		"cleanedLength", len(cleaned),
		"chunks", len(result.Chunks),
		"words", result.WordCount,
		"language", result.Language,
		"contentType", result.ContentType,
		"quality", result.Quality)
	return result
}
