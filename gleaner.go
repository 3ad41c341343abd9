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

// Package gleaner wires configured storage, AI services and processing
// components into a ready-to-use Engine.
package gleaner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/ollama"
	"github.com/poiesic/gleaner/ai/openai"
	"github.com/poiesic/gleaner/analysis"
	"github.com/poiesic/gleaner/config"
	"github.com/poiesic/gleaner/embedding"
	"github.com/poiesic/gleaner/fetch"
	"github.com/poiesic/gleaner/ingestion"
	"github.com/poiesic/gleaner/insight"
	"github.com/poiesic/gleaner/reembed"
	"github.com/poiesic/gleaner/search"
	"github.com/poiesic/gleaner/storage"
	"github.com/poiesic/gleaner/storage/badger"
	"github.com/poiesic/gleaner/storage/postgres"
)

// ErrInvalidConfig is returned by Open when the configuration fails
// validation. The wrapped error lists every invalid field.
var ErrInvalidConfig = errors.New("invalid configuration")

// Engine owns the storage backend and AI provider and builds the
// components that use them.
type Engine struct {
	config      *config.Config
	closer      io.Closer
	tasks       storage.TaskRepository
	documents   storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	provider    ai.AIProvider
	fetcher     *fetch.Fetcher
	analyzer    *analysis.Analyzer
	extractor   *insight.Extractor
	generator   *embedding.Generator
	logger      *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider   ai.AIProvider
	httpClient *http.Client
	logger     *slog.Logger
}

// WithProvider uses provider instead of building one from the AI
// configuration. The Engine takes ownership and closes it.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithHTTPClient sets the client the fetcher uses for remote sources.
func WithHTTPClient(client *http.Client) EngineOption {
	return func(o *engineOptions) {
		o.httpClient = client
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open validates cfg, opens the configured storage and AI provider and
// builds the processing components.
func Open(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(joined...))
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	e := &Engine{config: cfg, logger: options.logger}
	if err := e.openStorage(ctx); err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = newProvider(cfg.AIConfig())
		if err != nil {
			e.closer.Close()
			return nil, err
		}
	}
	e.provider = provider

	if err := e.buildComponents(options.httpClient); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) openStorage(ctx context.Context) error {
	switch e.config.Storage.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, e.config.Storage.DatabaseURL, e.config.AI.EmbeddingDimensions,
			postgres.WithLogger(e.logger))
		if err != nil {
			return err
		}
		e.closer = store
		e.tasks, e.documents, e.checkpoints = store, store, store
	default:
		backend, err := badger.OpenBackend(e.config.Storage.Path, e.config.Storage.InMemory)
		if err != nil {
			return err
		}
		e.closer = backend
		e.tasks = badger.NewTaskRepository(backend)
		e.documents = badger.NewDocumentRepository(backend)
		e.checkpoints = badger.NewCheckpointRepository(backend)
	}
	return nil
}

func newProvider(cfg *ai.Config) (ai.AIProvider, error) {
	switch cfg.Provider {
	case ai.ProviderOllama:
		return ollama.NewProvider(cfg)
	default:
		return openai.NewProvider(cfg)
	}
}

func (e *Engine) buildComponents(client *http.Client) error {
	cfg := e.config

	fetchOpts := []fetch.Option{
		fetch.WithMinTextLength(cfg.Fetch.MinTextLength),
		fetch.WithMethodTimeout(cfg.Fetch.Timeout),
		fetch.WithRateLimit(cfg.Fetch.RateLimit),
		fetch.WithLogger(e.logger),
	}
	if cfg.Fetch.UserAgent != "" {
		fetchOpts = append(fetchOpts, fetch.WithUserAgent(cfg.Fetch.UserAgent))
	}
	if cfg.Fetch.RenderEndpoint != "" {
		fetchOpts = append(fetchOpts, fetch.WithRenderEndpoint(cfg.Fetch.RenderEndpoint))
	}
	if client != nil {
		fetchOpts = append(fetchOpts, fetch.WithHTTPClient(client))
	}
	e.fetcher = fetch.NewFetcher(fetchOpts...)

	e.analyzer = analysis.NewAnalyzer(
		analysis.WithChunkSize(cfg.Analysis.ChunkSize),
		analysis.WithChunkOverlap(cfg.Analysis.ChunkOverlap),
		analysis.WithReadingSpeed(cfg.Analysis.ReadingSpeed),
		analysis.WithMaxKeyPhrases(cfg.Analysis.MaxKeyPhrases),
		analysis.WithLogger(e.logger),
	)

	var err error
	e.extractor, err = insight.NewExtractor(e.provider.LanguageModel(), insight.WithLogger(e.logger))
	if err != nil {
		return err
	}

	e.generator, err = embedding.NewGenerator(e.provider.Embedder(), cfg.AI.EmbeddingDimensions,
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithConcurrency(cfg.Embedding.Concurrency),
		embedding.WithLogger(e.logger),
	)
	return err
}

// Close releases the AI provider and then the storage backend.
func (e *Engine) Close() error {
	// Close AI provider first
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}

	if err := e.closer.Close(); err != nil {
		e.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}

// Config returns the configuration the Engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.config
}

func (e *Engine) TaskRepository() storage.TaskRepository {
	return e.tasks
}

func (e *Engine) DocumentRepository() storage.DocumentRepository {
	return e.documents
}

func (e *Engine) CheckpointRepository() storage.CheckpointRepository {
	return e.checkpoints
}

// NewPipeline builds a processing pipeline using the configured pool size,
// retry policy and stage timeouts. opts are applied after those.
func (e *Engine) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	base := []ingestion.Option{
		ingestion.WithPoolSize(e.config.Pipeline.MaxConcurrency),
		ingestion.WithRetryPolicy(e.config.RetryPolicy()),
		ingestion.WithLogger(e.logger),
	}
	for stage, timeout := range e.config.StageTimeouts() {
		base = append(base, ingestion.WithStageTimeout(stage, timeout))
	}
	return ingestion.NewPipeline(e.tasks, e.documents, e.fetcher, e.analyzer, e.extractor, e.generator,
		append(base, opts...)...)
}

func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(e.documents, e.provider, append([]search.Option{search.WithLogger(e.logger)}, opts...)...)
}

// NewReembedder builds a reembedder that checkpoints into the Engine's
// storage. A nil reembedConfig uses reembed.DefaultConfig with the
// configured embedding dimensions.
func (e *Engine) NewReembedder(reembedConfig *reembed.Config, progress io.Writer, opts ...reembed.Option) (*reembed.Reembedder, error) {
	if reembedConfig == nil {
		reembedConfig = reembed.DefaultConfig()
	}
	if reembedConfig.Dimensions == 0 {
		reembedConfig.Dimensions = e.config.AI.EmbeddingDimensions
	}
	base := []reembed.Option{
		reembed.WithCheckpoints(e.checkpoints),
		reembed.WithLogger(e.logger),
	}
	return reembed.NewReembedder(e.documents, e.provider.Embedder(), reembedConfig, progress, append(base, opts...)...)
}
