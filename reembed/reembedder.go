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

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// DefaultCheckpointName keys the checkpoint of a reembedding run.
const DefaultCheckpointName = "reembed"

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each embedding call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Dimensions is the vector length the store expects. Zero skips the check.
	Dimensions int

	// CheckpointName keys the saved position when a checkpoint repository
	// is configured.
	CheckpointName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		CheckpointName: DefaultCheckpointName,
	}
}

// Reembedder orchestrates the reembedding of all stored chunks.
type Reembedder struct {
	repo        storage.DocumentRepository
	checkpoints storage.CheckpointRepository
	config      *Config
	progress    io.Writer
	reporter    Reporter
	logger      *slog.Logger
	processor   *BatchProcessor
	iterator    *ChunkIterator
	now         func() time.Time
}

// Option configures a Reembedder.
type Option func(*Reembedder)

// WithCheckpoints saves the position after every batch so an interrupted
// run resumes where it stopped. The checkpoint is removed on completion.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(r *Reembedder) {
		r.checkpoints = repo
	}
}

// WithReporter replaces the default line-based progress output.
func WithReporter(reporter Reporter) Option {
	return func(r *Reembedder) {
		if reporter != nil {
			r.reporter = reporter
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReembedder creates a new reembedder.
// progress: where to write summary and progress output (typically os.Stderr)
func NewReembedder(repo storage.DocumentRepository, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckpointName == "" {
		config.CheckpointName = DefaultCheckpointName
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		reporter:  NewProgressTracker(progress, config.ReportInterval),
		logger:    slog.Default(),
		processor: NewBatchProcessor(repo, embedder, config.Dimensions, config.MaxRetries, config.RetryDelay),
		iterator:  NewChunkIterator(repo, config.BatchSize),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "reembed")
	return r, nil
}

// Run executes the reembedding operation.
// All stored chunks are reembedded with the configured embedder. With a
// checkpoint repository configured, a previous interrupted run is resumed.
func (r *Reembedder) Run(ctx context.Context) error {
	total, err := r.repo.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No chunks found in database (0 chunks)\n")
		return nil
	}

	cursor, processed, err := r.resume(ctx)
	if err != nil {
		return err
	}
	if processed > 0 {
		fmt.Fprintf(r.progress, "Resuming reembedding after %d of %d chunks (batch size: %d)\n",
			processed, total, r.config.BatchSize)
	} else {
		fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
			total, r.config.BatchSize)
	}

	started := r.now()
	resumed := processed
	r.reporter.Start(total, processed)

	err = r.iterator.ForEach(ctx, cursor, func(chunks []core.Chunk) error {
		if err := r.processor.Process(ctx, chunks); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(chunks)
		last := chunks[len(chunks)-1]
		if err := r.saveCheckpoint(ctx, last, processed); err != nil {
			return err
		}
		r.reporter.Update(processed)
		return nil
	})
	if err != nil {
		r.logger.Error("reembedding stopped", "processed", processed, "total", total, "err", err)
		return err
	}

	r.reporter.Finish()
	if r.checkpoints != nil {
		if err := r.checkpoints.DeleteCheckpoint(ctx, r.config.CheckpointName); err != nil {
			r.logger.Warn("failed to delete checkpoint", "name", r.config.CheckpointName, "err", err)
		}
	}

	elapsed := r.now().Sub(started)
	done := processed - resumed
	rate := 0.0
	if elapsed > 0 {
		rate = float64(done) / elapsed.Seconds()
	}
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		done, elapsed.Round(time.Second), rate)
	r.logger.Info("reembedding complete", "chunks", done, "duration", elapsed)

	return nil
}

// resume returns the cursor and count saved by an interrupted run.
func (r *Reembedder) resume(ctx context.Context) (storage.ChunkCursor, int, error) {
	if r.checkpoints == nil {
		return storage.ChunkCursor{}, 0, nil
	}
	checkpoint, err := r.checkpoints.LoadCheckpoint(ctx, r.config.CheckpointName)
	if err != nil {
		return storage.ChunkCursor{}, 0, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if checkpoint == nil {
		return storage.ChunkCursor{}, 0, nil
	}
	r.logger.Info("resuming from checkpoint",
		"document", checkpoint.DocumentID,
		"chunk", checkpoint.ChunkIndex,
		"processed", checkpoint.Processed)
	return storage.ChunkCursor{DocumentID: checkpoint.DocumentID, Index: checkpoint.ChunkIndex}, checkpoint.Processed, nil
}

func (r *Reembedder) saveCheckpoint(ctx context.Context, last core.Chunk, processed int) error {
	if r.checkpoints == nil {
		return nil
	}
	err := r.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Name:       r.config.CheckpointName,
		DocumentID: last.DocumentID,
		ChunkIndex: last.Index,
		Processed:  processed,
		UpdatedAt:  r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
