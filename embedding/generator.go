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

package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
)

// Defaults for NewGenerator.
const (
	DefaultBatchSize   = 32
	DefaultConcurrency = 2
)

var (
	// ErrEmbedderRequired is returned by NewGenerator when no embedder is given.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidDimensions is returned by NewGenerator for a non-positive dimension.
	ErrInvalidDimensions = errors.New("dimensions must be positive")

	// ErrDimensionMismatch indicates a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCountMismatch indicates the provider returned a different number of
	// vectors than texts it was given.
	ErrCountMismatch = errors.New("embedding count mismatch")
)

// Generator converts ordered texts to ordered vectors of a fixed length.
type Generator struct {
	embedder    ai.Embedder
	dimensions  int
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithBatchSize sets how many texts are sent per provider call.
func WithBatchSize(n int) Option {
	return func(g *Generator) {
		g.batchSize = n
	}
}

// WithConcurrency sets how many batches may be in flight at once.
func WithConcurrency(n int) Option {
	return func(g *Generator) {
		g.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates a Generator that expects vectors of the given length.
func NewGenerator(embedder ai.Embedder, dimensions int, opts ...Option) (*Generator, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if dimensions < 1 {
		return nil, ErrInvalidDimensions
	}
	g := &Generator{
		embedder:    embedder,
		dimensions:  dimensions,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.batchSize < 1 {
		g.batchSize = DefaultBatchSize
	}
	if g.concurrency < 1 {
		g.concurrency = 1
	}
	g.logger = g.logger.With("component", "embedding")
	return g, nil
}

// Dimensions returns the expected vector length.
func (g *Generator) Dimensions() int {
	return g.dimensions
}

// Embed returns one vector per text with out[i] belonging to texts[i].
//
// Failures are reported as *core.EmbeddingError. Dimension and count
// mismatches and rejected credentials are not retryable; other provider
// failures are. Context errors are returned unwrapped.
func (g *Generator) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		eg.Go(func() error {
			return g.embedBatch(ectx, texts[start:end], out[start:end])
		})
	}

	if err := eg.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Warn("embedding failed", "texts", len(texts), "err", err)
		return nil, err
	}

	g.logger.Debug("generated embeddings", "texts", len(texts), "batchSize", g.batchSize)
	return out, nil
}

// embedBatch embeds one batch into dst, which aliases the matching window
// of the output slice.
func (g *Generator) embedBatch(ctx context.Context, batch []string, dst [][]float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	vectors, err := g.embedder.EmbedTexts(ctx, batch)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		err = ai.ClassifyError(err)
		return &core.EmbeddingError{Err: err, IsRetryable: !errors.Is(err, ai.ErrAuthentication)}
	}
	if len(vectors) != len(batch) {
		return &core.EmbeddingError{
			Err:         fmt.Errorf("%w: sent %d texts, received %d vectors", ErrCountMismatch, len(batch), len(vectors)),
			IsRetryable: false,
		}
	}
	for i, v := range vectors {
		if len(v) != g.dimensions {
			return &core.EmbeddingError{
				Err:         fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, g.dimensions, len(v)),
				IsRetryable: false,
			}
		}
		dst[i] = v
	}
	return nil
}
