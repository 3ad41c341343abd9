package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/ai/mock"
	"github.com/poiesic/gleaner/core"
)

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("chunk number %d", i)
	}
	return out
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(nil, 8)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewGenerator(mock.NewMockEmbedder(), 0)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	g, err := NewGenerator(mock.NewMockEmbedder(), 8, WithBatchSize(-1), WithConcurrency(0))
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, g.batchSize)
	assert.Equal(t, 1, g.concurrency)
	assert.Equal(t, 8, g.Dimensions())
}

func TestEmbed_PreservesOrder(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 16

	g, err := NewGenerator(embedder, 16, WithBatchSize(3), WithConcurrency(4))
	require.NoError(t, err)

	in := texts(10)
	vectors, err := g.Embed(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, vectors, len(in))

	for i, text := range in {
		assert.Equal(t, mock.GenerateDeterministicVector(text, 16), vectors[i], "vector %d out of order", i)
	}
	// 10 texts in batches of 3
	assert.Equal(t, 4, embedder.CallCount())
}

func TestEmbed_Empty(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	g, err := NewGenerator(embedder, mock.DefaultDimensions)
	require.NoError(t, err)

	vectors, err := g.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 4

	g, err := NewGenerator(embedder, 8)
	require.NoError(t, err)

	_, err = g.Embed(context.Background(), texts(2))
	require.Error(t, err)

	var embErr *core.EmbeddingError
	require.True(t, errors.As(err, &embErr))
	assert.False(t, embErr.IsRetryable)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.False(t, core.IsRetryable(err))
}

func TestEmbed_CountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{make([]float32, 8)}, nil
	}

	g, err := NewGenerator(embedder, 8)
	require.NoError(t, err)

	_, err = g.Embed(context.Background(), texts(3))
	assert.ErrorIs(t, err, ErrCountMismatch)
	assert.False(t, core.IsRetryable(err))
}

func TestEmbed_ProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "transient", err: errors.New("connection refused"), retryable: true},
		{name: "unauthorized", err: errors.New("API returned unexpected status code: 401"), retryable: false},
		{name: "classified auth", err: ai.ErrAuthentication, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := mock.NewMockEmbedder()
			embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
				return nil, tt.err
			}
			g, err := NewGenerator(embedder, 8)
			require.NoError(t, err)

			_, err = g.Embed(context.Background(), texts(1))
			var embErr *core.EmbeddingError
			require.True(t, errors.As(err, &embErr))
			assert.Equal(t, tt.retryable, core.IsRetryable(err))
		})
	}
}

func TestEmbed_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		cancel()
		return nil, ctx.Err()
	}

	g, err := NewGenerator(embedder, 8, WithBatchSize(1), WithConcurrency(1))
	require.NoError(t, err)

	_, err = g.Embed(ctx, texts(5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, core.IsRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}
