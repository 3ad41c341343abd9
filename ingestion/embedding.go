package ingestion

import (
	"context"

	"github.com/poiesic/gleaner/core"
)

// generateEmbeddings embeds every chunk of the analyzed text. Vectors stay
// index-aligned with chunks.
func (p *Pipeline) generateEmbeddings(ctx context.Context, run *taskRun) error {
	chunks := run.analysis.Chunks
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	p.logger.Debug("generating embeddings", "task", run.id, "chunks", len(texts))
	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return err
	}
	if len(embeddings) != len(chunks) {
		return &core.EmbeddingError{Err: core.ErrChunkEmbeddingMismatch, IsRetryable: false}
	}

	run.embeddings = embeddings
	return nil
}
