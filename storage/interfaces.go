package storage

import (
	"context"

	"github.com/poiesic/gleaner/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close closes the storage backend and releases resources.
	Close() error
}

// TaskRepository persists processing task status records.
// The pipeline is the only writer of a given task; readers only read.
type TaskRepository interface {
	Repository

	// CreateTask stores a new task.
	// Returns ErrDuplicateKey if a task with the same ID exists.
	CreateTask(ctx context.Context, task *core.ProcessingTask) error

	// UpdateTask applies a partial update and returns the updated record.
	// UpdatedAt is set automatically.
	// Returns ErrNotFound if the task doesn't exist.
	UpdateTask(ctx context.Context, id string, update core.TaskUpdate) (*core.ProcessingTask, error)

	// GetTask retrieves a task by ID.
	// Returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, id string) (*core.ProcessingTask, error)
}

// ChunkCursor marks a position in the (DocumentID, Index) ordering of
// stored chunks. The zero cursor is before the first chunk.
type ChunkCursor struct {
	DocumentID string
	Index      int
}

// DocumentRepository persists documents together with their chunks and
// chunk embeddings.
type DocumentRepository interface {
	Repository

	// UpsertDocument atomically writes doc, its chunks and one embedding per
	// chunk, keyed by doc.Fingerprint. A second upsert for the same
	// fingerprint replaces the first and returns the same document ID.
	// Nothing is visible to readers unless the whole write succeeds.
	UpsertDocument(ctx context.Context, doc *core.Document, chunks []core.Chunk, embeddings [][]float32) (string, error)

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// GetChunks returns a document's chunks ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]core.Chunk, error)

	// GetDocumentsByTag returns documents carrying the tag.
	GetDocumentsByTag(ctx context.Context, tag string) ([]*core.Document, error)

	// FindSimilarChunks finds chunks whose vectors score at least
	// minSimilarity against vector, best first, up to limit results.
	// Each result carries its parent document.
	FindSimilarChunks(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error)

	// CountChunks returns the number of stored chunks.
	CountChunks(ctx context.Context) (int, error)

	// ListChunks returns up to limit chunks strictly after cursor in
	// (DocumentID, Index) order.
	ListChunks(ctx context.Context, after ChunkCursor, limit int) ([]core.Chunk, error)

	// UpdateChunkVectors replaces the vectors of existing chunks, matched by
	// DocumentID and Index.
	// Returns ErrNotFound if any chunk doesn't exist.
	UpdateChunkVectors(ctx context.Context, chunks []core.Chunk) error
}

// CheckpointRepository persists resumable positions of long-running
// maintenance jobs.
type CheckpointRepository interface {
	// SaveCheckpoint stores the checkpoint, replacing any previous one with
	// the same name.
	SaveCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// LoadCheckpoint returns the named checkpoint, or nil if none exists.
	LoadCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error)

	// DeleteCheckpoint removes the named checkpoint. Missing checkpoints are
	// not an error.
	DeleteCheckpoint(ctx context.Context, name string) error
}
