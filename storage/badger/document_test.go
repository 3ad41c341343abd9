package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

func testDocument(owner, url string, tags ...string) *core.Document {
	source := core.URLSource(url)
	fp := core.Fingerprint(owner, source)
	return &core.Document{
		Fingerprint: fp,
		Owner:       owner,
		Title:       "Title for " + url,
		Source:      source,
		SourceURL:   url,
		Tags:        tags,
	}
}

func testChunks(n int, dims int, seed float32) ([]core.Chunk, [][]float32) {
	chunks := make([]core.Chunk, n)
	vectors := make([][]float32, n)
	for i := range n {
		chunks[i] = core.Chunk{Index: i, Text: fmt.Sprintf("chunk %d text", i)}
		v := make([]float32, dims)
		v[i%dims] = 1
		v[(i+1)%dims] = seed
		vectors[i] = v
	}
	return chunks, vectors
}

func TestUpsertDocument(t *testing.T) {
	_, docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := testDocument("alice", "https://example.com/a", "Go", "testing")
	chunks, vectors := testChunks(3, 4, 0.5)

	id, err := docs.UpsertDocument(ctx, doc, chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, doc.Fingerprint, id)
	assert.Equal(t, id, doc.ID)

	stored, err := docs.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, stored.Title)
	assert.Equal(t, 3, stored.ChunkCount)
	assert.False(t, stored.CreatedAt.IsZero())

	storedChunks, err := docs.GetChunks(ctx, id)
	require.NoError(t, err)
	require.Len(t, storedChunks, 3)
	for i, chunk := range storedChunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, id, chunk.DocumentID)
		assert.Equal(t, vectors[i], chunk.Vector)
	}

	// Caller's chunks are not modified
	assert.Empty(t, chunks[0].DocumentID)
	assert.Nil(t, chunks[0].Vector)
}

func TestUpsertDocument_IdempotentReplace(t *testing.T) {
	_, docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	first := testDocument("alice", "https://example.com/a", "old")
	chunks, vectors := testChunks(4, 4, 0.1)
	id1, err := docs.UpsertDocument(ctx, first, chunks, vectors)
	require.NoError(t, err)
	created := first.CreatedAt

	second := testDocument("alice", "https://example.com/a", "new")
	second.Title = "Revised"
	chunks, vectors = testChunks(2, 4, 0.2)
	id2, err := docs.UpsertDocument(ctx, second, chunks, vectors)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	stored, err := docs.GetDocument(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "Revised", stored.Title)
	assert.True(t, stored.CreatedAt.Equal(created))

	storedChunks, err := docs.GetChunks(ctx, id1)
	require.NoError(t, err)
	assert.Len(t, storedChunks, 2, "chunks from the first version must be removed")

	count, err := docs.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	old, err := docs.GetDocumentsByTag(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, old)

	tagged, err := docs.GetDocumentsByTag(ctx, "NEW")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, id1, tagged[0].ID)
}

func TestUpsertDocument_ConcurrentSameSource(t *testing.T) {
	_, docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunks, vectors := testChunks(3, 4, float32(i))
			// Conflicting transactions are retried like the pipeline does
			for {
				id, err := docs.UpsertDocument(ctx, testDocument("alice", "https://example.com/same"), chunks, vectors)
				if err == nil {
					ids[i] = id
					return
				}
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	count, err := docs.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUpsertDocument_Invalid(t *testing.T) {
	_, docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := testDocument("alice", "https://example.com/a")
	chunks, vectors := testChunks(3, 4, 0)

	_, err = docs.UpsertDocument(ctx, doc, chunks, vectors[:2])
	assert.ErrorIs(t, err, core.ErrChunkEmbeddingMismatch)

	_, err = docs.UpsertDocument(ctx, &core.Document{}, chunks, vectors)
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	ragged := append([][]float32{{1, 2}}, vectors[1:]...)
	_, err = docs.UpsertDocument(ctx, doc, chunks, ragged)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	// Nothing was written
	_, err = docs.GetDocument(ctx, doc.Fingerprint)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	count, err := docs.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestFindSimilarChunks(t *testing.T) {
	_, docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	docA := testDocument("alice", "https://example.com/a")
	_, err = docs.UpsertDocument(ctx, docA,
		[]core.Chunk{{Index: 0, Text: "alpha"}, {Index: 1, Text: "beta"}},
		[][]float32{{1, 0, 0}, {0, 1, 0}})
	require.NoError(t, err)

	docB := testDocument("alice", "https://example.com/b")
	_, err = docs.UpsertDocument(ctx, docB,
		[]core.Chunk{{Index: 0, Text: "gamma"}},
		[][]float32{{0.9, 0.1, 0}})
	require.NoError(t, err)

	t.Run("ranked with documents", func(t *testing.T) {
		results, err := docs.FindSimilarChunks(ctx, []float32{1, 0, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "alpha", results[0].Chunk.Text)
		assert.Equal(t, "gamma", results[1].Chunk.Text)
		assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
		require.NotNil(t, results[0].Document)
		assert.Equal(t, docA.Fingerprint, results[0].Document.ID)
		assert.Equal(t, docB.Fingerprint, results[1].Document.ID)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := docs.FindSimilarChunks(ctx, []float32{1, 0, 0}, -1, 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := docs.FindSimilarChunks(ctx, nil, 0, 10)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestListChunksAndUpdateVectors(t *testing.T) {
	_, docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	for _, url := range []string{"https://example.com/a", "https://example.com/b"} {
		chunks, vectors := testChunks(3, 4, 0)
		_, err := docs.UpsertDocument(ctx, testDocument("alice", url), chunks, vectors)
		require.NoError(t, err)
	}

	var all []core.Chunk
	cursor := storage.ChunkCursor{}
	for {
		page, err := docs.ListChunks(ctx, cursor, 4)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		last := page[len(page)-1]
		cursor = storage.ChunkCursor{DocumentID: last.DocumentID, Index: last.Index}
	}
	require.Len(t, all, 6)
	seen := make(map[string]bool)
	for _, chunk := range all {
		key := fmt.Sprintf("%s/%d", chunk.DocumentID, chunk.Index)
		assert.False(t, seen[key], "chunk %s listed twice", key)
		seen[key] = true
	}

	updated := all[0]
	updated.Vector = []float32{9, 9, 9, 9}
	require.NoError(t, docs.UpdateChunkVectors(ctx, []core.Chunk{updated}))

	chunks, err := docs.GetChunks(ctx, updated.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9, 9, 9}, chunks[updated.Index].Vector)
	assert.Equal(t, updated.Text, chunks[updated.Index].Text)

	err = docs.UpdateChunkVectors(ctx, []core.Chunk{{DocumentID: "missing", Index: 0, Vector: []float32{1}}})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = docs.ListChunks(ctx, storage.ChunkCursor{}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}
