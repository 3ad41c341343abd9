package badger

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// Close is a no-op; the backend is closed by its owner.
func (r *DocumentRepository) Close() error {
	return nil
}

// UpsertDocument writes the document, its chunks with their embeddings and
// its tag index entries in one transaction. Chunks and tags left over from a
// previous version of the document are removed in the same transaction.
func (r *DocumentRepository) UpsertDocument(ctx context.Context, doc *core.Document, chunks []core.Chunk, embeddings [][]float32) (string, error) {
	if err := core.ValidateDocument(doc, chunks, embeddings); err != nil {
		return "", err
	}
	if err := storage.CheckVectorWidth(embeddings, 0); err != nil {
		return "", err
	}

	id := doc.Fingerprint
	now := time.Now().UTC()
	stored := *doc
	stored.ID = id
	stored.ChunkCount = len(chunks)
	stored.CreatedAt = now
	stored.UpdatedAt = now

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		key := makeDocumentKey(id)
		old, err := readValue(tx, key, storage.UnmarshalDocument)
		if err != nil {
			return err
		}
		if old != nil {
			stored.CreatedAt = old.CreatedAt
			if err := r.deleteChunks(tx, id); err != nil {
				return err
			}
			for _, tag := range old.Tags {
				if err := tx.Delete(makeTagKey(normalizeTag(tag), id)); err != nil {
					return err
				}
			}
		}

		if err := writeValue(tx, key, &stored, storage.MarshalDocument); err != nil {
			return err
		}
		for i := range chunks {
			chunk := chunks[i]
			chunk.DocumentID = id
			chunk.Vector = embeddings[i]
			if err := writeValue(tx, makeChunkKey(id, chunk.Index), &chunk, storage.MarshalChunk); err != nil {
				return err
			}
		}
		for _, tag := range stored.Tags {
			if tag = normalizeTag(tag); tag == "" {
				continue
			}
			if err := tx.Set(makeTagKey(tag, id), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	doc.ID = id
	doc.ChunkCount = stored.ChunkCount
	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = stored.UpdatedAt
	return id, nil
}

// deleteChunks removes every chunk of a document.
func (r *DocumentRepository) deleteChunks(tx *badger.Txn, documentID string) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = makeChunkPrefix(documentID)

	var keys [][]byte
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var doc *core.Document
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		doc, err = readValue(tx, makeDocumentKey(id), storage.UnmarshalDocument)
		return err
	})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	return doc, nil
}

// GetChunks returns a document's chunks ordered by index.
func (r *DocumentRepository) GetChunks(ctx context.Context, documentID string) ([]core.Chunk, error) {
	var chunks []core.Chunk
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(documentID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunk, err := readChunk(iter.Item())
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
		}
		return nil
	})
	return chunks, err
}

// GetDocumentsByTag returns documents carrying the tag, ordered by ID.
func (r *DocumentRepository) GetDocumentsByTag(ctx context.Context, tag string) ([]*core.Document, error) {
	tag = normalizeTag(tag)
	if tag == "" {
		return nil, storage.ErrInvalidQuery
	}

	var docs []*core.Document
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		prefix := makeTagPrefix(tag)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			id := string(iter.Item().Key()[len(prefix):])
			doc, err := readValue(tx, makeDocumentKey(id), storage.UnmarshalDocument)
			if err != nil {
				return err
			}
			// Stale index entries are skipped
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		return nil
	})
	return docs, err
}

// FindSimilarChunks scans every stored chunk and scores it by cosine
// similarity against vector.
func (r *DocumentRepository) FindSimilarChunks(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if len(vector) == 0 || limit < 1 {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.SearchResult
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			chunk, err := readChunk(iter.Item())
			if err != nil {
				return err
			}
			// Skip chunks without embeddings
			if len(chunk.Vector) == 0 {
				continue
			}

			similarity := cosineSimilarity(vector, chunk.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SearchResult{Chunk: chunk, Score: similarity})
			}
		}

		slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
		if len(results) > limit {
			results = results[:limit]
		}

		// Attach parent documents, reading each once
		docs := make(map[string]*core.Document)
		for _, result := range results {
			id := result.Chunk.DocumentID
			if _, ok := docs[id]; !ok {
				doc, err := readValue(tx, makeDocumentKey(id), storage.UnmarshalDocument)
				if err != nil {
					return err
				}
				docs[id] = doc
			}
			result.Document = docs[id]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CountChunks returns the number of stored chunks.
func (r *DocumentRepository) CountChunks(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// ListChunks returns up to limit chunks strictly after the cursor.
func (r *DocumentRepository) ListChunks(ctx context.Context, after storage.ChunkCursor, limit int) ([]core.Chunk, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidQuery
	}

	var chunks []core.Chunk
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var start []byte
		if after.DocumentID != "" {
			start = makeChunkKey(after.DocumentID, after.Index)
			iter.Seek(start)
		} else {
			iter.Rewind()
		}

		for ; iter.Valid() && len(chunks) < limit; iter.Next() {
			if start != nil && bytes.Equal(iter.Item().Key(), start) {
				continue
			}
			chunk, err := readChunk(iter.Item())
			if err != nil {
				return err
			}
			chunks = append(chunks, *chunk)
		}
		return nil
	})
	return chunks, err
}

// UpdateChunkVectors replaces the vectors of existing chunks in one
// transaction.
func (r *DocumentRepository) UpdateChunkVectors(ctx context.Context, chunks []core.Chunk) error {
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, update := range chunks {
			key := makeChunkKey(update.DocumentID, update.Index)
			chunk, err := readValue(tx, key, storage.UnmarshalChunk)
			if err != nil {
				return err
			}
			if chunk == nil {
				return fmt.Errorf("chunk %s/%d: %w", update.DocumentID, update.Index, storage.ErrNotFound)
			}
			chunk.Vector = update.Vector
			if err := writeValue(tx, key, chunk, storage.MarshalChunk); err != nil {
				return err
			}
		}
		return nil
	})
}

func readChunk(item *badger.Item) (*core.Chunk, error) {
	var chunk *core.Chunk
	err := item.Value(func(val []byte) error {
		var err error
		chunk, err = storage.UnmarshalChunk(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	if documentID, index, ok := parseChunkKey(item.Key()); ok {
		chunk.DocumentID = documentID
		chunk.Index = index
	}
	return chunk, nil
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
