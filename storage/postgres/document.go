package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/storage"
)

// UpsertDocument writes the document and its chunks in one transaction.
// The document row is upserted on its fingerprint and the previous chunks
// are replaced wholesale.
func (s *Store) UpsertDocument(ctx context.Context, doc *core.Document, chunks []core.Chunk, embeddings [][]float32) (string, error) {
	if err := core.ValidateDocument(doc, chunks, embeddings); err != nil {
		return "", err
	}
	if err := storage.CheckVectorWidth(embeddings, s.dimensions); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	stored := *doc
	stored.ID = doc.Fingerprint
	stored.ChunkCount = len(chunks)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	tags := make([]string, 0, len(stored.Tags))
	for _, tag := range stored.Tags {
		if tag = normalizeTag(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var createdAt time.Time
		err := tx.QueryRow(ctx,
			`SELECT created_at FROM gleaner_documents WHERE fingerprint = $1 FOR UPDATE`,
			stored.Fingerprint).Scan(&createdAt)
		switch {
		case err == nil:
			stored.CreatedAt = createdAt
		case !errors.Is(err, pgx.ErrNoRows):
			return err
		}

		data, err := storage.MarshalDocument(&stored)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO gleaner_documents (id, fingerprint, owner, tags, data, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (fingerprint) DO UPDATE SET
				tags = EXCLUDED.tags,
				data = EXCLUDED.data,
				updated_at = EXCLUDED.updated_at`,
			stored.ID, stored.Fingerprint, stored.Owner, tags, data, stored.CreatedAt, stored.UpdatedAt)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM gleaner_chunks WHERE document_id = $1`, stored.ID); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i := range chunks {
			chunk := chunks[i]
			chunk.DocumentID = stored.ID
			chunk.Vector = nil
			data, err := storage.MarshalChunk(&chunk)
			if err != nil {
				return err
			}
			batch.Queue(
				`INSERT INTO gleaner_chunks (document_id, chunk_index, data, embedding) VALUES ($1, $2, $3, $4)`,
				stored.ID, chunk.Index, data, pgvector.NewVector(embeddings[i]))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return "", err
	}

	doc.ID = stored.ID
	doc.ChunkCount = stored.ChunkCount
	doc.CreatedAt = stored.CreatedAt
	doc.UpdatedAt = stored.UpdatedAt
	return stored.ID, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM gleaner_documents WHERE id = $1`, id).Scan(&data)
	if err != nil {
		return nil, translate(err)
	}
	return storage.UnmarshalDocument(data)
}

// GetChunks returns a document's chunks ordered by index.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]core.Chunk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data, embedding FROM gleaner_chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// GetDocumentsByTag returns documents carrying the tag, ordered by ID.
func (s *Store) GetDocumentsByTag(ctx context.Context, tag string) ([]*core.Document, error) {
	tag = normalizeTag(tag)
	if tag == "" {
		return nil, storage.ErrInvalidQuery
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM gleaner_documents WHERE tags @> ARRAY[$1]::text[] ORDER BY id`, tag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*core.Document
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		doc, err := storage.UnmarshalDocument(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// FindSimilarChunks ranks chunks by cosine distance in the database.
func (s *Store) FindSimilarChunks(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.SearchResult, error) {
	if len(vector) == 0 || limit < 1 {
		return nil, storage.ErrInvalidQuery
	}

	rows, err := s.pool.Query(ctx,
		`SELECT c.data, d.data, 1 - (c.embedding <=> $1) AS score
		 FROM gleaner_chunks c
		 JOIN gleaner_documents d ON d.id = c.document_id
		 WHERE c.embedding IS NOT NULL AND 1 - (c.embedding <=> $1) >= $2
		 ORDER BY c.embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vector), minSimilarity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make(map[string]*core.Document)
	var results []*core.SearchResult
	for rows.Next() {
		var chunkData, docData []byte
		var score float64
		if err := rows.Scan(&chunkData, &docData, &score); err != nil {
			return nil, err
		}
		chunk, err := storage.UnmarshalChunk(chunkData)
		if err != nil {
			return nil, err
		}
		doc, ok := docs[chunk.DocumentID]
		if !ok {
			if doc, err = storage.UnmarshalDocument(docData); err != nil {
				return nil, err
			}
			docs[chunk.DocumentID] = doc
		}
		results = append(results, &core.SearchResult{Document: doc, Chunk: chunk, Score: float32(score)})
	}
	return results, rows.Err()
}

// CountChunks returns the number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM gleaner_chunks`).Scan(&count)
	return count, err
}

// ListChunks returns up to limit chunks strictly after the cursor.
func (s *Store) ListChunks(ctx context.Context, after storage.ChunkCursor, limit int) ([]core.Chunk, error) {
	if limit < 1 {
		return nil, storage.ErrInvalidQuery
	}
	index := after.Index
	if after.DocumentID == "" {
		index = -1
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data, embedding FROM gleaner_chunks
		 WHERE (document_id, chunk_index) > ($1, $2)
		 ORDER BY document_id, chunk_index
		 LIMIT $3`,
		after.DocumentID, index, limit)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// UpdateChunkVectors replaces the vectors of existing chunks in one
// transaction.
func (s *Store) UpdateChunkVectors(ctx context.Context, chunks []core.Chunk) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		for _, chunk := range chunks {
			tag, err := tx.Exec(ctx,
				`UPDATE gleaner_chunks SET embedding = $3 WHERE document_id = $1 AND chunk_index = $2`,
				chunk.DocumentID, chunk.Index, pgvector.NewVector(chunk.Vector))
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("chunk %s/%d: %w", chunk.DocumentID, chunk.Index, storage.ErrNotFound)
			}
		}
		return nil
	})
}

func scanChunks(rows pgx.Rows) ([]core.Chunk, error) {
	defer rows.Close()

	var chunks []core.Chunk
	for rows.Next() {
		var data []byte
		var embedding pgvector.Vector
		if err := rows.Scan(&data, &embedding); err != nil {
			return nil, err
		}
		chunk, err := storage.UnmarshalChunk(data)
		if err != nil {
			return nil, err
		}
		chunk.Vector = embedding.Slice()
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
