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

// Package storage provides the storage abstraction layer for gleaner.
//
// This package defines repository interfaces that decouple the pipeline from
// the storage implementation. Two backends exist:
//
//	storage/badger    embedded key-value store, used by the CLI and tests
//	storage/postgres  PostgreSQL with the pgvector extension
//
// # Repositories
//
//   - TaskRepository: processing task status records
//   - DocumentRepository: documents, chunks and chunk embeddings
//   - CheckpointRepository: resumable positions of maintenance jobs
//
// # Atomic upserts
//
// DocumentRepository.UpsertDocument writes a document and all of its chunks
// in a single transaction keyed by the source fingerprint. Two tasks for the
// same source converge on one document, and a failed write leaves nothing
// behind.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	tasks := badger.NewTaskRepository(backend)
//	docs := badger.NewDocumentRepository(backend)
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
