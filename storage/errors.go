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

package storage

import (
	"errors"
	"fmt"

	"github.com/poiesic/gleaner/core"
)

// Errors shared by every backend. Callers match them with errors.Is.
var (
	// ErrNotFound is returned for an unknown task, document or checkpoint.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a task ID is created twice.
	ErrDuplicateKey = errors.New("already exists")

	// ErrStorageClosed is returned by a backend after Close.
	ErrStorageClosed = errors.New("storage closed")

	// ErrInvalidQuery is returned for an empty query vector or a
	// non-positive limit.
	ErrInvalidQuery = errors.New("invalid vector query")

	// ErrSerializationFailed wraps encode and decode failures of stored records.
	ErrSerializationFailed = errors.New("record encoding failed")

	// ErrDimensionMismatch is returned when chunk vectors in one document
	// differ in width, or do not match the width the backend was opened with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// CheckVectorWidth reports whether every vector has want entries. A want of
// zero only requires the vectors to agree with each other. The returned
// error also matches core.ErrInvalidDocument.
func CheckVectorWidth(vectors [][]float32, want int) error {
	for i, v := range vectors {
		if want == 0 {
			want = len(v)
		}
		if len(v) != want {
			return fmt.Errorf("%w: %w: chunk %d has %d dimensions, want %d",
				core.ErrInvalidDocument, ErrDimensionMismatch, i, len(v), want)
		}
	}
	return nil
}
