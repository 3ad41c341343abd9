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

package core

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateSource validates a Source according to domain rules.
//
// Validation rules:
//   - Exactly one of URL and Text is set
//   - Text is not only whitespace
//   - URL parses, has an http or https scheme, and a host
func ValidateSource(source Source) error {
	hasURL := source.URL != ""
	hasText := source.Text != ""

	if hasURL && hasText {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrAmbiguousSource)
	}
	if !hasURL && !hasText {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrEmptySource)
	}

	if hasText {
		if strings.TrimSpace(source.Text) == "" {
			return fmt.Errorf("%w: %w", ErrInvalidSource, ErrEmptySource)
		}
		return nil
	}

	u, err := url.Parse(source.URL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %w", ErrInvalidSource, ErrUnsupportedScheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL has no host", ErrInvalidSource)
	}
	return nil
}

// ValidateDocument checks a Document and its chunks before storage.
//
// Validation rules:
//   - Fingerprint must be set
//   - Chunk indices are contiguous from 0
//   - Every chunk has a non-empty text
//   - len(chunks) == len(embeddings), and no embedding is empty
func ValidateDocument(doc *Document, chunks []Chunk, embeddings [][]float32) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if doc.Fingerprint == "" {
		return fmt.Errorf("%w: fingerprint is required", ErrInvalidDocument)
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("%w: %w (%d chunks, %d embeddings)",
			ErrInvalidDocument, ErrChunkEmbeddingMismatch, len(chunks), len(embeddings))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			return fmt.Errorf("%w: chunk %d has index %d", ErrInvalidDocument, i, chunk.Index)
		}
		if strings.TrimSpace(chunk.Text) == "" {
			return fmt.Errorf("%w: chunk %d is empty", ErrInvalidDocument, i)
		}
		if len(embeddings[i]) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", ErrInvalidDocument, i)
		}
	}
	return nil
}
