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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain validation errors
var (
	// ErrInvalidSource indicates a Source failed validation.
	ErrInvalidSource = errors.New("invalid source")

	// ErrEmptySource indicates neither URL nor text was provided.
	ErrEmptySource = errors.New("source must have a URL or text")

	// ErrAmbiguousSource indicates both URL and text were provided.
	ErrAmbiguousSource = errors.New("source cannot have both URL and text")

	// ErrUnsupportedScheme indicates a URL with a scheme other than http or https.
	ErrUnsupportedScheme = errors.New("URL scheme must be http or https")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrChunkEmbeddingMismatch indicates chunks and embeddings are not aligned.
	ErrChunkEmbeddingMismatch = errors.New("chunk and embedding counts differ")

	// ErrCancellationRequested is the cooperative cancellation signal observed
	// at stage boundaries. It is not a failure.
	ErrCancellationRequested = errors.New("cancellation requested")
)

// retryable is implemented by pipeline errors that know whether another
// attempt could succeed.
type retryable interface {
	Retryable() bool
}

// IsRetryable reports whether err is worth another attempt.
// Context cancellation and cancellation requests are never retryable.
// Errors outside the pipeline taxonomy are treated as not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCancellationRequested) {
		return false
	}
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// FetchAttempt records one failed extraction method.
type FetchAttempt struct {
	Method string
	Err    error
}

// FetchError indicates content could not be retrieved or extracted.
type FetchError struct {
	Reason   string
	Attempts []FetchAttempt
}

func (e *FetchError) Error() string {
	if len(e.Attempts) == 0 {
		return "fetch failed: " + e.Reason
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Method, a.Err)
	}
	return fmt.Sprintf("fetch failed: %s (%s)", e.Reason, strings.Join(parts, "; "))
}

// Retryable is true: remote pages fail transiently often enough to try again.
func (e *FetchError) Retryable() bool { return true }

// AIProcessingError indicates the language model could not be reached.
type AIProcessingError struct {
	Err error
}

func (e *AIProcessingError) Error() string {
	return fmt.Sprintf("ai processing failed: %v", e.Err)
}

func (e *AIProcessingError) Unwrap() error { return e.Err }

func (e *AIProcessingError) Retryable() bool { return true }

// EmbeddingError indicates the embedding capability failed.
// Configuration-class failures (dimension mismatch, credentials) are not retryable.
type EmbeddingError struct {
	Err         error
	IsRetryable bool
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Retryable() bool { return e.IsRetryable }

// StorageError indicates a persistence failure. The storage step is always
// retried as a whole.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Retryable() bool { return true }

// StageTimeoutError indicates a stage exceeded its time budget.
// It consumes one attempt like any transient failure.
type StageTimeoutError struct {
	Stage   Stage
	Timeout time.Duration
}

func (e *StageTimeoutError) Error() string {
	return fmt.Sprintf("stage %s timed out after %v", e.Stage, e.Timeout)
}

func (e *StageTimeoutError) Unwrap() error { return context.DeadlineExceeded }

func (e *StageTimeoutError) Retryable() bool { return true }
