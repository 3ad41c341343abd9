package ingestion

import "errors"

var (
	// ErrTaskRepositoryRequired is returned when a task repository is not provided.
	ErrTaskRepositoryRequired = errors.New("task repository required")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrFetcherRequired is returned when a fetcher is not provided.
	ErrFetcherRequired = errors.New("fetcher required")

	// ErrAnalyzerRequired is returned when an analyzer is not provided.
	ErrAnalyzerRequired = errors.New("analyzer required")

	// ErrExtractorRequired is returned when an insight extractor is not provided.
	ErrExtractorRequired = errors.New("insight extractor required")

	// ErrEmbedderRequired is returned when an embedding generator is not provided.
	ErrEmbedderRequired = errors.New("embedding generator required")

	// ErrPipelineStopped is returned by Submit after Release, and recorded on
	// tasks that were queued but never started.
	ErrPipelineStopped = errors.New("pipeline stopped")

	// ErrNoContent indicates analysis left nothing to chunk.
	ErrNoContent = errors.New("no text content after cleaning")
)
