// Package ingestion orchestrates processing tasks.
//
// A Pipeline takes a source (URL or inline text) through a fixed linear
// sequence of stages:
//
//	initialized → content_extraction → text_processing → ai_analysis →
//	embedding_generation → database_storage → completed
//
// Each task runs on a bounded worker pool. Each stage attempt runs under its
// own timeout inside the shared retry policy; only failures marked retryable
// are retried. Progress is persisted to the task repository on entry to every
// stage so status readers see a monotonic, stage-correlated value.
//
// Cancellation is cooperative: Cancel sets a flag that the task observes at
// its next stage boundary. Nothing is written to the document repository
// until the final stage, which upserts the document with all chunks and
// embeddings in one transaction, so a cancelled or failed task never leaves
// a partial document behind.
package ingestion
