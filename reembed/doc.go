// Package reembed provides functionality for reembedding stored document
// chunks with new or updated embedding models.
//
// This package supports batch processing of chunks in storage order,
// checkpointed resume of interrupted runs, progress reporting, retry logic
// with exponential backoff, and vector normalization to ensure compatibility
// with cosine similarity search.
package reembed
