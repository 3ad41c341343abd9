// Package embedding turns ordered chunk texts into ordered vectors.
//
// A Generator splits its input into batches, sends them to an ai.Embedder
// with bounded concurrency, and checks every returned vector against the
// configured dimensionality. Output order always mirrors input order.
//
//	gen, err := embedding.NewGenerator(provider.Embedder(), 768)
//	vectors, err := gen.Embed(ctx, texts)
//
// A wrong vector length is a configuration problem and is reported as a
// non-retryable *core.EmbeddingError.
package embedding
