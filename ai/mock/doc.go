// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.LanguageModel,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vectors, err := mockProvider.Embedder().EmbedTexts(ctx, []string{"test"})
//
//	// Custom behavior injection
//	lm := mock.NewMockLanguageModel()
//	lm.CompleteFunc = func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
//	    return `{"tags": ["go"]}`, nil
//	}
//
//	// Check call counts
//	count := lm.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockLanguageModel: Answers each field prompt with well-formed JSON
//   - MockProvider: Aggregates mock embedder and language model
package mock
