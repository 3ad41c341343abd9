package mock

import (
	"context"
	"sync"
)

// DefaultResponse is returned by MockLanguageModel when no CompleteFunc is set.
// It carries every insight field so any field prompt parses.
const DefaultResponse = `{
  "title": "Mock Document Title",
  "summary": "This is a mock summary of the content.",
  "tags": ["mock", "testing", "content"],
  "insights": [
    {"text": "Mock insight about the content", "relevance": 0.9},
    {"text": "Second mock insight", "relevance": 0.6}
  ],
  "action_items": ["Review the mock content", "Write more tests"],
  "quotable_snippets": [
    {"text": "A memorable mock quote", "context": "From the mock content"}
  ]
}`

// MockLanguageModel is a test double for ai.LanguageModel.
type MockLanguageModel struct {
	// CompleteFunc is called by Complete if set.
	CompleteFunc func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)

	mu        sync.Mutex
	callCount int
	prompts   []string
}

// NewMockLanguageModel creates a mock language model answering with DefaultResponse.
func NewMockLanguageModel() *MockLanguageModel {
	return &MockLanguageModel{}
}

// Complete records the prompt and returns CompleteFunc's result or DefaultResponse.
func (m *MockLanguageModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, maxTokens, temperature)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return DefaultResponse, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockLanguageModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns a copy of every prompt received so far.
func (m *MockLanguageModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Reset clears the call count, recorded prompts and custom function.
func (m *MockLanguageModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.prompts = nil
	m.CompleteFunc = nil
}
