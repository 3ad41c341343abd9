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

// Package ollama provides AI service implementations on the native Ollama API.
//
// Use it when the server does not expose the OpenAI-compatible /v1 routes,
// or to reach Ollama-specific models by their native names.
//
//	config := ai.NewConfig(
//	    ai.WithProvider(ai.ProviderOllama),
//	    ai.WithHost("http://localhost:11434"),
//	)
//	provider, err := ollama.NewProvider(config)
package ollama

import (
	"context"
	"log/slog"

	"github.com/poiesic/gleaner/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Provider implements ai.AIProvider against a native Ollama server.
type Provider struct {
	embedder *Embedder
	model    *LanguageModel
	logger   *slog.Logger
}

// NewProvider creates a provider with separate clients for the embedding
// and completion models.
//
// Returns ai.AIProvider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedClient, err := ollama.New(
		ollama.WithModel(config.EmbeddingModel),
		ollama.WithServerURL(config.EmbeddingHost),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(embedClient, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	completeClient, err := ollama.New(
		ollama.WithModel(config.CompletionModel),
		ollama.WithServerURL(config.CompletionHost),
	)
	if err != nil {
		return nil, err
	}

	return &Provider{
		embedder: &Embedder{
			embedder: embedder,
			logger:   slog.Default().With("component", "ollama-embedder"),
		},
		model: &LanguageModel{
			client: completeClient,
			logger: slog.Default().With("component", "ollama-llm"),
		},
		logger: slog.Default().With("component", "ollama-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// LanguageModel returns the completion service.
func (p *Provider) LanguageModel() ai.LanguageModel {
	return p.model
}

// Close is a no-op; the Ollama clients hold no resources.
func (p *Provider) Close() error {
	p.logger.Debug("closing Ollama provider")
	return nil
}

// Embedder implements ai.Embedder with the Ollama embeddings endpoint.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, ai.ClassifyError(err)
	}
	if err := ai.CheckEmbeddings(1, [][]float32{vector}); err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, ai.ClassifyError(err)
	}
	if err := ai.CheckEmbeddings(len(texts), vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// LanguageModel implements ai.LanguageModel with the Ollama chat endpoint.
type LanguageModel struct {
	client llms.Model
	logger *slog.Logger
}

// Complete sends prompt as a single-prompt generation.
func (m *LanguageModel) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, m.client, prompt,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		m.logger.Error("failed to generate content", "err", err)
		return "", ai.ClassifyError(err)
	}
	return text, nil
}
