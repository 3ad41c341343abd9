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
// Package ai provides abstractions for the AI capabilities consumed by gleaner.
//
// This package defines interfaces for the two external capabilities the
// pipeline depends on: text embeddings and prompt completion. It follows the
// dependency inversion principle, allowing the pipeline stages to depend on
// abstractions rather than concrete provider clients.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - LanguageModel: Completes a prompt with bounded length and temperature
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (OpenAI, vLLM, LocalAI, Ollama /v1)
//   - ai/ollama: the native Ollama API
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, ollama.NewProvider, openai.NewEmbedder)
// return INTERFACE types to prevent accidental coupling to concrete
// implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockLanguageModel)
// return CONCRETE types to enable test assertions and behavior injection.
//
// # Errors
//
// Providers pass their errors through ClassifyError so that rejected
// credentials surface as ErrAuthentication, which callers treat as fatal.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"Hello world"})
//	summary, err := provider.LanguageModel().Complete(ctx, prompt, 500, 0.4)
package ai
