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


// Package ai provides abstractions for the hosted AI services used by ragchat.
//
// This package defines interfaces for text embeddings and chat completions.
// The retrieval and ingestion pipelines depend on these abstractions rather
// than on a particular vendor SDK.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - Completer: Issues buffered or streaming chat completions
//   - AIProvider: Aggregates AI services for convenient initialization
//
// Upstream failures with an HTTP status are reported as *APIError so callers
// can relay the status and provider error code.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types. Test constructors (mock.NewMockEmbedder,
// mock.NewMockCompleter) return CONCRETE types so tests can inject behavior
// and inspect recorded calls.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
//	mockCompleter := mock.NewMockCompleter()      // returns *mock.MockCompleter
//	mockCompleter.CompleteFunc = ...
//	count := mockCompleter.CallCount()
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "What is a HELOC?")
//	completion, err := provider.Completer().Complete(ctx, &ai.CompletionRequest{
//	    Model:    config.ChatModel,
//	    Messages: []core.ChatMessage{{Role: core.RoleUser, Content: "Hello"}},
//	})
package ai
