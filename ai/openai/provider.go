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


package openai

import (
	"log/slog"
	"net/http"

	"github.com/poiesic/ragchat/ai"
)

// Provider implements ai.AIProvider for an OpenAI-compatible host such as
// Gemini's. Embeddings and completions go through one HTTP client, so they
// share a connection pool and the configured per-call Timeout.
type Provider struct {
	config     *ai.Config
	httpClient *http.Client
	embedder   *Embedder
	completer  *Completer
	logger     *slog.Logger
}

// NewProvider validates config and builds both services on a shared client.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	httpClient := newHTTPClient(config)
	embedder, err := newEmbedder(config, httpClient)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(config, httpClient)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"embedding_host", config.EmbeddingHost,
		"chat_host", config.ChatHost,
		"chat_model", config.ChatModel,
		"timeout", config.Timeout)

	return &Provider{
		config:     config,
		httpClient: httpClient,
		embedder:   embedder,
		completer:  completer,
		logger:     logger,
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the chat completion service.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// Close drops idle upstream connections. In-flight calls are unaffected.
func (p *Provider) Close() error {
	p.logger.Debug("closing provider")
	p.httpClient.CloseIdleConnections()
	return nil
}
