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


package ai

import (
	"errors"
	"strings"
	"time"
)

// DefaultHost is Gemini's OpenAI-compatible endpoint.
const DefaultHost = "https://generativelanguage.googleapis.com/v1beta/openai"

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://generativelanguage.googleapis.com/v1beta/openai"
	EmbeddingHost string

	// ChatHost is the base URL for the chat completion service API.
	// Example: "https://api.openai.com/v1"
	ChatHost string

	// APIKey is sent as a bearer token to both services.
	APIKey string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "gemini-embedding-001", "text-embedding-3-small"
	EmbeddingModel string

	// ChatModel is the model identifier used for prompt rewriting and
	// final completions.
	// Example: "gemini-2.0-flash-lite", "gpt-4o-mini"
	ChatModel string

	// Timeout bounds each upstream HTTP call. Zero means no timeout.
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat completion service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithAPIKey sets the API key used to authenticate upstream calls.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithTimeout sets the per-call timeout for upstream requests.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns a Config pointing at Gemini's OpenAI-compatible API.
// The API key is left empty and must be supplied before Validate succeeds.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  DefaultHost,
		ChatHost:       DefaultHost,
		EmbeddingModel: "gemini-embedding-001",
		ChatModel:      "gemini-2.0-flash-lite",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithAPIKey(os.Getenv("GEMINI_API_KEY")),
//       WithChatModel("gemini-2.0-flash"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize trims whitespace and trailing slashes from the hosts so client
// libraries can append their own paths.
func (c *Config) Normalize() {
	c.EmbeddingHost = strings.TrimRight(strings.TrimSpace(c.EmbeddingHost), "/")
	c.ChatHost = strings.TrimRight(strings.TrimSpace(c.ChatHost), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.APIKey == "" {
		return errors.New("ai config: APIKey is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.Timeout < 0 {
		return errors.New("ai config: Timeout cannot be negative")
	}
	return nil
}
