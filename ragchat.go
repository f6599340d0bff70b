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


package ragchat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/ai/openai"
	"github.com/poiesic/ragchat/chat"
	"github.com/poiesic/ragchat/ingestion"
	"github.com/poiesic/ragchat/scrape"
	"github.com/poiesic/ragchat/scrape/firecrawl"
	"github.com/poiesic/ragchat/search"
	"github.com/poiesic/ragchat/storage"
	"github.com/poiesic/ragchat/storage/pinecone"
)

// ErrScraperNotConfigured is returned by NewIngestionPipeline when the
// services were built without scraper settings.
var ErrScraperNotConfigured = errors.New("scraper not configured")

// Services owns the external clients shared by the chat server and the
// ingestion job.
type Services struct {
	provider  ai.AIProvider
	index     storage.VectorIndex
	scraper   scrape.Scraper
	chatModel string
	logger    *slog.Logger
}

// Option configures Services.
type Option func(*options)

type options struct {
	aiConfig      *ai.Config
	indexConfig   *pinecone.Config
	scraperConfig *firecrawl.Config

	provider ai.AIProvider
	index    storage.VectorIndex
	scraper  scrape.Scraper
}

// WithAIConfig sets the embedding and chat service settings.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithIndexConfig sets the vector index settings.
func WithIndexConfig(cfg *pinecone.Config) Option {
	return func(o *options) {
		o.indexConfig = cfg
	}
}

// WithScraperConfig enables the scraper. Only ingestion needs it.
func WithScraperConfig(cfg *firecrawl.Config) Option {
	return func(o *options) {
		o.scraperConfig = cfg
	}
}

// WithProvider uses an existing AI provider instead of building one.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithIndex uses an existing vector index instead of connecting to one.
func WithIndex(index storage.VectorIndex) Option {
	return func(o *options) {
		o.index = index
	}
}

// WithScraper uses an existing scraper.
func WithScraper(scraper scrape.Scraper) Option {
	return func(o *options) {
		o.scraper = scraper
	}
}

// NewServices connects to the AI provider and the vector index, and to the
// scraper when one is configured.
func NewServices(ctx context.Context, opts ...Option) (*Services, error) {
	o := &options{
		aiConfig:    ai.DefaultConfig(),
		indexConfig: pinecone.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	s := &Services{
		provider: o.provider,
		index:    o.index,
		scraper:  o.scraper,
		logger:   slog.Default().With("component", "services"),
	}
	if o.aiConfig != nil {
		s.chatModel = o.aiConfig.ChatModel
	}

	if s.provider == nil {
		provider, err := openai.NewProvider(o.aiConfig)
		if err != nil {
			return nil, err
		}
		s.provider = provider
	}

	if s.index == nil {
		index, err := pinecone.NewIndex(ctx, o.indexConfig)
		if err != nil {
			s.provider.Close()
			return nil, err
		}
		s.index = index
	}

	if s.scraper == nil && o.scraperConfig != nil {
		scraper, err := firecrawl.NewScraper(o.scraperConfig)
		if err != nil {
			s.index.Close()
			s.provider.Close()
			return nil, err
		}
		s.scraper = scraper
	}

	return s, nil
}

func (s *Services) Close() error {
	var errs []error
	if err := s.index.Close(); err != nil {
		s.logger.Error("error closing vector index", "err", err)
		errs = append(errs, err)
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Services) Provider() ai.AIProvider {
	return s.provider
}

func (s *Services) Index() storage.VectorIndex {
	return s.index
}

func (s *Services) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.index, s.provider.Embedder(), opts...)
}

// NewAugmenter wires a searcher and the chat completer into the request
// pipeline. The configured chat model is used unless opts override it.
func (s *Services) NewAugmenter(searchOpts []search.Option, opts ...chat.Option) (*chat.Augmenter, error) {
	searcher, err := s.NewSearcher(searchOpts...)
	if err != nil {
		return nil, err
	}
	opts = append([]chat.Option{chat.WithModel(s.chatModel)}, opts...)
	return chat.NewAugmenter(searcher, s.provider.Completer(), opts...)
}

func (s *Services) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	if s.scraper == nil {
		return nil, ErrScraperNotConfigured
	}
	return ingestion.NewPipeline(s.scraper, s.provider.Embedder(), s.index, opts...)
}
