package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 2

// contextSeparator joins retrieved chunks into the prompt context.
const contextSeparator = "\n\n"

// Searcher retrieves the chunks most similar to a query.
type Searcher struct {
	index    storage.VectorIndex
	embedder ai.Embedder
	topK     int
	monitor  SearchMonitor
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithTopK sets how many matches are requested from the index.
// Default is DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Searcher) error {
		if k < 1 {
			return ErrInvalidTopK
		}
		s.topK = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMonitor installs a monitor that observes every retrieval.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.VectorIndex, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		index:    index,
		embedder: embedder,
		topK:     DefaultTopK,
		monitor:  &noopMonitor{},
		logger:   slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Retrieve embeds query, fetches the nearest chunks and assembles their text
// into a context string. Matches without chunk text contribute nothing.
func (s *Searcher) Retrieve(ctx context.Context, query string) (*core.RetrievalResult, error) {
	s.monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	s.monitor.AfterEmbedding(len(embedding))

	matches, err := s.index.Query(ctx, &storage.Query{
		Vector:          embedding,
		TopK:            s.topK,
		IncludeMetadata: true,
		IncludeValues:   true,
	})
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	s.monitor.AfterQuery(matches)

	result := &core.RetrievalResult{
		Query:   query,
		Matches: matches,
		Context: BuildContext(matches),
	}
	s.logger.Debug("retrieved context", "matches", len(matches), "length", len(result.Context))

	s.monitor.Finish(result)
	return result, nil
}

// BuildContext joins the chunk text of matches, in order, with blank lines.
func BuildContext(matches []*core.Match) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m == nil || m.Metadata.ChunkText == "" {
			continue
		}
		texts = append(texts, m.Metadata.ChunkText)
	}
	return strings.Join(texts, contextSeparator)
}
