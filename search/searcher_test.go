package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/ragchat/ai/mock"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
	storagemock "github.com/poiesic/ragchat/storage/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(id, text string) *core.Match {
	return &core.Match{ID: id, Score: 0.9, Metadata: core.RecordMetadata{ChunkText: text}}
}

func TestNewSearcher(t *testing.T) {
	index := storagemock.NewMockIndex()
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(index, embedder)
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, searcher.topK)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.ErrorIs(t, err, ErrIndexRequired)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(index, nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("with options", func(t *testing.T) {
		searcher, err := NewSearcher(index, embedder, WithTopK(5), WithLogger(slog.Default()), WithMonitor(nil))
		require.NoError(t, err)
		assert.Equal(t, 5, searcher.topK)
		assert.NotNil(t, searcher.monitor)
	})

	t.Run("invalid topK", func(t *testing.T) {
		_, err := NewSearcher(index, embedder, WithTopK(0))
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})
}

func TestRetrieve(t *testing.T) {
	index := storagemock.NewMockIndex(match("a", "Aven offers a HELOC card."), match("b", "Rates start at 7.99%."))
	embedder := mock.NewMockEmbedder()

	searcher, err := NewSearcher(index, embedder)
	require.NoError(t, err)

	result, err := searcher.Retrieve(t.Context(), "what does aven offer?")
	require.NoError(t, err)

	assert.Equal(t, "what does aven offer?", result.Query)
	assert.Len(t, result.Matches, 2)
	assert.Equal(t, "Aven offers a HELOC card.\n\nRates start at 7.99%.", result.Context)

	assert.Equal(t, []string{"what does aven offer?"}, embedder.Texts())
	queries := index.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, 2, queries[0].TopK)
	assert.True(t, queries[0].IncludeMetadata)
	assert.True(t, queries[0].IncludeValues)
	assert.NotEmpty(t, queries[0].Vector)
}

func TestRetrieve_NoMatches(t *testing.T) {
	searcher, err := NewSearcher(storagemock.NewMockIndex(), mock.NewMockEmbedder())
	require.NoError(t, err)

	result, err := searcher.Retrieve(t.Context(), "anything")
	require.NoError(t, err)
	assert.Empty(t, result.Matches)
	assert.Equal(t, "", result.Context)
}

func TestRetrieve_Errors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embed down")
		}
		index := storagemock.NewMockIndex()
		searcher, err := NewSearcher(index, embedder)
		require.NoError(t, err)

		_, err = searcher.Retrieve(t.Context(), "q")
		assert.EqualError(t, err, "embed down")
		assert.Empty(t, index.Queries())
	})

	t.Run("query failure", func(t *testing.T) {
		index := storagemock.NewMockIndex()
		index.QueryFunc = func(ctx context.Context, q *storage.Query) ([]*core.Match, error) {
			return nil, storage.ErrRequestFailed
		}
		searcher, err := NewSearcher(index, mock.NewMockEmbedder())
		require.NoError(t, err)

		_, err = searcher.Retrieve(t.Context(), "q")
		assert.ErrorIs(t, err, storage.ErrRequestFailed)
	})
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil))
	assert.Equal(t, "one", BuildContext([]*core.Match{match("a", "one")}))
	assert.Equal(t, "one\n\ntwo", BuildContext([]*core.Match{match("a", "one"), nil, match("c", ""), match("b", "two")}))
}

type recordingMonitor struct {
	events []string
	result *core.RetrievalResult
}

func (m *recordingMonitor) Start(query string)          { m.events = append(m.events, "start:"+query) }
func (m *recordingMonitor) AfterEmbedding(dims int)     { m.events = append(m.events, "embedded") }
func (m *recordingMonitor) AfterQuery(ms []*core.Match) { m.events = append(m.events, "queried") }
func (m *recordingMonitor) Finish(r *core.RetrievalResult) {
	m.events = append(m.events, "finish")
	m.result = r
}

func TestRetrieve_Monitor(t *testing.T) {
	monitor := &recordingMonitor{}
	searcher, err := NewSearcher(storagemock.NewMockIndex(match("a", "ctx")), mock.NewMockEmbedder(), WithMonitor(monitor))
	require.NoError(t, err)

	result, err := searcher.Retrieve(t.Context(), "q")
	require.NoError(t, err)

	assert.Equal(t, []string{"start:q", "embedded", "queried", "finish"}, monitor.events)
	assert.Same(t, result, monitor.result)
}
