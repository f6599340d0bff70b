package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/ai/mock"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/search"
	storagemock "github.com/poiesic/ragchat/storage/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	index     *storagemock.MockIndex
	embedder  *mock.MockEmbedder
	completer *mock.MockCompleter
	augmenter *Augmenter
}

func newFixture(t *testing.T, matches ...*core.Match) *fixture {
	t.Helper()
	f := &fixture{
		index:     storagemock.NewMockIndex(matches...),
		embedder:  mock.NewMockEmbedder(),
		completer: mock.NewMockCompleter(),
	}
	searcher, err := search.NewSearcher(f.index, f.embedder)
	require.NoError(t, err)

	f.augmenter, err = NewAugmenter(searcher, f.completer, WithModel("chat-model"))
	require.NoError(t, err)

	f.completer.CompleteFunc = func(ctx context.Context, req *ai.CompletionRequest) (*ai.Completion, error) {
		if len(f.completer.Requests()) == 1 {
			return mock.NewCompletion("rewritten question"), nil
		}
		return mock.NewCompletion("final answer"), nil
	}
	return f
}

func userRequest(content string) *core.ChatRequest {
	return &core.ChatRequest{Messages: []core.ChatMessage{{Role: core.RoleUser, Content: content}}}
}

func TestNewAugmenter(t *testing.T) {
	searcher, err := search.NewSearcher(storagemock.NewMockIndex(), mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = NewAugmenter(nil, mock.NewMockCompleter())
	assert.ErrorIs(t, err, ErrSearcherRequired)

	_, err = NewAugmenter(searcher, nil)
	assert.ErrorIs(t, err, ErrCompleterRequired)

	_, err = NewAugmenter(searcher, mock.NewMockCompleter(), WithDefaults(0, 0.5))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewAugmenter(searcher, mock.NewMockCompleter(), WithRewrite(10, -1))
	assert.ErrorIs(t, err, ErrInvalidOption)

	a, err := NewAugmenter(searcher, mock.NewMockCompleter(), WithDefaults(64, 0.2), WithRewrite(300, 0.1), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, 64, a.maxTokens)
	assert.Equal(t, 300, a.rewriteMaxTokens)
}

func TestBuildRewritePrompt(t *testing.T) {
	prompt := BuildRewritePrompt("ctx one\n\nctx two", "What is Aven?")
	assert.Equal(t, "Answer my question based on the following context:\n    ctx one\n\nctx two\n    \n    question:What is Aven?\n    Answer:", prompt)
}

func TestPrepare(t *testing.T) {
	f := newFixture(t,
		&core.Match{ID: "a", Metadata: core.RecordMetadata{ChunkText: "Aven is a fintech."}},
		&core.Match{ID: "b", Metadata: core.RecordMetadata{ChunkText: "It offers a HELOC card."}},
	)
	req := &core.ChatRequest{
		Messages: []core.ChatMessage{
			{Role: core.RoleSystem, Content: "be brief"},
			{Role: core.RoleUser, Content: "What is Aven?"},
		},
		Params: map[string]json.RawMessage{"top_p": json.RawMessage(`0.5`)},
	}

	final, err := f.augmenter.Prepare(t.Context(), req)
	require.NoError(t, err)

	requests := f.completer.Requests()
	require.Len(t, requests, 1)
	rewrite := requests[0]
	assert.Equal(t, "chat-model", rewrite.Model)
	assert.Equal(t, DefaultRewriteMaxTokens, rewrite.MaxTokens)
	assert.InDelta(t, DefaultRewriteTemperature, rewrite.Temperature, 1e-6)
	assert.False(t, rewrite.Stream)
	require.Len(t, rewrite.Messages, 1)
	assert.Equal(t, core.RoleUser, rewrite.Messages[0].Role)
	assert.Equal(t, BuildRewritePrompt("Aven is a fintech.\n\nIt offers a HELOC card.", "What is Aven?"), rewrite.Messages[0].Content)

	assert.Equal(t, "chat-model", final.Model)
	assert.Equal(t, DefaultMaxTokens, final.MaxTokens)
	assert.InDelta(t, DefaultTemperature, final.Temperature, 1e-6)
	assert.Equal(t, []core.ChatMessage{
		{Role: core.RoleSystem, Content: "be brief"},
		{Role: core.RoleUser, Content: "rewritten question"},
	}, final.Messages)
	assert.Equal(t, req.Params, final.Extra)

	// The caller's request is left intact.
	assert.Equal(t, "What is Aven?", req.Messages[1].Content)
	assert.Equal(t, []string{"What is Aven?"}, f.embedder.Texts())
}

func TestPrepare_CallerOverrides(t *testing.T) {
	f := newFixture(t)
	maxTokens := 42
	temperature := float32(0.1)
	req := userRequest("hi")
	req.MaxTokens = &maxTokens
	req.Temperature = &temperature

	final, err := f.augmenter.Prepare(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, 42, final.MaxTokens)
	assert.InDelta(t, 0.1, final.Temperature, 1e-6)
}

func TestPrepare_EmptyContextStillCompletes(t *testing.T) {
	f := newFixture(t)

	completion, err := f.augmenter.Complete(t.Context(), userRequest("anything?"))
	require.NoError(t, err)
	assert.Equal(t, "final answer", completion.Content)

	requests := f.completer.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, BuildRewritePrompt("", "anything?"), requests[0].Messages[0].Content)
}

func TestPrepare_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.augmenter.Prepare(t.Context(), &core.ChatRequest{})
	assert.ErrorIs(t, err, core.ErrMissingMessages)

	_, err = f.augmenter.Prepare(t.Context(), userRequest(""))
	assert.ErrorIs(t, err, core.ErrEmptyLastMessage)

	assert.Zero(t, f.embedder.CallCount())
	assert.Zero(t, f.completer.CallCount())
}

func TestPrepare_EmptyRewrite(t *testing.T) {
	f := newFixture(t)
	f.completer.CompleteFunc = func(ctx context.Context, req *ai.CompletionRequest) (*ai.Completion, error) {
		return mock.NewCompletion(""), nil
	}

	_, err := f.augmenter.Stream(t.Context(), userRequest("q"))
	assert.ErrorIs(t, err, ErrEmptyRewrite)
	assert.Equal(t, 1, f.completer.CallCount())
}

func TestPrepare_WhitespaceIsContent(t *testing.T) {
	f := newFixture(t)
	f.completer.CompleteFunc = func(ctx context.Context, req *ai.CompletionRequest) (*ai.Completion, error) {
		return mock.NewCompletion(" "), nil
	}

	final, err := f.augmenter.Prepare(t.Context(), userRequest("  "))
	require.NoError(t, err)
	assert.Equal(t, []string{"  "}, f.embedder.Texts())
	assert.Equal(t, " ", final.Messages[0].Content)
}

func TestPrepare_ZeroValuedOverrides(t *testing.T) {
	tests := []struct {
		name      string
		maxTokens int
		want      int
	}{
		{"zero max tokens uses default", 0, DefaultMaxTokens},
		{"negative max tokens uses default", -5, DefaultMaxTokens},
		{"positive max tokens kept", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			maxTokens := tt.maxTokens
			temperature := float32(0)
			req := userRequest("hi")
			req.MaxTokens = &maxTokens
			req.Temperature = &temperature

			final, err := f.augmenter.Prepare(t.Context(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, final.MaxTokens)
			// An explicit zero temperature is kept, not replaced by the default.
			assert.Zero(t, final.Temperature)
		})
	}
}

func TestPrepare_UpstreamErrors(t *testing.T) {
	t.Run("retrieval failure", func(t *testing.T) {
		f := newFixture(t)
		f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, ai.ErrEmptyEmbedding
		}
		_, err := f.augmenter.Complete(t.Context(), userRequest("q"))
		assert.ErrorIs(t, err, ai.ErrEmptyEmbedding)
		assert.Zero(t, f.completer.CallCount())
	})

	t.Run("rewrite api error", func(t *testing.T) {
		f := newFixture(t)
		f.completer.CompleteFunc = func(ctx context.Context, req *ai.CompletionRequest) (*ai.Completion, error) {
			return nil, &ai.APIError{StatusCode: 429, Message: "slow down"}
		}
		_, err := f.augmenter.Complete(t.Context(), userRequest("q"))
		apiErr, ok := ai.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, 429, apiErr.StatusCode)
	})
}

func TestStream(t *testing.T) {
	f := newFixture(t)
	f.completer.StreamFunc = func(ctx context.Context, req *ai.CompletionRequest) (ai.CompletionStream, error) {
		assert.True(t, req.Stream)
		assert.Equal(t, "rewritten question", req.Messages[0].Content)
		return mock.NewMockStream("F1", "F2"), nil
	}

	stream, err := f.augmenter.Stream(t.Context(), userRequest("q"))
	require.NoError(t, err)
	defer stream.Close()

	var got []string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, chunk.Content)
	}
	assert.Equal(t, []string{"F1", "F2"}, got)
}
