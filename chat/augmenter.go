package chat

import (
	"context"
	"log/slog"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
)

// Defaults applied when neither the caller nor an option overrides them.
const (
	DefaultRewriteMaxTokens   = 500
	DefaultRewriteTemperature = 0.7
	DefaultMaxTokens          = 150
	DefaultTemperature        = 0.7
)

// Retriever finds context for a query. *search.Searcher implements it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*core.RetrievalResult, error)
}

// Augmenter turns a caller's chat request into a context-grounded completion.
type Augmenter struct {
	retriever          Retriever
	completer          ai.Completer
	model              string
	rewriteMaxTokens   int
	rewriteTemperature float32
	maxTokens          int
	temperature        float32
	logger             *slog.Logger
}

// Option configures an Augmenter.
type Option func(*Augmenter) error

// WithModel sets the model used for both the rewrite and the final call.
// An empty model defers to the completer's configured default.
func WithModel(model string) Option {
	return func(a *Augmenter) error {
		a.model = model
		return nil
	}
}

// WithRewrite sets the token limit and temperature of the rewrite call.
func WithRewrite(maxTokens int, temperature float32) Option {
	return func(a *Augmenter) error {
		if maxTokens < 1 || temperature < 0 {
			return ErrInvalidOption
		}
		a.rewriteMaxTokens = maxTokens
		a.rewriteTemperature = temperature
		return nil
	}
}

// WithDefaults sets the token limit and temperature used for the final call
// when the caller omits them.
func WithDefaults(maxTokens int, temperature float32) Option {
	return func(a *Augmenter) error {
		if maxTokens < 1 || temperature < 0 {
			return ErrInvalidOption
		}
		a.maxTokens = maxTokens
		a.temperature = temperature
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Augmenter) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// NewAugmenter creates a new augmenter.
func NewAugmenter(retriever Retriever, completer ai.Completer, opts ...Option) (*Augmenter, error) {
	if retriever == nil {
		return nil, ErrSearcherRequired
	}
	if completer == nil {
		return nil, ErrCompleterRequired
	}

	a := &Augmenter{
		retriever:          retriever,
		completer:          completer,
		rewriteMaxTokens:   DefaultRewriteMaxTokens,
		rewriteTemperature: DefaultRewriteTemperature,
		maxTokens:          DefaultMaxTokens,
		temperature:        DefaultTemperature,
		logger:             slog.Default().With("component", "augmenter"),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Prepare runs validation, retrieval and the rewrite call, and returns the
// final completion request. The caller's messages are not modified.
func (a *Augmenter) Prepare(ctx context.Context, req *core.ChatRequest) (*ai.CompletionRequest, error) {
	if err := core.ValidateChatRequest(req); err != nil {
		return nil, err
	}
	query := req.LastMessage().Content

	retrieval, err := a.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("retrieved context", "matches", len(retrieval.Matches))

	rewrite, err := a.completer.Complete(ctx, &ai.CompletionRequest{
		Model:       a.model,
		Messages:    []core.ChatMessage{{Role: core.RoleUser, Content: BuildRewritePrompt(retrieval.Context, query)}},
		MaxTokens:   a.rewriteMaxTokens,
		Temperature: a.rewriteTemperature,
	})
	if err != nil {
		return nil, err
	}
	if rewrite == nil || rewrite.Content == "" {
		a.logger.Warn("rewrite returned no content")
		return nil, ErrEmptyRewrite
	}

	messages := make([]core.ChatMessage, len(req.Messages))
	copy(messages, req.Messages)
	messages[len(messages)-1].Content = rewrite.Content

	final := &ai.CompletionRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		Stream:      req.Stream,
		Extra:       req.Params,
	}
	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		final.MaxTokens = *req.MaxTokens
	}
	if req.Temperature != nil {
		final.Temperature = *req.Temperature
	}
	return final, nil
}

// Complete prepares the request and issues a buffered completion.
func (a *Augmenter) Complete(ctx context.Context, req *core.ChatRequest) (*ai.Completion, error) {
	final, err := a.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	final.Stream = false
	return a.completer.Complete(ctx, final)
}

// Stream prepares the request and opens a streaming completion. The caller
// must Close the returned stream.
func (a *Augmenter) Stream(ctx context.Context, req *core.ChatRequest) (ai.CompletionStream, error) {
	final, err := a.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	final.Stream = true
	return a.completer.Stream(ctx, final)
}
