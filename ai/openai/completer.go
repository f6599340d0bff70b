package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"sync"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/core"
)

// Completer implements ai.Completer using an OpenAI-compatible chat API.
type Completer struct {
	client *goopenai.Client
	model  string
	logger *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
func newCompleter(config *ai.Config, httpClient *http.Client) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.ChatHost
	clientConfig.HTTPClient = httpClient

	return &Completer{
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  config.ChatModel,
		logger: slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config, newHTTPClient(config))
}

// Complete issues a buffered chat completion.
func (c *Completer) Complete(ctx context.Context, req *ai.CompletionRequest) (*ai.Completion, error) {
	request, passthrough, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}
	request.Stream = false
	ctx = withPassthrough(ctx, passthrough)

	c.logger.Debug("requesting completion", "model", request.Model, "messages", len(request.Messages))

	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		err = translateError(err)
		c.logger.Error("completion failed", "model", request.Model, "err", err)
		return nil, err
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding completion: %w", err)
	}

	completion := &ai.Completion{
		ID:    resp.ID,
		Model: resp.Model,
		Raw:   raw,
	}
	if len(resp.Choices) > 0 {
		completion.Content = resp.Choices[0].Message.Content
	}
	return completion, nil
}

// Stream issues a streaming chat completion.
func (c *Completer) Stream(ctx context.Context, req *ai.CompletionRequest) (ai.CompletionStream, error) {
	request, passthrough, err := c.buildRequest(req)
	if err != nil {
		return nil, err
	}
	request.Stream = true
	ctx = withPassthrough(ctx, passthrough)

	c.logger.Debug("opening completion stream", "model", request.Model, "messages", len(request.Messages))

	stream, err := c.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		err = translateError(err)
		c.logger.Error("opening completion stream failed", "model", request.Model, "err", err)
		return nil, err
	}
	return &completionStream{stream: stream}, nil
}

// ownedFields are set by the completer and never taken from Extra.
var ownedFields = []string{"model", "messages", "max_tokens", "temperature", "stream"}

// buildRequest merges the pass-through fields first and then applies the
// fields the caller may not override. Extra fields the SDK request drops on
// encoding are returned separately so the transport can add them back.
func (c *Completer) buildRequest(req *ai.CompletionRequest) (goopenai.ChatCompletionRequest, map[string]json.RawMessage, error) {
	var request goopenai.ChatCompletionRequest
	if req == nil {
		return request, nil, fmt.Errorf("%w: request is nil", ai.ErrInvalidParams)
	}

	if len(req.Extra) > 0 {
		data, err := json.Marshal(req.Extra)
		if err != nil {
			return request, nil, fmt.Errorf("%w: %v", ai.ErrInvalidParams, err)
		}
		if err := json.Unmarshal(data, &request); err != nil {
			return request, nil, fmt.Errorf("%w: %v", ai.ErrInvalidParams, err)
		}
	}

	request.Model = req.Model
	if request.Model == "" {
		request.Model = c.model
	}
	request.Messages = toMessages(req.Messages)
	request.MaxTokens = req.MaxTokens
	request.Temperature = req.Temperature
	if request.Temperature == 0 {
		// go-openai omits a zero temperature.
		request.Temperature = math.SmallestNonzeroFloat32
	}

	passthrough, err := unencodedFields(request, req.Extra)
	if err != nil {
		return request, nil, err
	}
	if len(passthrough) > 0 {
		c.logger.Debug("forwarding fields outside the SDK request", "count", len(passthrough))
	}
	return request, passthrough, nil
}

// unencodedFields returns the entries of extra that do not survive encoding
// request, excluding the fields the completer owns.
func unencodedFields(request goopenai.ChatCompletionRequest, extra map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	if len(extra) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrInvalidParams, err)
	}
	var encoded map[string]json.RawMessage
	if err := json.Unmarshal(data, &encoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrInvalidParams, err)
	}

	var out map[string]json.RawMessage
	for key, value := range extra {
		if _, ok := encoded[key]; ok || slices.Contains(ownedFields, key) {
			continue
		}
		if out == nil {
			out = make(map[string]json.RawMessage)
		}
		out[key] = value
	}
	return out, nil
}

func toMessages(messages []core.ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		}
	}
	return out
}

// translateError maps go-openai failures onto ai.APIError so callers never
// depend on the SDK's types.
func translateError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &ai.APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Code:       apiErr.Code,
			Type:       apiErr.Type,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.HTTPStatus
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &ai.APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    msg,
			Body:       string(reqErr.Body),
			Err:        err,
		}
	}

	return err
}

// completionStream adapts a go-openai stream to ai.CompletionStream.
type completionStream struct {
	stream   *goopenai.ChatCompletionStream
	once     sync.Once
	closeErr error
}

func (s *completionStream) Recv() (*ai.CompletionChunk, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, translateError(err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding completion chunk: %w", err)
	}

	chunk := &ai.CompletionChunk{Raw: raw}
	if len(resp.Choices) > 0 {
		chunk.Content = resp.Choices[0].Delta.Content
	}
	return chunk, nil
}

func (s *completionStream) Close() error {
	s.once.Do(func() {
		s.closeErr = s.stream.Close()
	})
	return s.closeErr
}
