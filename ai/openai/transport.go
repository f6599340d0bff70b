package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/poiesic/ragchat/ai"
)

// newHTTPClient returns the client used for upstream calls. A zero Timeout
// leaves calls unbounded.
func newHTTPClient(config *ai.Config) *http.Client {
	return &http.Client{
		Timeout:   config.Timeout,
		Transport: &passthroughTransport{base: http.DefaultTransport},
	}
}

type passthroughKey struct{}

// withPassthrough attaches fields to be merged into the JSON body of the
// next request made with ctx.
func withPassthrough(ctx context.Context, fields map[string]json.RawMessage) context.Context {
	if len(fields) == 0 {
		return ctx
	}
	return context.WithValue(ctx, passthroughKey{}, fields)
}

func passthroughFrom(ctx context.Context) map[string]json.RawMessage {
	fields, _ := ctx.Value(passthroughKey{}).(map[string]json.RawMessage)
	return fields
}

// passthroughTransport adds caller fields the SDK request type cannot carry
// to the outgoing body. Keys already present in the body are left alone.
type passthroughTransport struct {
	base http.RoundTripper
}

func (t *passthroughTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	fields := passthroughFrom(req.Context())
	if len(fields) == 0 || req.Body == nil {
		return t.base.RoundTrip(req)
	}

	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decoding request body: %w", err)
	}
	for key, value := range fields {
		if _, ok := body[key]; !ok {
			body[key] = value
		}
	}
	merged, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}

	out := req.Clone(req.Context())
	out.Body = io.NopCloser(bytes.NewReader(merged))
	out.ContentLength = int64(len(merged))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(merged)), nil
	}
	return t.base.RoundTrip(out)
}
