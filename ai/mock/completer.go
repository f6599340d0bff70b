package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/ragchat/ai"
)

// MockCompleter is a test double for ai.Completer.
// Requests are recorded so tests can inspect what would have been sent upstream.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, the last message content is echoed back.
	CompleteFunc func(ctx context.Context, req *ai.CompletionRequest) (*ai.Completion, error)

	// StreamFunc is called by Stream if set.
	// If nil, the last message content is streamed as a single fragment.
	StreamFunc func(ctx context.Context, req *ai.CompletionRequest) (ai.CompletionStream, error)

	mu       sync.Mutex
	requests []*ai.CompletionRequest
}

// NewMockCompleter creates a mock completer with echo behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete records the request and returns a completion.
func (m *MockCompleter) Complete(ctx context.Context, req *ai.CompletionRequest) (*ai.Completion, error) {
	m.record(req)

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return NewCompletion(lastContent(req)), nil
}

// Stream records the request and returns a stream.
func (m *MockCompleter) Stream(ctx context.Context, req *ai.CompletionRequest) (ai.CompletionStream, error) {
	m.record(req)

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return NewMockStream(lastContent(req)), nil
}

func (m *MockCompleter) record(req *ai.CompletionRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// CallCount returns the number of Complete and Stream calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the recorded requests in call order.
func (m *MockCompleter) Requests() []*ai.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ai.CompletionRequest(nil), m.requests...)
}

// Reset clears recorded requests and injected behavior.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.CompleteFunc = nil
	m.StreamFunc = nil
}

func lastContent(req *ai.CompletionRequest) string {
	if req == nil || len(req.Messages) == 0 {
		return ""
	}
	return req.Messages[len(req.Messages)-1].Content
}

// NewCompletion builds a completion whose Raw payload mirrors the
// chat.completion object shape.
func NewCompletion(content string) *ai.Completion {
	raw, _ := json.Marshal(map[string]any{
		"id":     "mock-completion",
		"object": "chat.completion",
		"model":  "mock",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return &ai.Completion{ID: "mock-completion", Model: "mock", Content: content, Raw: raw}
}

// MockStream is a test double for ai.CompletionStream.
type MockStream struct {
	chunks []*ai.CompletionChunk

	// Err, if set, is returned after all chunks instead of io.EOF.
	Err error

	mu         sync.Mutex
	pos        int
	closeCount int
}

// NewMockStream creates a stream that emits one fragment per content value.
// Each fragment's Raw payload is the JSON string of its content.
func NewMockStream(contents ...string) *MockStream {
	chunks := make([]*ai.CompletionChunk, len(contents))
	for i, c := range contents {
		raw, _ := json.Marshal(c)
		chunks[i] = &ai.CompletionChunk{Content: c, Raw: raw}
	}
	return &MockStream{chunks: chunks}
}

// NewMockStreamFromChunks creates a stream over prebuilt chunks.
func NewMockStreamFromChunks(chunks ...*ai.CompletionChunk) *MockStream {
	return &MockStream{chunks: chunks}
}

// Recv returns the next chunk, then Err or io.EOF.
func (s *MockStream) Recv() (*ai.CompletionChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeCount > 0 {
		return nil, fmt.Errorf("mock stream: recv after close")
	}
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, io.EOF
}

// Close records the call.
func (s *MockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return nil
}

// CloseCount returns how many times Close was called.
func (s *MockStream) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}
