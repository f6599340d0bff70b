package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Chat roles used when building requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a chat request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// contentPart is the array form of message content used by multimodal clients.
type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UnmarshalJSON accepts content either as a plain string or as an array of
// text parts. Text parts are joined with newlines; other part types are ignored.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Name    string          `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Name = raw.Name
	m.Content = ""

	content := bytes.TrimSpace(raw.Content)
	if len(content) == 0 || bytes.Equal(content, []byte("null")) {
		return nil
	}

	switch content[0] {
	case '"':
		return json.Unmarshal(content, &m.Content)
	case '[':
		var parts []contentPart
		if err := json.Unmarshal(content, &parts); err != nil {
			return err
		}
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			if p.Type == "" || p.Type == "text" {
				texts = append(texts, p.Text)
			}
		}
		m.Content = strings.Join(texts, "\n")
		return nil
	default:
		return fmt.Errorf("unsupported message content: %s", content)
	}
}

// reservedParams are request keys the augmentation pipeline owns. They are
// never forwarded upstream from the caller's parameters.
var reservedParams = []string{"model", "messages", "max_tokens", "temperature", "stream", "call"}

// ChatRequest is the decoded body of a chat completion call.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   *int
	Temperature *float32
	Stream      bool

	// Params holds every other top-level key the caller sent, undecoded.
	Params map[string]json.RawMessage
}

// LastMessage returns the final message of the request, or nil when there is none.
func (r *ChatRequest) LastMessage() *ChatMessage {
	if r == nil || len(r.Messages) == 0 {
		return nil
	}
	return &r.Messages[len(r.Messages)-1]
}

// ParseChatRequest decodes a chat request body. Known fields are typed, the
// reserved "call" field is dropped, and everything else lands in Params.
// Decoding failures wrap ErrMalformedRequest.
func ParseChatRequest(body []byte) (*ChatRequest, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidChatRequest, ErrMalformedRequest)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrInvalidChatRequest, ErrMalformedRequest, err)
	}

	req := &ChatRequest{}
	decode := func(key string, dst any) error {
		raw, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("%w: %w: field %q: %v", ErrInvalidChatRequest, ErrMalformedRequest, key, err)
		}
		return nil
	}

	if err := decode("model", &req.Model); err != nil {
		return nil, err
	}
	if err := decode("messages", &req.Messages); err != nil {
		return nil, err
	}
	if err := decode("max_tokens", &req.MaxTokens); err != nil {
		return nil, err
	}
	if err := decode("temperature", &req.Temperature); err != nil {
		return nil, err
	}
	if err := decode("stream", &req.Stream); err != nil {
		return nil, err
	}

	for _, key := range reservedParams {
		delete(fields, key)
	}
	if len(fields) > 0 {
		req.Params = fields
	}
	return req, nil
}
