package ai

import (
	"encoding/json"

	"github.com/poiesic/ragchat/core"
)

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	Model       string
	Messages    []core.ChatMessage
	MaxTokens   int
	// Temperature is always sent, so zero asks for greedy sampling rather
	// than the service default.
	Temperature float32
	Stream      bool

	// Extra holds additional request fields passed through verbatim, such as
	// top_p or stop. The fields above always take precedence.
	Extra map[string]json.RawMessage
}

// Completion is the result of a non-streaming call.
type Completion struct {
	ID      string
	Model   string
	Content string

	// Raw is the completion object as JSON, suitable for relaying to clients.
	Raw json.RawMessage
}

// CompletionChunk is one streamed fragment.
type CompletionChunk struct {
	Content string

	// Raw is the fragment as JSON.
	Raw json.RawMessage
}
