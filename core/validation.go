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


package core

import (
	"errors"
	"fmt"
)

// ValidateChatRequest validates a ChatRequest according to domain rules.
//
// Validation rules:
//   - Messages must not be empty
//   - The last message must have non-empty content
//
// Whitespace counts as content. Earlier messages are forwarded as-is and
// are not inspected.
func ValidateChatRequest(req *ChatRequest) error {
	if req == nil {
		return fmt.Errorf("%w: %w", ErrInvalidChatRequest, ErrMalformedRequest)
	}

	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChatRequest, ErrMissingMessages)
	}

	if req.LastMessage().Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChatRequest, ErrEmptyLastMessage)
	}

	return nil
}

// ValidateChunk validates a Chunk before it is embedded.
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyURL)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.Index < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrNegativeIndex)
	}

	return nil
}

// clientMessages maps validation errors to the text returned to callers.
var clientMessages = []struct {
	err error
	msg string
}{
	{ErrMissingMessages, "Messages array is required"},
	{ErrEmptyLastMessage, "Last message must have content"},
	{ErrMalformedRequest, "Invalid request body"},
}

// ClientMessage returns the user-facing message for a validation error.
func ClientMessage(err error) string {
	for _, cm := range clientMessages {
		if errors.Is(err, cm.err) {
			return cm.msg
		}
	}
	return err.Error()
}
