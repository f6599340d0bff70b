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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChatRequest indicates a ChatRequest failed validation.
	// Every client input error wraps it.
	ErrInvalidChatRequest = errors.New("invalid chat request")

	// ErrMalformedRequest indicates the request body could not be decoded.
	ErrMalformedRequest = errors.New("invalid request body")

	// ErrMissingMessages indicates the messages array is absent or empty.
	ErrMissingMessages = errors.New("messages array is required")

	// ErrEmptyLastMessage indicates the final message carries no content.
	ErrEmptyLastMessage = errors.New("last message must have content")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyURL indicates the source URL is empty.
	ErrEmptyURL = errors.New("url cannot be empty")

	// ErrEmptyContent indicates a text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNegativeIndex indicates a chunk index below zero.
	ErrNegativeIndex = errors.New("chunk index cannot be negative")
)
