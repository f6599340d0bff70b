package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrEmptyEmbedding if the service answers without a vector.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer talks to an OpenAI-compatible chat completion service.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete issues a non-streaming completion and returns the whole result.
	Complete(ctx context.Context, req *CompletionRequest) (*Completion, error)

	// Stream issues a streaming completion. The caller must Close the
	// returned stream.
	Stream(ctx context.Context, req *CompletionRequest) (CompletionStream, error)
}

// CompletionStream yields completion fragments in the order the service sends them.
type CompletionStream interface {
	// Recv returns the next fragment, or io.EOF once the stream is done.
	Recv() (*CompletionChunk, error)

	// Close releases the underlying connection. It is safe to call more than once.
	Close() error
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// Embedder and Completer share configuration and HTTP settings.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the chat completion service.
	Completer() Completer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
