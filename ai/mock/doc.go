// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.Completer,
// ai.CompletionStream and ai.AIProvider for use in unit tests. The mocks allow
// tests to run without external AI service dependencies and enable
// controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	mockProvider := mock.NewMockProvider()
//	vector, err := mockProvider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	completer := mock.NewMockCompleter()
//	completer.StreamFunc = func(ctx context.Context, req *ai.CompletionRequest) (ai.CompletionStream, error) {
//	    return mock.NewMockStream("F1", "F2"), nil
//	}
//
//	// Check calls
//	count := completer.CallCount()
//	last := completer.Requests()[0]
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockCompleter: Echoes the last message content
//   - MockStream: Emits the configured fragments, then io.EOF
//   - MockProvider: Aggregates mock embedder and completer
package mock
