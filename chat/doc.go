// Package chat implements the retrieval-augmented completion pipeline.
//
// For each request the Augmenter validates the messages, retrieves context
// for the last message, asks the model to answer the question from that
// context, and substitutes the answer for the last message before issuing
// the caller's completion. Earlier messages pass through unchanged.
//
//	aug, err := chat.NewAugmenter(searcher, provider.Completer())
//	stream, err := aug.Stream(ctx, req)
package chat
