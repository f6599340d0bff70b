package storage

import (
	"context"
	"fmt"

	"github.com/poiesic/ragchat/core"
)

// VectorIndex is a namespaced vector store hosted by an external service.
// Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// Upsert writes records into the index, replacing any with the same ID.
	// Returns the number of records the service reports as written.
	Upsert(ctx context.Context, records ...*core.EmbeddingRecord) (int, error)

	// Query returns the entries nearest to q.Vector, most similar first.
	// Returns an empty slice when nothing matches.
	Query(ctx context.Context, q *Query) ([]*core.Match, error)

	// Close releases resources held by the index client.
	Close() error
}

// Query describes a top-K nearest neighbour lookup.
type Query struct {
	Vector          []float32
	TopK            int
	IncludeMetadata bool
	IncludeValues   bool
}

// Validate checks that the query can be sent.
func (q *Query) Validate() error {
	if q == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}
	if len(q.Vector) == 0 {
		return fmt.Errorf("%w: vector is empty", ErrInvalidQuery)
	}
	if q.TopK < 1 {
		return fmt.Errorf("%w: topK must be positive, got %d", ErrInvalidQuery, q.TopK)
	}
	return nil
}

// ValidateRecord checks that a record can be upserted.
func ValidateRecord(record *core.EmbeddingRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if record.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidRecord)
	}
	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %s has no vector", ErrInvalidRecord, record.ID)
	}
	return nil
}
