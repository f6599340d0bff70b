// Package mock provides an in-memory storage.VectorIndex for tests.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/storage"
)

// MockIndex records upserts and answers queries with configured matches.
type MockIndex struct {
	// UpsertFunc is called by Upsert if set.
	UpsertFunc func(ctx context.Context, records ...*core.EmbeddingRecord) (int, error)

	// QueryFunc is called by Query if set. Otherwise Matches is returned.
	QueryFunc func(ctx context.Context, q *storage.Query) ([]*core.Match, error)

	// Matches is the default query result.
	Matches []*core.Match

	mu      sync.Mutex
	records []*core.EmbeddingRecord
	queries []*storage.Query
	closed  bool
}

var _ storage.VectorIndex = (*MockIndex)(nil)

// NewMockIndex creates an empty mock index.
func NewMockIndex(matches ...*core.Match) *MockIndex {
	return &MockIndex{Matches: matches}
}

// Upsert records the written records.
func (m *MockIndex) Upsert(ctx context.Context, records ...*core.EmbeddingRecord) (int, error) {
	if m.UpsertFunc != nil {
		n, err := m.UpsertFunc(ctx, records...)
		if err != nil {
			return n, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, storage.ErrIndexClosed
	}
	m.records = append(m.records, records...)
	return len(records), nil
}

// Query records the query and returns the configured matches.
func (m *MockIndex) Query(ctx context.Context, q *storage.Query) ([]*core.Match, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, storage.ErrIndexClosed
	}
	m.queries = append(m.queries, q)
	m.mu.Unlock()

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q)
	}
	return m.Matches, nil
}

// Close marks the index closed.
func (m *MockIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Records returns every upserted record in write order.
func (m *MockIndex) Records() []*core.EmbeddingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.EmbeddingRecord(nil), m.records...)
}

// Queries returns every query received.
func (m *MockIndex) Queries() []*storage.Query {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*storage.Query(nil), m.queries...)
}

// Closed reports whether Close was called.
func (m *MockIndex) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
