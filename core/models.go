package core

import (
	"fmt"
	"time"
)

// DefaultCategory is the metadata category attached to scraped web content.
const DefaultCategory = "website"

// Document is a scraped source page. It only lives long enough to be chunked.
type Document struct {
	URL     string
	Content string
}

// Chunk is a contiguous slice of a Document.
type Chunk struct {
	URL   string
	Index int
	Text  string
}

// RecordMetadata is stored next to every vector in the index.
// Field names match what the chat endpoint reads back at query time.
type RecordMetadata struct {
	ChunkText  string `json:"chunk_text"`
	Category   string `json:"category"`
	URL        string `json:"url"`
	ChunkIndex int    `json:"chunk_index"`
}

// EmbeddingRecord is a chunk paired with its embedding vector, ready for upsert.
type EmbeddingRecord struct {
	ID       string
	Vector   []float32
	Metadata RecordMetadata
}

// IdentityKey builds the record id for a chunk as "{url}-{unixMillis}-{index}".
//
// The key embeds the ingestion time, so ingesting the same page twice writes
// new records instead of replacing the old ones.
func IdentityKey(url string, ts time.Time, index int) string {
	return fmt.Sprintf("%s-%d-%d", url, ts.UnixMilli(), index)
}

// NewEmbeddingRecord assembles the record for a chunk embedded at ts.
func NewEmbeddingRecord(chunk Chunk, vector []float32, category string, ts time.Time) *EmbeddingRecord {
	return &EmbeddingRecord{
		ID:     IdentityKey(chunk.URL, ts, chunk.Index),
		Vector: vector,
		Metadata: RecordMetadata{
			ChunkText:  chunk.Text,
			Category:   category,
			URL:        chunk.URL,
			ChunkIndex: chunk.Index,
		},
	}
}

// Match is one nearest-neighbour hit returned by the vector index.
type Match struct {
	ID       string
	Score    float32
	Values   []float32
	Metadata RecordMetadata
}

// RetrievalResult holds the matches for a query and the context string
// assembled from their chunk text.
type RetrievalResult struct {
	Query   string
	Matches []*Match
	Context string
}
