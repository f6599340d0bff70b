// Package ingestion loads web pages into the vector index.
//
// For each source URL the Pipeline:
//   - Scrapes the page's main content as markdown
//   - Splits it into fixed-size chunks
//   - Embeds each chunk and upserts it with its source metadata
//
// Chunks of one page are always processed in order. Pages run one at a time
// unless WithConcurrency is set, in which case they are spread over a worker
// pool. By default the first failing page stops the run.
package ingestion
