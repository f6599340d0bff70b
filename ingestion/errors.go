package ingestion

import "errors"

var (
	// ErrScraperRequired is returned when a scraper is not provided.
	ErrScraperRequired = errors.New("scraper required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrScrapeFailed is returned when a page cannot be scraped or has no content.
	ErrScrapeFailed = errors.New("scrape failed")

	// ErrNoSources is returned when a sources file lists no URLs.
	ErrNoSources = errors.New("no sources listed")

	// ErrInvalidOption is returned when an option value is out of range.
	ErrInvalidOption = errors.New("invalid option")
)
