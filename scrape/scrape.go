// Package scrape defines the web scraping abstraction used by ingestion.
package scrape

import (
	"context"
	"errors"
)

// ErrNoContent is returned when a scrape reports success but yields no markdown.
var ErrNoContent = errors.New("failed to scrape content or no markdown found")

// Result is the outcome of scraping one page.
type Result struct {
	// Success is the service's own verdict on the scrape.
	Success bool

	// Markdown is the rendered main content of the page.
	Markdown string

	// Error carries the service's failure message, if any.
	Error string
}

// Usable reports whether the result carries content worth ingesting.
func (r *Result) Usable() bool {
	return r != nil && r.Success && r.Markdown != ""
}

// Scraper fetches the rendered main content of a page.
// Implementations must be thread-safe for concurrent use.
type Scraper interface {
	// Scrape fetches url. Transport and status failures are returned as
	// errors; a service-reported failure comes back as a Result with
	// Success false.
	Scrape(ctx context.Context, url string) (*Result, error)
}
