// Package firecrawl implements scrape.Scraper with the Firecrawl REST API.
package firecrawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/poiesic/ragchat/scrape"
)

// DefaultBaseURL is the hosted Firecrawl API.
const DefaultBaseURL = "https://api.firecrawl.dev"

// ErrRequestFailed indicates the service answered with an error status.
var ErrRequestFailed = errors.New("firecrawl request failed")

// Config holds Firecrawl connection settings.
type Config struct {
	APIKey  string
	BaseURL string

	// OnlyMainContent strips navigation, headers and footers.
	OnlyMainContent bool

	// Timeout bounds each HTTP call. Zero means no timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config for the hosted API scraping main content only.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         DefaultBaseURL,
		OnlyMainContent: true,
	}
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")

	if c.APIKey == "" {
		return errors.New("firecrawl config: APIKey is required")
	}
	if c.BaseURL == "" {
		return errors.New("firecrawl config: BaseURL is required")
	}
	if c.Timeout < 0 {
		return errors.New("firecrawl config: Timeout cannot be negative")
	}
	return nil
}

// Client is a Firecrawl scraper.
type Client struct {
	client          *resty.Client
	onlyMainContent bool
	logger          *slog.Logger
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// NewScraper creates a Firecrawl-backed scraper.
//
// Returns scrape.Scraper interface to enforce abstraction.
func NewScraper(cfg *Config) (scrape.Scraper, error) {
	return newClient(cfg)
}

func newClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)

	return &Client{
		client:          client,
		onlyMainContent: cfg.OnlyMainContent,
		logger:          slog.Default().With("component", "firecrawl"),
	}, nil
}

// Scrape requests the markdown rendering of url.
func (c *Client) Scrape(ctx context.Context, url string) (*scrape.Result, error) {
	c.logger.Debug("scraping", "url", url)

	var out scrapeResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(scrapeRequest{
			URL:             url,
			Formats:         []string{"markdown"},
			OnlyMainContent: c.onlyMainContent,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/v1/scrape")
	if err != nil {
		c.logger.Error("scrape request failed", "url", url, "err", err)
		return nil, fmt.Errorf("scraping %s: %w", url, err)
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = resp.String()
		}
		c.logger.Error("scrape rejected", "url", url, "status", resp.StatusCode(), "error", msg)
		return nil, fmt.Errorf("%w: %s: status %d: %s", ErrRequestFailed, url, resp.StatusCode(), msg)
	}

	c.logger.Debug("scraped", "url", url, "success", out.Success, "length", len(out.Data.Markdown))
	return &scrape.Result{
		Success:  out.Success,
		Markdown: out.Data.Markdown,
		Error:    out.Error,
	}, nil
}
