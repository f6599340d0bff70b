package firecrawl

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScraper(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "fc-key"
	cfg.BaseURL = srv.URL + "/"
	c, err := newClient(cfg)
	require.NoError(t, err)
	return c
}

func TestScrape(t *testing.T) {
	var got scrapeRequest
	c := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"data":{"markdown":"# Support\n\nCall us.","metadata":{"title":"Support"}}}`)
	})

	result, err := c.Scrape(t.Context(), "https://www.aven.com/support")
	require.NoError(t, err)

	assert.Equal(t, scrapeRequest{URL: "https://www.aven.com/support", Formats: []string{"markdown"}, OnlyMainContent: true}, got)
	assert.True(t, result.Success)
	assert.Equal(t, "# Support\n\nCall us.", result.Markdown)
	assert.True(t, result.Usable())
}

func TestScrape_ReportedFailure(t *testing.T) {
	c := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":false,"error":"page blocked"}`)
	})

	result, err := c.Scrape(t.Context(), "https://www.aven.com")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "page blocked", result.Error)
	assert.False(t, result.Usable())
}

func TestScrape_ErrorStatus(t *testing.T) {
	c := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = io.WriteString(w, `{"success":false,"error":"Insufficient credits"}`)
	})

	_, err := c.Scrape(t.Context(), "https://www.aven.com")
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "402")
	assert.Contains(t, err.Error(), "Insufficient credits")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")

	cfg.APIKey = "k"
	cfg.BaseURL = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BaseURL")
}
