package pinecone

import (
	"errors"
	"strings"
	"time"
)

// Defaults matching the dataset the chat endpoint reads from.
const (
	DefaultIndexName       = "company-data"
	DefaultNamespace       = "aven"
	DefaultControlPlaneURL = "https://api.pinecone.io"
	DefaultAPIVersion      = "2025-01"
)

// Config holds connection settings for a Pinecone index.
type Config struct {
	// APIKey authenticates against both control and data planes.
	APIKey string

	// IndexName selects the index to resolve when Host is empty.
	IndexName string

	// Namespace partitions the index. All reads and writes use it.
	Namespace string

	// Host is the index data plane host, e.g. "company-data-abc123.svc.pinecone.io".
	// When empty it is looked up from the control plane by IndexName.
	Host string

	// ControlPlaneURL is the base URL of the index management API.
	ControlPlaneURL string

	// APIVersion is sent as X-Pinecone-API-Version.
	APIVersion string

	// Timeout bounds each HTTP call. Zero means no timeout.
	Timeout time.Duration
}

// DefaultConfig returns a Config for the default index and namespace.
func DefaultConfig() *Config {
	return &Config{
		IndexName:       DefaultIndexName,
		Namespace:       DefaultNamespace,
		ControlPlaneURL: DefaultControlPlaneURL,
		APIVersion:      DefaultAPIVersion,
	}
}

// Normalize fills a scheme on bare hosts and trims trailing slashes.
func (c *Config) Normalize() {
	c.Host = normalizeHost(c.Host)
	c.ControlPlaneURL = strings.TrimRight(strings.TrimSpace(c.ControlPlaneURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	c.Normalize()

	if c.APIKey == "" {
		return errors.New("pinecone config: APIKey is required")
	}
	if c.Host == "" && c.IndexName == "" {
		return errors.New("pinecone config: Host or IndexName is required")
	}
	if c.Host == "" && c.ControlPlaneURL == "" {
		return errors.New("pinecone config: ControlPlaneURL is required to resolve the index host")
	}
	if c.APIVersion == "" {
		return errors.New("pinecone config: APIVersion is required")
	}
	if c.Timeout < 0 {
		return errors.New("pinecone config: Timeout cannot be negative")
	}
	return nil
}

func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return ""
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host
}
