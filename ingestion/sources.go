package ingestion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSources are the pages ingested when no sources file is given.
var DefaultSources = []string{
	"https://www.aven.com/support",
	"https://www.aven.com",
	"https://www.aven.com/education",
	"https://www.aven.com/about",
}

type sourcesFile struct {
	Sources []string `yaml:"sources"`
}

// LoadSources reads a YAML file of the form:
//
//	sources:
//	  - https://example.com
//	  - https://example.com/about
//
// Blank entries are dropped. Order is preserved.
func LoadSources(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources: %w", err)
	}
	return parseSources(data)
}

func parseSources(data []byte) ([]string, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing sources: %w", err)
	}

	sources := make([]string, 0, len(file.Sources))
	for _, s := range file.Sources {
		if s = strings.TrimSpace(s); s != "" {
			sources = append(sources, s)
		}
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	return sources, nil
}
