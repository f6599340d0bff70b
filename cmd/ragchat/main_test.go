package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/ingestion"
	"github.com/poiesic/ragchat/scrape/firecrawl"
	"github.com/poiesic/ragchat/storage/pinecone"
)

var secretEnv = []string{"GEMINI_API_KEY", "PINECONE_API_KEY", "FIRECRAWL_API_KEY"}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func quietApp() *cli.App {
	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	return app
}

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestGlobalFlags(t *testing.T) {
	t.Run("invalid log level", func(t *testing.T) {
		err := quietApp().Run([]string{"ragchat", "--log-level", "verbose", "serve"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("invalid log format", func(t *testing.T) {
		err := quietApp().Run([]string{"ragchat", "--log-format", "xml", "serve"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})
}

func TestSetupLogger(t *testing.T) {
	for _, args := range [][]string{
		{"ragchat", "-l", "DEBUG"},
		{"ragchat", "--log-level", "warn", "--log-format", "json"},
		{"ragchat", "--log-level", "error"},
	} {
		app := quietApp()
		app.Action = func(c *cli.Context) error { return nil }
		assert.NoError(t, app.Run(args), "%v", args)
	}
}

func TestServeRequiresSecrets(t *testing.T) {
	unsetEnv(t, secretEnv...)

	err := quietApp().Run([]string{"ragchat", "serve"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini-api-key")
	assert.Contains(t, err.Error(), "pinecone-api-key")
}

func TestIngestRequiresFirecrawlKey(t *testing.T) {
	unsetEnv(t, secretEnv...)
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("PINECONE_API_KEY", "p")

	err := quietApp().Run([]string{"ragchat", "ingest"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firecrawl-api-key")
}

func TestIngestInvalidSources(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("PINECONE_API_KEY", "p")
	t.Setenv("FIRECRAWL_API_KEY", "f")

	err := quietApp().Run([]string{"ragchat", "ingest", "--sources", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading sources")
}

func TestCommandDefaults(t *testing.T) {
	app := newApp()

	serve := findCommand(t, app, "serve")
	var addr *cli.StringFlag
	for _, flag := range serve.Flags {
		if f, ok := flag.(*cli.StringFlag); ok && f.Name == "addr" {
			addr = f
		}
	}
	require.NotNil(t, addr)
	assert.Equal(t, ":3000", addr.Value)
	assert.Equal(t, []string{"LISTEN_ADDR"}, addr.EnvVars)

	ingest := findCommand(t, app, "ingest")
	ints := map[string]int{}
	for _, flag := range ingest.Flags {
		if f, ok := flag.(*cli.IntFlag); ok {
			ints[f.Name] = f.Value
		}
	}
	assert.Equal(t, map[string]int{"chunk-size": 2000, "concurrency": 1}, ints)
}

func TestConfigFromFlags(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("PINECONE_API_KEY", "pc-key")
	t.Setenv("FIRECRAWL_API_KEY", "fc-key")
	t.Setenv("AI_BASE_URL", "http://localhost:11434/v1/")
	t.Setenv("CHAT_MODEL", "llama3")
	t.Setenv("PINECONE_NAMESPACE", "docs")
	t.Setenv("PINECONE_INDEX_HOST", "docs-abc.svc.pinecone.io")

	var (
		aiCfg *ai.Config
		pcCfg *pinecone.Config
		fcCfg *firecrawl.Config
		flags []cli.Flag
	)
	flags = append(flags, aiFlags()...)
	flags = append(flags, pineconeFlags()...)
	flags = append(flags, firecrawlFlags()...)

	app := &cli.App{
		Name:      "ragchat",
		Flags:     flags,
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Action: func(c *cli.Context) error {
			aiCfg = aiConfigFromFlags(c)
			pcCfg = pineconeConfigFromFlags(c)
			fcCfg = firecrawlConfigFromFlags(c)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"ragchat", "--ai-timeout", "30s"}))

	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "gemini-key", aiCfg.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", aiCfg.ChatHost)
	assert.Equal(t, "http://localhost:11434/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, "llama3", aiCfg.ChatModel)
	assert.Equal(t, "gemini-embedding-001", aiCfg.EmbeddingModel)
	assert.Equal(t, 30*time.Second, aiCfg.Timeout)

	require.NoError(t, pcCfg.Validate())
	assert.Equal(t, "pc-key", pcCfg.APIKey)
	assert.Equal(t, "company-data", pcCfg.IndexName)
	assert.Equal(t, "docs", pcCfg.Namespace)
	assert.Equal(t, "https://docs-abc.svc.pinecone.io", pcCfg.Host)

	require.NoError(t, fcCfg.Validate())
	assert.Equal(t, "fc-key", fcCfg.APIKey)
	assert.True(t, fcCfg.OnlyMainContent)
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &ingestion.Report{
		Pages:    3,
		Chunks:   7,
		Elapsed:  1500 * time.Millisecond,
		Failures: []ingestion.PageFailure{{URL: "https://www.aven.com/about", Err: errors.New("scrape failed")}},
	})
	assert.Equal(t, "Ingested 3 pages (7 chunks) in 1.5s\n  failed: https://www.aven.com/about: scrape failed\n", buf.String())

	buf.Reset()
	printReport(&buf, nil)
	assert.Empty(t, buf.String())
}
