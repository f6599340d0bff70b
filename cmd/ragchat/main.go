// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/ragchat"
	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/chunk"
	"github.com/poiesic/ragchat/ingestion"
	"github.com/poiesic/ragchat/scrape/firecrawl"
	"github.com/poiesic/ragchat/server"
	"github.com/poiesic/ragchat/storage/pinecone"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ragchat",
		Usage: "Retrieval-augmented chat completion service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
				Value: "text",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the chat completion API",
				Action: serveCommand,
				Flags: append(append([]cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   server.DefaultAddr,
						EnvVars: []string{"LISTEN_ADDR"},
					},
					&cli.DurationFlag{
						Name:  "shutdown-timeout",
						Usage: "Time allowed for in-flight requests on shutdown",
						Value: server.DefaultShutdownTimeout,
					},
				}, aiFlags()...), pineconeFlags()...),
			},
			{
				Name:   "ingest",
				Usage:  "Scrape source pages and load them into the vector index",
				Action: ingestCommand,
				Flags: append(append(append([]cli.Flag{
					&cli.StringFlag{
						Name:    "sources",
						Aliases: []string{"s"},
						Usage:   "YAML file listing source URLs (defaults to the built-in list)",
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk length in characters",
						Value: chunk.DefaultSize,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of pages processed at once",
						Value: 1,
					},
					&cli.BoolFlag{
						Name:  "continue-on-error",
						Usage: "Keep going when a page fails",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Print progress to stderr",
					},
				}, aiFlags()...), pineconeFlags()...), firecrawlFlags()...),
			},
		},
	}
}

func aiFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "gemini-api-key",
			Usage:    "API key for the embedding and chat service",
			EnvVars:  []string{"GEMINI_API_KEY"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "ai-base-url",
			Usage:   "OpenAI-compatible base URL for embeddings and chat",
			Value:   ai.DefaultHost,
			EnvVars: []string{"AI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   ai.DefaultConfig().EmbeddingModel,
			EnvVars: []string{"EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "chat-model",
			Usage:   "Chat model name",
			Value:   ai.DefaultConfig().ChatModel,
			EnvVars: []string{"CHAT_MODEL"},
		},
		&cli.DurationFlag{
			Name:  "ai-timeout",
			Usage: "Timeout for each embedding or chat call (0 for none)",
		},
	}
}

func pineconeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "pinecone-api-key",
			Usage:    "Pinecone API key",
			EnvVars:  []string{"PINECONE_API_KEY"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "pinecone-index",
			Usage:   "Pinecone index name",
			Value:   pinecone.DefaultIndexName,
			EnvVars: []string{"PINECONE_INDEX"},
		},
		&cli.StringFlag{
			Name:    "pinecone-namespace",
			Usage:   "Pinecone namespace",
			Value:   pinecone.DefaultNamespace,
			EnvVars: []string{"PINECONE_NAMESPACE"},
		},
		&cli.StringFlag{
			Name:    "pinecone-index-host",
			Usage:   "Index data plane host (skips the control plane lookup)",
			EnvVars: []string{"PINECONE_INDEX_HOST"},
		},
	}
}

func firecrawlFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "firecrawl-api-key",
			Usage:    "Firecrawl API key",
			EnvVars:  []string{"FIRECRAWL_API_KEY"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "firecrawl-url",
			Usage:   "Firecrawl API base URL",
			Value:   firecrawl.DefaultBaseURL,
			EnvVars: []string{"FIRECRAWL_URL"},
		},
	}
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithAPIKey(c.String("gemini-api-key")),
		ai.WithHost(c.String("ai-base-url")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithTimeout(c.Duration("ai-timeout")),
	)
}

func pineconeConfigFromFlags(c *cli.Context) *pinecone.Config {
	cfg := pinecone.DefaultConfig()
	cfg.APIKey = c.String("pinecone-api-key")
	cfg.IndexName = c.String("pinecone-index")
	cfg.Namespace = c.String("pinecone-namespace")
	cfg.Host = c.String("pinecone-index-host")
	return cfg
}

func firecrawlConfigFromFlags(c *cli.Context) *firecrawl.Config {
	cfg := firecrawl.DefaultConfig()
	cfg.APIKey = c.String("firecrawl-api-key")
	cfg.BaseURL = c.String("firecrawl-url")
	return cfg
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signalContext(c.Context)
	defer stop()

	services, err := ragchat.NewServices(ctx,
		ragchat.WithAIConfig(aiConfigFromFlags(c)),
		ragchat.WithIndexConfig(pineconeConfigFromFlags(c)),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	augmenter, err := services.NewAugmenter(nil)
	if err != nil {
		return fmt.Errorf("failed to create augmenter: %w", err)
	}

	srv, err := server.New(&server.Config{
		Addr:              c.String("addr"),
		ShutdownTimeout:   c.Duration("shutdown-timeout"),
		ReadHeaderTimeout: server.DefaultReadHeaderTimeout,
	}, augmenter)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signalContext(c.Context)
	defer stop()

	sources := ingestion.DefaultSources
	if path := c.String("sources"); path != "" {
		loaded, err := ingestion.LoadSources(path)
		if err != nil {
			return err
		}
		sources = loaded
	}

	services, err := ragchat.NewServices(ctx,
		ragchat.WithAIConfig(aiConfigFromFlags(c)),
		ragchat.WithIndexConfig(pineconeConfigFromFlags(c)),
		ragchat.WithScraperConfig(firecrawlConfigFromFlags(c)),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	opts := []ingestion.Option{
		ingestion.WithChunkSize(c.Int("chunk-size")),
		ingestion.WithConcurrency(c.Int("concurrency")),
		ingestion.WithContinueOnError(c.Bool("continue-on-error")),
	}
	if c.Bool("progress") {
		opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
	}

	pipeline, err := services.NewIngestionPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	slog.Info("starting ingestion", "sources", len(sources))
	report, err := pipeline.Run(ctx, sources)
	printReport(c.App.Writer, report)
	return err
}

func printReport(w io.Writer, report *ingestion.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "Ingested %d pages (%d chunks) in %s\n",
		report.Pages, report.Chunks, report.Elapsed.Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "  failed: %s: %v\n", f.URL, f.Err)
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level charmlog.Level
	switch levelStr {
	case "debug":
		level = charmlog.DebugLevel
	case "info":
		level = charmlog.InfoLevel
	case "warn":
		level = charmlog.WarnLevel
	case "error":
		level = charmlog.ErrorLevel
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	var formatter charmlog.Formatter
	switch format := strings.ToLower(c.String("log-format")); format {
	case "text":
		formatter = charmlog.TextFormatter
	case "json":
		formatter = charmlog.JSONFormatter
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json", format)
	}

	errWriter := c.App.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	handler := charmlog.NewWithOptions(errWriter, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
		Formatter:       formatter,
	})
	slog.SetDefault(slog.New(handler))

	return nil
}
