package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/chunk"
	"github.com/poiesic/ragchat/core"
	"github.com/poiesic/ragchat/scrape"
	"github.com/poiesic/ragchat/storage"
)

// Pipeline scrapes, chunks, embeds and stores web pages.
type Pipeline struct {
	scraper         scrape.Scraper
	embedder        ai.Embedder
	index           storage.VectorIndex
	chunkSize       int
	category        string
	concurrency     int
	continueOnError bool
	progress        io.Writer
	now             func() time.Time
	logger          *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunkSize sets the maximum chunk length in characters.
// Default is chunk.DefaultSize.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOption, size)
		}
		p.chunkSize = size
		return nil
	}
}

// WithCategory sets the category stored with every record.
// Default is core.DefaultCategory.
func WithCategory(category string) Option {
	return func(p *Pipeline) error {
		if category == "" {
			return fmt.Errorf("%w: category must not be empty", ErrInvalidOption)
		}
		p.category = category
		return nil
	}
}

// WithConcurrency sets how many pages are processed at once.
// Default is 1.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			n = 1
		}
		p.concurrency = n
		return nil
	}
}

// WithContinueOnError keeps a run going after a page fails. Failures are
// collected in the Report instead of stopping the run.
func WithContinueOnError(enabled bool) Option {
	return func(p *Pipeline) error {
		p.continueOnError = enabled
		return nil
	}
}

// WithProgress writes a progress line to w as pages complete.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithClock sets the time source used for record identity keys.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now == nil {
			now = time.Now
		}
		p.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(scraper scrape.Scraper, embedder ai.Embedder, index storage.VectorIndex, opts ...Option) (*Pipeline, error) {
	if scraper == nil {
		return nil, ErrScraperRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	p := &Pipeline{
		scraper:     scraper,
		embedder:    embedder,
		index:       index,
		chunkSize:   chunk.DefaultSize,
		category:    core.DefaultCategory,
		concurrency: 1,
		now:         time.Now,
		logger:      slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// PageFailure records why one page could not be ingested.
type PageFailure struct {
	URL string
	Err error
}

// Report summarizes a Run.
type Report struct {
	Pages    int
	Chunks   int
	Failures []PageFailure
	Elapsed  time.Duration
}

// Run ingests every URL. Unless WithContinueOnError is set, the first failure
// cancels the remaining pages and is returned wrapped with its URL. The
// report is returned either way.
func (p *Pipeline) Run(ctx context.Context, urls []string) (*Report, error) {
	start := time.Now()
	report := &Report{}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	pool, err := ants.NewPool(p.concurrency)
	if err != nil {
		return report, err
	}
	defer pool.Release()

	var tracker *progressTracker
	if p.progress != nil {
		tracker = newProgressTracker(p.progress, len(urls))
		tracker.start()
		defer tracker.finish()
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)

	for _, url := range urls {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}

			count, err := p.IngestURL(ctx, url)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Pages interrupted by an earlier failure are not failures themselves.
				if firstErr != nil && errors.Is(err, context.Canceled) {
					return
				}
				report.Failures = append(report.Failures, PageFailure{URL: url, Err: err})
				if !p.continueOnError && firstErr == nil {
					firstErr = fmt.Errorf("ingesting %s: %w", url, err)
					cancel()
				}
				return
			}
			report.Pages++
			report.Chunks += count
			if tracker != nil {
				tracker.pageDone(count)
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("scheduling %s: %w", url, submitErr)
			}
			mu.Unlock()
			cancel()
			break
		}
	}
	wg.Wait()

	report.Elapsed = time.Since(start)
	p.logger.Info("ingestion finished",
		"pages", report.Pages,
		"chunks", report.Chunks,
		"failures", len(report.Failures),
		"elapsed", report.Elapsed)

	if firstErr != nil {
		return report, firstErr
	}
	if err := parent.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// IngestURL scrapes url and ingests its content. It returns the number of
// chunks stored.
func (p *Pipeline) IngestURL(ctx context.Context, url string) (int, error) {
	p.logger.Info("scraping page", "url", url)

	result, err := p.scraper.Scrape(ctx, url)
	if err != nil {
		p.logger.Error("scrape failed", "url", url, "err", err)
		return 0, fmt.Errorf("%w: %w", ErrScrapeFailed, err)
	}
	if !result.Usable() {
		reason := scrape.ErrNoContent.Error()
		if result != nil && result.Error != "" {
			reason = result.Error
		}
		p.logger.Error("scrape returned no content", "url", url, "reason", reason)
		return 0, fmt.Errorf("%w: %w: %s", ErrScrapeFailed, scrape.ErrNoContent, reason)
	}

	return p.IngestDocument(ctx, &core.Document{URL: url, Content: result.Markdown})
}

// IngestDocument chunks doc and stores one record per chunk, in order. The
// first failing chunk stops the document; earlier chunks stay stored.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *core.Document) (int, error) {
	if doc == nil || doc.URL == "" {
		return 0, core.ErrEmptyURL
	}

	texts := chunk.Split(doc.Content, p.chunkSize)
	p.logger.Debug("split document", "url", doc.URL, "chunks", len(texts))

	stored := 0
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		c := core.Chunk{URL: doc.URL, Index: i, Text: text}
		if err := core.ValidateChunk(&c); err != nil {
			return stored, err
		}

		vector, err := p.embedder.EmbedText(ctx, text)
		if err != nil {
			p.logger.Error("embedding chunk failed", "url", doc.URL, "chunk", i, "err", err)
			return stored, fmt.Errorf("embedding chunk %d: %w", i, err)
		}
		if len(vector) == 0 {
			return stored, fmt.Errorf("embedding chunk %d: %w", i, ai.ErrEmptyEmbedding)
		}

		record := core.NewEmbeddingRecord(c, vector, p.category, p.now())
		if _, err := p.index.Upsert(ctx, record); err != nil {
			p.logger.Error("upserting chunk failed", "url", doc.URL, "chunk", i, "err", err)
			return stored, fmt.Errorf("upserting chunk %d: %w", i, err)
		}
		stored++
		p.logger.Debug("stored chunk", "id", record.ID, "length", len(text))
	}

	p.logger.Info("ingested page", "url", doc.URL, "chunks", stored)
	return stored, nil
}
