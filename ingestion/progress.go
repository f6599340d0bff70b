package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progressTracker reports page-level progress of an ingestion run.
type progressTracker struct {
	writer    io.Writer
	total     int
	current   int
	chunks    int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

func newProgressTracker(writer io.Writer, total int) *progressTracker {
	return &progressTracker{
		writer: writer,
		total:  total,
	}
}

func (p *progressTracker) start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.chunks = 0
}

// pageDone records one finished page and the chunks it produced.
func (p *progressTracker) pageDone(chunks int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = min(p.current+1, p.total)
	p.chunks += chunks
	p.report()
}

// finish prints the final line. Pages skipped after an abort are not counted.
func (p *progressTracker) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// report prints the current progress. Must be called with lock held.
func (p *progressTracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.chunks) / elapsed.Seconds()
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rPages: %d/%d (%.1f%%) - %d chunks, %.1f chunks/s",
		p.current, p.total, percentage, p.chunks, rate)
}
