package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/ragchat/ai"
)

const doneFrame = "data: [Done]\n\n"

type streamEvent struct {
	chunk *ai.CompletionChunk
	err   error
}

// pump receives from stream on its own goroutine until EOF, an error, or ctx
// cancellation. The stream is closed exactly once, before the channel closes.
func pump(ctx context.Context, stream ai.CompletionStream) <-chan streamEvent {
	out := make(chan streamEvent)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			ev := streamEvent{chunk: chunk, err: err}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

func drain(events <-chan streamEvent) {
	for range events {
	}
}

// writeStream relays fragments as "data:" frames. An upstream error after the
// headers are out aborts the connection so the client sees a truncated body
// rather than a terminator.
func (s *Server) writeStream(c *gin.Context, stream ai.CompletionStream) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := pump(ctx, stream)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	frames := 0
	for ev := range events {
		if ev.err != nil {
			s.logger.Error("completion stream failed",
				"err", ev.err,
				"frames", frames,
				"request_id", c.GetString(requestIDKey))
			cancel()
			drain(events)
			panic(http.ErrAbortHandler)
		}

		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", ev.chunk.Raw); err != nil {
			s.logger.Debug("client went away", "err", err, "frames", frames)
			cancel()
			drain(events)
			return
		}
		c.Writer.Flush()
		frames++
	}

	if ctx.Err() != nil {
		s.logger.Debug("stream cancelled", "frames", frames)
		return
	}
	_, _ = io.WriteString(c.Writer, doneFrame)
	c.Writer.Flush()
}
