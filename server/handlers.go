package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/ragchat/core"
)

func (s *Server) handleChatCompletions(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, fmt.Errorf("%w: %w: %v", core.ErrInvalidChatRequest, core.ErrMalformedRequest, err))
		return
	}

	req, err := core.ParseChatRequest(body)
	if err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	if !req.Stream {
		completion, err := s.completions.Complete(ctx, req)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", completion.Raw)
		return
	}

	stream, err := s.completions.Stream(ctx, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.writeStream(c, stream)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
}

// fail logs err with its classification and writes the JSON error response.
func (s *Server) fail(c *gin.Context, err error) {
	f := classify(err)
	attrs := []any{
		"err", err,
		"kind", f.kind.String(),
		"status", f.status,
		"request_id", c.GetString(requestIDKey),
	}
	if f.code != nil {
		attrs = append(attrs, "code", f.code)
	}
	if f.upstreamBody != "" {
		attrs = append(attrs, "response", f.upstreamBody)
	}

	if f.kind == kindValidation {
		s.logger.Warn("rejected chat request", attrs...)
	} else {
		s.logger.Error("chat request failed", attrs...)
	}
	c.AbortWithStatusJSON(f.status, f.body())
}
