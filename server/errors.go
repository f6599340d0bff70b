package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/ragchat/ai"
	"github.com/poiesic/ragchat/chat"
	"github.com/poiesic/ragchat/core"
)

// failureKind tags how a pipeline error is reported to the caller.
type failureKind int

const (
	// kindValidation covers malformed or incomplete client input.
	kindValidation failureKind = iota
	// kindUpstream covers typed API errors from the completion service.
	kindUpstream
	// kindMissingContent covers upstream calls that succeeded without output.
	kindMissingContent
	// kindInternal covers everything else.
	kindInternal
)

func (k failureKind) String() string {
	switch k {
	case kindValidation:
		return "validation"
	case kindUpstream:
		return "upstream"
	case kindMissingContent:
		return "missing_content"
	default:
		return "internal"
	}
}

const (
	msgInternal       = "Internal Server Error"
	msgEmptyRewrite   = "Failed to generate modified prompt"
	msgEmptyEmbedding = "Failed to generate query embedding"
	upstreamMsgPrefix = "API error: "
)

// failure is the response-ready form of a pipeline error.
type failure struct {
	kind    failureKind
	status  int
	message string
	code    any

	// upstreamBody is the raw upstream response, kept for logging only.
	upstreamBody string
}

// classify maps an error onto its failure. The order of checks matters: a
// typed API error wins over anything it might wrap.
func classify(err error) failure {
	if apiErr, ok := ai.AsAPIError(err); ok {
		return failure{
			kind:         kindUpstream,
			status:       apiErr.Status(http.StatusInternalServerError),
			message:      upstreamMsgPrefix + apiErr.Message,
			code:         apiErr.Code,
			upstreamBody: apiErr.Body,
		}
	}

	switch {
	case errors.Is(err, core.ErrInvalidChatRequest):
		return failure{kind: kindValidation, status: http.StatusBadRequest, message: core.ClientMessage(err)}
	case errors.Is(err, ai.ErrInvalidParams):
		return failure{kind: kindValidation, status: http.StatusBadRequest, message: err.Error()}
	case errors.Is(err, chat.ErrEmptyRewrite):
		return failure{kind: kindMissingContent, status: http.StatusBadGateway, message: msgEmptyRewrite}
	case errors.Is(err, ai.ErrEmptyEmbedding):
		return failure{kind: kindMissingContent, status: http.StatusBadGateway, message: msgEmptyEmbedding}
	}

	message := msgInternal
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return failure{kind: kindInternal, status: http.StatusInternalServerError, message: message}
}

// body renders the JSON payload for the failure.
func (f failure) body() gin.H {
	h := gin.H{"error": f.message}
	if f.kind == kindUpstream {
		h["code"] = f.code
	}
	return h
}
