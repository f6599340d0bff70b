// Package server exposes the chat completion pipeline over HTTP.
//
// Routes:
//
//	POST /api/chat/completions  augmented chat completion, buffered or streamed
//	GET  /api/health            liveness probe
//
// Any other method or path answers 404 {"message":"Not Found"}.
//
// Streamed responses are written as "data: <json>\n\n" frames followed by a
// "data: [Done]\n\n" terminator. An upstream failure mid-stream aborts the
// connection without a terminator.
package server
