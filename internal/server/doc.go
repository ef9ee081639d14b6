// Package server implements the Model Context Protocol tool server.
//
// A Server owns the handshake state and the tool set. Handle processes a
// single JSON-RPC message and is shared by both bindings: ServeStdio reads
// newline-delimited messages from a stream, and NewHTTPHandler exposes the
// same dispatch over HTTP with gin.
//
// Tool failures such as an unknown operation or a missing template
// variable are returned as tool results with isError set, so the model
// sees them. Protocol failures (malformed JSON, unknown methods, calls
// before initialize, invalid params) become JSON-RPC error responses.
package server
