// Package mcp provides an MCP (Model Context Protocol) server adapter for
// groundwork. It lets AI assistants ask grounded questions and retrieve
// evidence from the indexed corpus.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")
