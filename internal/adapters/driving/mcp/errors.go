// Package mcp provides an MCP (Model Context Protocol) server adapter for pdfchat.
// It lets AI assistants register documents and ask questions about them.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")

// ErrMissingDocumentService is returned when the document service is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service is required")
