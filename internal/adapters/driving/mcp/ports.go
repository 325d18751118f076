package mcp

import (
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Chat answers questions and exposes conversation history.
	Chat driving.ChatService

	// Document registers and lists documents.
	Document driving.DocumentService

	// Indexing reports chunk counts after ingestion. Optional.
	Indexing driving.IndexingService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
