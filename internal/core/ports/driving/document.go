package driving

import (
	"context"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// DocumentService registers and lists the current user's documents.
type DocumentService interface {
	// Register records a document reachable at sourceURL for the current user.
	// An empty title is derived from the URL.
	Register(ctx context.Context, req RegisterDocumentRequest) (*domain.Document, error)

	// Get retrieves one of the current user's documents.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns the current user's documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)
}

// RegisterDocumentRequest describes a document to register.
type RegisterDocumentRequest struct {
	// ID is optional; a random ID is generated when empty.
	ID string

	// SourceURL is where the bytes live (http, https, s3 or file scheme).
	SourceURL string

	// Title is optional.
	Title string

	// MIMEType is optional; it is detected at extraction time when empty.
	MIMEType string
}
