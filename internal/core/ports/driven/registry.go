package driven

import (
	"context"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches
// based on MIME type.
type NormaliserRegistry interface {
	// Normalise extracts text using the best matching normaliser.
	// An empty MIME type is detected from the content.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
