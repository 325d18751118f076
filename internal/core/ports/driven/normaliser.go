package driven

import (
	"context"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// Normaliser extracts plain text from fetched document bytes.
// Each normaliser handles specific MIME types (e.g., PDF, plain text).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the text of every page.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error)
}
