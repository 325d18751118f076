package driven

import "github.com/custodia-labs/pdfchat/internal/core/domain"

// TextSplitter splits extracted document text into overlapping chunks.
type TextSplitter interface {
	// Split returns ordered, non-empty chunks with strictly increasing positions.
	Split(documentID, text string) []domain.Chunk
}
