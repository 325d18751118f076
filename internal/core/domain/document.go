package domain

import "time"

// Document represents an uploaded file that can be asked questions about.
// A document is immutable once registered and identifies exactly one
// vector namespace (the namespace key is the document ID).
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID is the user that uploaded the document.
	OwnerID string

	// SourceURL is where the blob can be downloaded from
	// (http(s)://, s3:// or file://).
	SourceURL string

	// Title is the human-readable title.
	Title string

	// MIMEType is the content type of the blob (e.g., "application/pdf").
	// Empty means it is detected from the fetched bytes.
	MIMEType string

	// CreatedAt is when the document was registered.
	CreatedAt time.Time
}

// Chunk is a bounded passage of document text produced for embedding.
// Chunks are ephemeral: only their text and embedding are persisted,
// inside the document's namespace.
type Chunk struct {
	// ID is deterministic for a (document, position) pair so that
	// re-ingesting a document overwrites rather than duplicates.
	ID string

	// DocumentID links to the source Document.
	DocumentID string

	// Text is the passage content.
	Text string

	// Position is the ordinal position within the document (0-based).
	Position int

	// Start is the byte offset of the passage in the extracted text.
	Start int

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any
}
