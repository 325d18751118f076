package domain

// RawDocument represents opaque bytes fetched from blob storage.
// It is the input to text extraction.
type RawDocument struct {
	// DocumentID links to the Document the bytes belong to.
	DocumentID string

	// URI is the original location of the blob.
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// ExtractedText is the plain text recovered from a RawDocument.
type ExtractedText struct {
	// Title is a best-effort title (first short line or file name).
	Title string

	// Text is the full decoded text of all pages.
	Text string

	// MIMEType is the type the extractor handled.
	MIMEType string
}
