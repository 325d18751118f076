package driven

import "context"

// BlobFetcher downloads a document's bytes from blob storage.
// Any non-success response is an error; callers classify it as
// domain.ErrSourceUnavailable.
type BlobFetcher interface {
	// Fetch returns the content at url and its reported MIME type (may be empty).
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}
