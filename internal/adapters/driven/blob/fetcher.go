// Package blob fetches document bytes from blob storage. A Router picks the
// fetcher for a URL's scheme: http(s), s3 or file.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// ErrUnsupportedScheme is returned for URLs no fetcher handles.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// DefaultMaxBytes caps a single download.
const DefaultMaxBytes = 100 << 20

// Ensure Router implements the interface.
var _ driven.BlobFetcher = (*Router)(nil)

// Router dispatches Fetch calls by URL scheme.
type Router struct {
	fetchers map[string]driven.BlobFetcher
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{fetchers: make(map[string]driven.BlobFetcher)}
}

// Handle registers f for the given schemes.
func (r *Router) Handle(f driven.BlobFetcher, schemes ...string) *Router {
	for _, s := range schemes {
		r.fetchers[strings.ToLower(s)] = f
	}
	return r
}

// Fetch implements driven.BlobFetcher.
func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %q: %w", rawURL, err)
	}
	f, ok := r.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return f.Fetch(ctx, rawURL)
}

// Defaults routes http(s) through client and file URLs and bare paths to disk.
func Defaults(client *http.Client, maxBytes int64) *Router {
	return NewRouter().
		Handle(NewHTTPFetcher(client, maxBytes), "http", "https").
		Handle(NewFileFetcher(maxBytes), "file", "")
}
