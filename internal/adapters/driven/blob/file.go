package blob

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// FileFetcher reads file:// URLs and bare paths from the local disk.
type FileFetcher struct {
	maxBytes int64
}

// NewFileFetcher creates a fetcher; maxBytes <= 0 means DefaultMaxBytes.
func NewFileFetcher(maxBytes int64) *FileFetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &FileFetcher{maxBytes: maxBytes}
}

// Fetch reads the file. The MIME type comes from the extension.
func (f *FileFetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	path, err := LocalPath(uri)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > f.maxBytes {
		return nil, "", fmt.Errorf("%s is larger than %d bytes", path, f.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), nil
}

// LocalPath converts a file:// URI to a path. Bare paths pass through unchanged.
func LocalPath(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", uri, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("remote file host %q not supported", u.Host)
	}
	return filepath.FromSlash(u.Path), nil
}

// FileURL turns a local path into an absolute file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}
