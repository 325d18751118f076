package normalisers

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/normalisers/pdf"
	"github.com/custodia-labs/pdfchat/internal/normalisers/plaintext"
)

// Verify interface compliance.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to the highest-priority normaliser for their MIME type.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]driven.Normaliser)}
}

// Defaults returns a registry with the built-in PDF and plain text normalisers.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(plaintext.New())
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range n.SupportedMIMETypes() {
		list := append(r.byType[mt], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[mt] = list
	}
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for mt := range r.byType {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Normalise extracts text with the best normaliser for the document.
// A missing or generic MIME type is detected from the URI extension and content.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.ExtractedText, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	mimeType := DetectMIMEType(raw.MIMEType, raw.URI, raw.Content)

	r.mu.RLock()
	candidates := r.byType[mimeType]
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType)
	}

	withType := *raw
	withType.MIMEType = mimeType
	return candidates[0].Normalise(ctx, &withType)
}

// DetectMIMEType resolves a document's MIME type. A declared specific type wins;
// otherwise the URI extension is consulted, then the content is sniffed.
func DetectMIMEType(declared, uri string, content []byte) string {
	if mt := baseType(declared); mt != "" && mt != "application/octet-stream" && mt != "binary/octet-stream" {
		return mt
	}

	if ext := strings.ToLower(path.Ext(uriPath(uri))); ext != "" {
		switch ext {
		case ".md", ".markdown":
			return "text/markdown"
		}
		if mt := baseType(mime.TypeByExtension(ext)); mt != "" {
			return mt
		}
	}

	return baseType(http.DetectContentType(content))
}

func baseType(mt string) string {
	if mt == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(mt)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return parsed
}

// uriPath returns the path component of a URL, or uri itself for plain paths.
func uriPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return u.Path
}
