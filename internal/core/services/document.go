package services

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultSourceSchemes are the blob URL schemes a document may be registered
// with unless WithSourceSchemes narrows them.
var DefaultSourceSchemes = []string{"file", "http", "https", "s3"}

// HostResolver looks up the addresses of a host name.
type HostResolver func(ctx context.Context, host string) ([]net.IPAddr, error)

// DocumentOption configures a DocumentService.
type DocumentOption func(*DocumentService)

// WithSourceSchemes limits the URL schemes accepted by Register.
func WithSourceSchemes(schemes ...string) DocumentOption {
	return func(s *DocumentService) {
		s.schemes = schemeSet(schemes)
	}
}

// WithPublicHostsOnly rejects http and https sources whose host is, or
// resolves to, a loopback, private, link-local or unspecified address.
// A nil resolver uses net.DefaultResolver.
func WithPublicHostsOnly(resolve HostResolver) DocumentOption {
	return func(s *DocumentService) {
		if resolve == nil {
			resolve = net.DefaultResolver.LookupIPAddr
		}
		s.resolve = resolve
	}
}

// DocumentService registers and lists the current user's documents.
type DocumentService struct {
	docStore driven.DocumentStore
	identity driven.IdentityProvider
	schemes  map[string]bool
	resolve  HostResolver
	now      func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	docStore driven.DocumentStore, identity driven.IdentityProvider, opts ...DocumentOption,
) *DocumentService {
	s := &DocumentService{
		docStore: docStore,
		identity: identity,
		schemes:  schemeSet(DefaultSourceSchemes),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func schemeSet(schemes []string) map[string]bool {
	set := make(map[string]bool, len(schemes))
	for _, scheme := range schemes {
		set[strings.ToLower(scheme)] = true
	}
	return set
}

// Register records a document for the current user.
func (s *DocumentService) Register(
	ctx context.Context, req driving.RegisterDocumentRequest,
) (*domain.Document, error) {
	userID, err := requireUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}

	sourceURL := strings.TrimSpace(req.SourceURL)
	u, err := s.checkSource(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = titleFromPath(u.Path)
	}

	mimeType := req.MIMEType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(path.Ext(u.Path)))
	}

	doc := &domain.Document{
		ID:        id,
		OwnerID:   userID,
		SourceURL: sourceURL,
		Title:     title,
		MIMEType:  mimeType,
		CreatedAt: s.now().UTC(),
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("register document: %w", err)
	}

	logger.Info("Registered document %s (%s)", doc.ID, doc.Title)
	return doc, nil
}

// Get retrieves one of the current user's documents.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	userID, err := requireUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.docStore.GetDocument(ctx, userID, documentID)
}

// List returns the current user's documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	userID, err := requireUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	return s.docStore.ListDocuments(ctx, userID)
}

// checkSource parses sourceURL and applies the scheme and host policy.
func (s *DocumentService) checkSource(ctx context.Context, sourceURL string) (*url.URL, error) {
	u, err := url.Parse(sourceURL)
	if sourceURL == "" || err != nil || !s.schemes[strings.ToLower(u.Scheme)] {
		return nil, fmt.Errorf("%w: source URL %q must use one of: %s",
			domain.ErrInvalidInput, sourceURL, s.schemeList())
	}

	scheme := strings.ToLower(u.Scheme)
	if s.resolve == nil || (scheme != "http" && scheme != "https") {
		return u, nil
	}

	host := u.Hostname()
	if host == "" || strings.EqualFold(host, "localhost") {
		return nil, fmt.Errorf("%w: source host %q is not public", domain.ErrInvalidInput, host)
	}
	addrs := []net.IPAddr{{IP: net.ParseIP(host)}}
	if addrs[0].IP == nil {
		addrs, err = s.resolve(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving source host %q: %w", domain.ErrInvalidInput, host, err)
		}
	}
	for _, addr := range addrs {
		if !isPublicIP(addr.IP) {
			return nil, fmt.Errorf("%w: source host %q is not public", domain.ErrInvalidInput, host)
		}
	}
	return u, nil
}

func (s *DocumentService) schemeList() string {
	list := make([]string, 0, len(s.schemes))
	for scheme := range s.schemes {
		list = append(list, scheme)
	}
	sort.Strings(list)
	return strings.Join(list, ", ")
}

func isPublicIP(ip net.IP) bool {
	return ip != nil &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsUnspecified()
}

// titleFromPath derives a title from the last path element without its extension.
func titleFromPath(p string) string {
	base := path.Base(p)
	if base == "." || base == "/" {
		return "Untitled document"
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
