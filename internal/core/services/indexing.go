package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// Indexing defaults.
const (
	DefaultEmbedBatchSize = 96
	DefaultNamespaceCache = 256
)

// IndexingOptions tunes the indexing coordinator.
type IndexingOptions struct {
	// BatchSize caps texts per EmbedBatch call.
	BatchSize int

	// CacheSize is how many completed namespaces are remembered in memory.
	CacheSize int
}

// IndexingService makes sure a document's namespace is fully populated
// before anyone reads from it. Handles are only issued for complete
// namespaces, so partial ingestion is never observable.
type IndexingService struct {
	docs       driven.DocumentStore
	states     driven.IndexStateStore
	namespaces driven.NamespaceStore
	fetcher    driven.BlobFetcher
	normaliser driven.NormaliserRegistry
	splitter   driven.TextSplitter
	embedder   driven.EmbeddingService
	identity   driven.IdentityProvider
	locker     driven.Locker

	batchSize int
	cache     *lru.Cache[string, domain.Namespace]
	now       func() time.Time
}

// NewIndexingService creates an indexing coordinator.
func NewIndexingService(
	docs driven.DocumentStore,
	states driven.IndexStateStore,
	namespaces driven.NamespaceStore,
	fetcher driven.BlobFetcher,
	normaliser driven.NormaliserRegistry,
	splitter driven.TextSplitter,
	embedder driven.EmbeddingService,
	identity driven.IdentityProvider,
	opts IndexingOptions,
) *IndexingService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultEmbedBatchSize
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultNamespaceCache
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, domain.Namespace](opts.CacheSize)

	return &IndexingService{
		docs:       docs,
		states:     states,
		namespaces: namespaces,
		fetcher:    fetcher,
		normaliser: normaliser,
		splitter:   splitter,
		embedder:   embedder,
		identity:   identity,
		batchSize:  opts.BatchSize,
		cache:      cache,
		now:        time.Now,
	}
}

// SetLocker sets the per-document ingestion lock. Without one, concurrent
// first requests may both ingest and converge through idempotent upserts.
func (s *IndexingService) SetLocker(locker driven.Locker) {
	s.locker = locker
}

// EnsureIndexed returns the document's namespace, ingesting it first if needed.
func (s *IndexingService) EnsureIndexed(ctx context.Context, documentID string) (ns *domain.Namespace, err error) {
	ctx, span := startSpan(ctx, "indexing.EnsureIndexed", attribute.String("document.id", documentID))
	defer func() { endSpan(span, err) }()

	doc, err := s.ownedDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cache.Get(doc.ID); ok && cached.OwnerID == doc.OwnerID {
		span.SetAttributes(attribute.String("index.path", "cache"))
		return &cached, nil
	}

	state, err := s.marker(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if state.IsComplete() {
		span.SetAttributes(attribute.String("index.path", "marker"))
		return s.remember(doc, state), nil
	}

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "index:"+doc.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrLockTimeout) {
				err = fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
			}
			return nil, err
		}
		defer unlock()

		// Another holder may have finished while we waited.
		if state, err = s.marker(ctx, doc.ID); err != nil {
			return nil, err
		}
		if state.IsComplete() {
			span.SetAttributes(attribute.String("index.path", "marker"))
			return s.remember(doc, state), nil
		}
	}

	if state == nil {
		exists, err := s.namespaces.NamespaceExists(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: checking namespace: %w", domain.ErrVectorStore, err)
		}
		if exists {
			span.SetAttributes(attribute.String("index.path", "adopted"))
			return s.adopt(ctx, doc)
		}
	}

	span.SetAttributes(attribute.String("index.path", "ingested"))
	return s.ingest(ctx, doc)
}

// Status returns the completion marker for one of the current user's documents.
func (s *IndexingService) Status(ctx context.Context, documentID string) (*domain.IndexState, error) {
	doc, err := s.ownedDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	state, err := s.marker(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrNotFound
	}
	return state, nil
}

func (s *IndexingService) ownedDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return ownedDocument(ctx, s.identity, s.docs, documentID)
}

// marker returns the completion marker, or nil when none was written.
func (s *IndexingService) marker(ctx context.Context, documentID string) (*domain.IndexState, error) {
	state, err := s.states.Get(ctx, documentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%w: reading index marker: %w", domain.ErrVectorStore, err)
	}
	return state, nil
}

// adopt marks a namespace written without a marker as complete.
func (s *IndexingService) adopt(ctx context.Context, doc *domain.Document) (*domain.Namespace, error) {
	logger.Info("Adopting existing namespace for document %s", doc.ID)

	now := s.now().UTC()
	state := domain.IndexState{
		DocumentID:  doc.ID,
		Status:      domain.IndexStatusComplete,
		StartedAt:   now,
		CompletedAt: now,
	}
	if s.embedder != nil {
		state.Dimensions = s.embedder.Dimensions()
		state.EmbeddingModel = s.embedder.ModelName()
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: writing index marker: %w", domain.ErrVectorStore, err)
	}
	return s.remember(doc, &state), nil
}

// ingest fetches, extracts, chunks, embeds and upserts the document.
// Nothing is written to the namespace until every embedding succeeded.
func (s *IndexingService) ingest(ctx context.Context, doc *domain.Document) (ns *domain.Namespace, err error) {
	logger.Section("Ingest Document")
	logger.Debug("Document: %s, source: %s", doc.ID, doc.SourceURL)

	started := s.now().UTC()
	if err := s.states.Save(ctx, domain.IndexState{
		DocumentID: doc.ID,
		Status:     domain.IndexStatusIndexing,
		StartedAt:  started,
	}); err != nil {
		return nil, fmt.Errorf("%w: writing index marker: %w", domain.ErrVectorStore, err)
	}

	defer func() {
		if err != nil {
			s.markFailed(ctx, doc.ID, started, err)
		}
	}()

	done := logger.Stage("fetch")
	content, fetchedType, err := s.fetcher.Fetch(ctx, doc.SourceURL)
	done()
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %w", domain.ErrSourceUnavailable, doc.ID, err)
	}

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = fetchedType
	}

	done = logger.Stage("extract")
	extracted, err := s.normaliser.Normalise(ctx, &domain.RawDocument{
		DocumentID: doc.ID,
		URI:        doc.SourceURL,
		MIMEType:   mimeType,
		Content:    content,
	})
	done()
	if err != nil {
		return nil, fmt.Errorf("%w: extracting text: %w", domain.ErrSourceUnavailable, err)
	}

	s.adoptTitle(ctx, doc, extracted.Title)

	chunks := s.splitter.Split(doc.ID, extracted.Text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document %s contains no extractable text", domain.ErrSourceUnavailable, doc.ID)
	}
	logger.Debug("Split into %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	done = logger.Stage("embed")
	vectors, err := s.embedAll(ctx, texts)
	done()
	if err != nil {
		return nil, err
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{
			ID:       c.ID,
			Vector:   vectors[i],
			Text:     c.Text,
			Position: c.Position,
			Metadata: map[string]any{"document_id": doc.ID, "start": c.Start},
		}
	}

	done = logger.Stage("upsert")
	err = s.namespaces.Upsert(ctx, doc.ID, records)
	done()
	if err != nil {
		return nil, fmt.Errorf("%w: upserting %d records: %w", domain.ErrVectorStore, len(records), err)
	}

	state := domain.IndexState{
		DocumentID:     doc.ID,
		Status:         domain.IndexStatusComplete,
		ChunkCount:     len(records),
		Dimensions:     len(vectors[0]),
		EmbeddingModel: s.embedder.ModelName(),
		StartedAt:      started,
		CompletedAt:    s.now().UTC(),
	}
	if err := s.states.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: writing index marker: %w", domain.ErrVectorStore, err)
	}

	logger.Info("Indexed document %s: %d chunks", doc.ID, len(records))
	return s.remember(doc, &state), nil
}

// adoptTitle replaces a title that was only derived from the file name with
// the one found in the document text. Failures are logged and ignored.
func (s *IndexingService) adoptTitle(ctx context.Context, doc *domain.Document, extracted string) {
	extracted = strings.TrimSpace(extracted)
	if extracted == "" || extracted == doc.Title {
		return
	}
	u, err := url.Parse(doc.SourceURL)
	if err != nil || doc.Title != titleFromPath(u.Path) {
		return
	}
	if err := s.docs.UpdateTitle(ctx, doc.OwnerID, doc.ID, extracted); err != nil {
		logger.Warn("Keeping title of %s: %v", doc.ID, err)
		return
	}
	logger.Debug("Title of %s is now %q", doc.ID, extracted)
	doc.Title = extracted
}

// embedAll embeds texts in sequential batches, keeping input order.
func (s *IndexingService) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, domain.ErrEmbeddingUnavailable)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		batch, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: embedding chunks %d-%d: %w", domain.ErrEmbeddingService, start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbeddingService, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// markFailed records a failed attempt. It runs even if ctx was cancelled.
func (s *IndexingService) markFailed(ctx context.Context, documentID string, started time.Time, cause error) {
	err := s.states.Save(context.WithoutCancel(ctx), domain.IndexState{
		DocumentID: documentID,
		Status:     domain.IndexStatusFailed,
		StartedAt:  started,
		Error:      cause.Error(),
	})
	if err != nil {
		logger.Warn("failed to mark document %s as failed: %v", documentID, err)
	}
}

func (s *IndexingService) remember(doc *domain.Document, state *domain.IndexState) *domain.Namespace {
	ns := domain.Namespace{
		ID:             doc.ID,
		DocumentID:     doc.ID,
		OwnerID:        doc.OwnerID,
		ChunkCount:     state.ChunkCount,
		Dimensions:     state.Dimensions,
		EmbeddingModel: state.EmbeddingModel,
		CompletedAt:    state.CompletedAt,
	}
	s.cache.Add(doc.ID, ns)
	return &ns
}
