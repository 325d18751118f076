package driven

import (
	"context"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
)

// NamespaceStore is a multi-tenant vector index. Each document owns one
// isolated namespace holding its chunk vectors plus their original text.
type NamespaceStore interface {
	// NamespaceExists reports whether any vector was ever written to the namespace.
	// It is a metadata lookup and never enumerates vectors.
	NamespaceExists(ctx context.Context, namespace string) (bool, error)

	// Upsert writes records into the namespace, creating it if needed.
	// Upserting the same record ID twice overwrites, never duplicates.
	// A single call is applied entirely or not at all where the backend allows it.
	Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error

	// Query returns the topK most similar records by cosine similarity,
	// most similar first. Querying a missing namespace returns an empty result.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.ScoredPassage, error)

	// Close releases resources.
	Close() error
}

// IndexStateStore persists completion markers alongside namespaces.
type IndexStateStore interface {
	// Get returns the marker for a document, or domain.ErrNotFound.
	Get(ctx context.Context, documentID string) (*domain.IndexState, error)

	// Save creates or replaces the marker for state.DocumentID.
	Save(ctx context.Context, state domain.IndexState) error
}
