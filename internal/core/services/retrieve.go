package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// DefaultTopK is how many passages are retrieved per question.
const DefaultTopK = 4

// Retriever finds the passages of a namespace most similar to a query.
type Retriever struct {
	embedder   driven.EmbeddingService
	namespaces driven.NamespaceStore
	topK       int
}

// NewRetriever creates a retriever. A non-positive topK uses DefaultTopK.
func NewRetriever(embedder driven.EmbeddingService, namespaces driven.NamespaceStore, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, namespaces: namespaces, topK: topK}
}

// Retrieve embeds query and returns the closest passages in rank order.
func (r *Retriever) Retrieve(ctx context.Context, ns *domain.Namespace, query string) (passages []domain.ScoredPassage, err error) {
	ctx, span := startSpan(ctx, "chat.Retrieve", attribute.Int("retrieval.top_k", r.topK))
	defer func() { endSpan(span, err) }()

	if ns == nil {
		return nil, fmt.Errorf("%w: no namespace", domain.ErrInvalidInput)
	}
	if r.embedder == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingService, domain.ErrEmbeddingUnavailable)
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", domain.ErrEmbeddingService, err)
	}

	passages, err = r.namespaces.Query(ctx, ns.ID, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("%w: querying namespace %s: %w", domain.ErrVectorStore, ns.ID, err)
	}
	span.SetAttributes(attribute.Int("retrieval.hits", len(passages)))
	return passages, nil
}
