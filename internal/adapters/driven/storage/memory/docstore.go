package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	order     []string
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
	}
}

// SaveDocument stores a document. Existing IDs are never overwritten.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" || doc.OwnerID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[doc.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.documents[doc.ID] = *doc
	s.order = append(s.order, doc.ID)
	return nil
}

// GetDocument retrieves a document owned by ownerID.
func (s *DocumentStore) GetDocument(_ context.Context, ownerID, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// UpdateTitle replaces the title of an owner's document.
func (s *DocumentStore) UpdateTitle(_ context.Context, ownerID, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok || doc.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	doc.Title = title
	s.documents[id] = doc
	return nil
}

// ListDocuments returns the owner's documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []domain.Document
	// Reverse insertion order so equal timestamps list the latest first.
	for i := len(s.order) - 1; i >= 0; i-- {
		if doc := s.documents[s.order[i]]; doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}
