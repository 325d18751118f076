package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/pdfchat/internal/adapters/driven/storage/similarity"
	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Ensure the stores implement their interfaces.
var (
	_ driven.NamespaceStore  = (*NamespaceStore)(nil)
	_ driven.IndexStateStore = (*IndexStateStore)(nil)
)

type namespace struct {
	dims    int
	index   map[string]int // record ID -> position in records
	records []similarity.Candidate
}

// NamespaceStore is an in-memory implementation of driven.NamespaceStore.
type NamespaceStore struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
}

// NewNamespaceStore creates a new in-memory namespace store.
func NewNamespaceStore() *NamespaceStore {
	return &NamespaceStore{
		namespaces: make(map[string]*namespace),
	}
}

// NamespaceExists reports whether the namespace has ever received a vector.
func (s *NamespaceStore) NamespaceExists(_ context.Context, ns string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.namespaces[ns]
	return ok, nil
}

// Upsert validates every record before applying any.
func (s *NamespaceStore) Upsert(_ context.Context, ns string, records []domain.VectorRecord) error {
	if ns == "" {
		return domain.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := len(records[0].Vector)
	if existing, ok := s.namespaces[ns]; ok {
		dims = existing.dims
	}
	for _, r := range records {
		if r.ID == "" || len(r.Vector) == 0 {
			return fmt.Errorf("%w: record without id or vector", domain.ErrInvalidInput)
		}
		if len(r.Vector) != dims {
			return fmt.Errorf("%w: expected %d dimensions, got %d", domain.ErrInvalidInput, dims, len(r.Vector))
		}
	}

	n, ok := s.namespaces[ns]
	if !ok {
		n = &namespace{dims: dims, index: make(map[string]int)}
		s.namespaces[ns] = n
	}

	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		c := similarity.Candidate{ID: r.ID, Text: r.Text, Position: r.Position, Vector: vec}
		if i, ok := n.index[r.ID]; ok {
			n.records[i] = c
			continue
		}
		n.index[r.ID] = len(n.records)
		n.records = append(n.records, c)
	}
	return nil
}

// Query ranks the namespace's vectors against vector.
func (s *NamespaceStore) Query(_ context.Context, ns string, vector []float32, topK int) ([]domain.ScoredPassage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.namespaces[ns]
	if !ok {
		return []domain.ScoredPassage{}, nil
	}
	return similarity.Rank(n.records, vector, topK), nil
}

// Count returns the number of vectors in a namespace.
func (s *NamespaceStore) Count(ns string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.namespaces[ns]; ok {
		return len(n.records)
	}
	return 0
}

// Close is a no-op.
func (s *NamespaceStore) Close() error {
	return nil
}

// IndexStateStore is an in-memory implementation of driven.IndexStateStore.
type IndexStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.IndexState
}

// NewIndexStateStore creates a new in-memory marker store.
func NewIndexStateStore() *IndexStateStore {
	return &IndexStateStore{states: make(map[string]domain.IndexState)}
}

// Get retrieves the marker for a document.
func (s *IndexStateStore) Get(_ context.Context, documentID string) (*domain.IndexState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Save creates or replaces the marker.
func (s *IndexStateStore) Save(_ context.Context, state domain.IndexState) error {
	if state.DocumentID == "" || !state.Status.IsValid() {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.DocumentID] = state
	return nil
}
