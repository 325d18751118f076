package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// Ensure MessageStore implements the interface.
var _ driven.MessageStore = (*MessageStore)(nil)

type conversationKey struct {
	owner    string
	document string
}

// MessageStore is an in-memory implementation of driven.MessageStore.
type MessageStore struct {
	mu    sync.RWMutex
	turns map[conversationKey][]domain.ChatTurn
}

// NewMessageStore creates a new in-memory message store.
func NewMessageStore() *MessageStore {
	return &MessageStore{
		turns: make(map[conversationKey][]domain.ChatTurn),
	}
}

func validTurn(turn domain.ChatTurn) bool {
	return turn.ID != "" && turn.OwnerID != "" && turn.DocumentID != "" && turn.Role.IsValid()
}

// Append adds one turn.
func (s *MessageStore) Append(_ context.Context, turn domain.ChatTurn) error {
	if !validTurn(turn) {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := conversationKey{turn.OwnerID, turn.DocumentID}
	s.turns[key] = append(s.turns[key], turn)
	return nil
}

// AppendExchange adds both turns under one lock, or neither.
func (s *MessageStore) AppendExchange(_ context.Context, question, answer domain.ChatTurn) error {
	if !validTurn(question) || !validTurn(answer) {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	qk := conversationKey{question.OwnerID, question.DocumentID}
	ak := conversationKey{answer.OwnerID, answer.DocumentID}
	s.turns[qk] = append(s.turns[qk], question)
	s.turns[ak] = append(s.turns[ak], answer)
	return nil
}

// List returns a conversation ordered by CreatedAt, ties in insertion order.
func (s *MessageStore) List(_ context.Context, ownerID, documentID string) ([]domain.ChatTurn, error) {
	s.mu.RLock()
	stored := s.turns[conversationKey{ownerID, documentID}]
	out := make([]domain.ChatTurn, len(stored))
	copy(out, stored)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CountByRole counts turns of one role in a conversation.
func (s *MessageStore) CountByRole(_ context.Context, ownerID, documentID string, role domain.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.turns[conversationKey{ownerID, documentID}] {
		if t.Role == role {
			n++
		}
	}
	return n, nil
}
