package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
)

var _ driving.HistoryImporter = (*HistoryService)(nil)

// DefaultHistoryWindow is how many recent turns are sent to the model.
const DefaultHistoryWindow = 10

// HistoryService reads and appends a document's conversation log.
type HistoryService struct {
	messages driven.MessageStore
	identity driven.IdentityProvider
	now      func() time.Time
}

// NewHistoryService creates a history service.
func NewHistoryService(messages driven.MessageStore, identity driven.IdentityProvider) *HistoryService {
	return &HistoryService{
		messages: messages,
		identity: identity,
		now:      time.Now,
	}
}

// LoadHistory returns the full conversation, oldest first.
func (s *HistoryService) LoadHistory(ctx context.Context, documentID string) ([]domain.ChatTurn, error) {
	userID, err := requireUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	turns, err := s.messages.List(ctx, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading history: %w", domain.ErrPersistence, err)
	}
	return turns, nil
}

// Window returns the last n turns. A non-positive n returns all of them.
func (s *HistoryService) Window(turns []domain.ChatTurn, n int) []domain.ChatTurn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// CountQuestions returns how many questions were asked about a document.
func (s *HistoryService) CountQuestions(ctx context.Context, documentID string) (int, error) {
	userID, err := requireUser(ctx, s.identity)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.CountByRole(ctx, userID, documentID, domain.RoleHuman)
	if err != nil {
		return 0, fmt.Errorf("%w: counting questions: %w", domain.ErrPersistence, err)
	}
	return n, nil
}

// RecordTurn appends one turn.
func (s *HistoryService) RecordTurn(
	ctx context.Context, documentID string, role domain.Role, text string,
) (*domain.ChatTurn, error) {
	turn, err := s.newTurn(ctx, documentID, role, text)
	if err != nil {
		return nil, err
	}
	if err := s.messages.Append(ctx, *turn); err != nil {
		return nil, fmt.Errorf("%w: recording %s turn: %w", domain.ErrPersistence, role, err)
	}
	return turn, nil
}

// RecordExchange appends a question and its answer atomically.
func (s *HistoryService) RecordExchange(
	ctx context.Context, documentID, question, answer string,
) (*domain.ChatTurn, *domain.ChatTurn, error) {
	q, err := s.newTurn(ctx, documentID, domain.RoleHuman, question)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.newTurn(ctx, documentID, domain.RoleAI, answer)
	if err != nil {
		return nil, nil, err
	}
	if !a.CreatedAt.After(q.CreatedAt) {
		a.CreatedAt = q.CreatedAt.Add(time.Nanosecond)
	}
	if err := s.messages.AppendExchange(ctx, *q, *a); err != nil {
		return nil, nil, fmt.Errorf("%w: recording exchange: %w", domain.ErrPersistence, err)
	}
	return q, a, nil
}

func (s *HistoryService) newTurn(
	ctx context.Context, documentID string, role domain.Role, text string,
) (*domain.ChatTurn, error) {
	userID, err := requireUser(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if documentID == "" || strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: turn needs a document and text", domain.ErrInvalidInput)
	}
	return &domain.ChatTurn{
		ID:         uuid.NewString(),
		OwnerID:    userID,
		DocumentID: documentID,
		Role:       role,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	}, nil
}
