package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driving"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService runs the question pipeline for one document:
// quota, ensure indexed, load history, rephrase, retrieve, record the
// question, generate, record the answer.
type ChatService struct {
	indexing  driving.IndexingService
	docs      driven.DocumentStore
	history   *HistoryService
	rephraser *QueryRephraser
	retriever *Retriever
	answerer  *AnswerGenerator
	identity  driven.IdentityProvider
	settings  domain.ChatSettings
}

// NewChatService creates a chat service.
func NewChatService(
	indexing driving.IndexingService,
	docs driven.DocumentStore,
	history *HistoryService,
	rephraser *QueryRephraser,
	retriever *Retriever,
	answerer *AnswerGenerator,
	identity driven.IdentityProvider,
	settings domain.ChatSettings,
) *ChatService {
	if settings.HistoryWindow <= 0 {
		settings.HistoryWindow = DefaultHistoryWindow
	}
	return &ChatService{
		indexing:  indexing,
		docs:      docs,
		history:   history,
		rephraser: rephraser,
		retriever: retriever,
		answerer:  answerer,
		identity:  identity,
		settings:  settings,
	}
}

// Ask runs the full pipeline and returns the recorded exchange.
// History is read before either turn of this exchange is written.
func (s *ChatService) Ask(ctx context.Context, documentID, question string) (ex *domain.Exchange, err error) {
	ctx, span := startSpan(ctx, "chat.Ask", attribute.String("document.id", documentID))
	defer func() { endSpan(span, err) }()

	logger.Section("Ask")
	logger.Debug("Document: %s, question: %q", documentID, question)

	if _, err := requireUser(ctx, s.identity); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	if err := s.checkQuota(ctx, documentID); err != nil {
		return nil, err
	}

	ns, err := s.indexing.EnsureIndexed(ctx, documentID)
	if err != nil {
		return nil, err
	}

	turns, err := s.history.LoadHistory(ctx, documentID)
	if err != nil {
		return nil, err
	}
	window := s.history.Window(turns, s.settings.HistoryWindow)
	logger.Debug("History: %d turns, window %d", len(turns), len(window))

	query, err := s.rephraser.Rephrase(ctx, window, question)
	if err != nil {
		return nil, err
	}

	passages, err := s.retriever.Retrieve(ctx, ns, query)
	if err != nil {
		return nil, err
	}
	logger.Debug("Retrieved %d passages", len(passages))

	asked, err := s.history.RecordTurn(ctx, documentID, domain.RoleHuman, question)
	if err != nil {
		return nil, err
	}

	answer, err := s.answerer.Generate(ctx, passages, window, question)
	if err != nil {
		return nil, err
	}

	answered, err := s.history.RecordTurn(ctx, documentID, domain.RoleAI, answer)
	if err != nil {
		return nil, err
	}

	return &domain.Exchange{
		Question: *asked,
		Answer:   *answered,
		Query:    query,
		Passages: passages,
	}, nil
}

// AskQuestion is the presentation form of Ask.
func (s *ChatService) AskQuestion(ctx context.Context, documentID, question string) domain.AskResult {
	ex, err := s.Ask(ctx, documentID, question)
	if err != nil {
		logger.Warn("ask failed for document %s: %v", documentID, err)
		return domain.AskResult{Success: false, ErrorText: domain.UserMessage(err)}
	}
	return domain.AskResult{Success: true, Answer: ex.Answer.Text}
}

// GenerateEmbeddings ensures the document is indexed.
func (s *ChatService) GenerateEmbeddings(ctx context.Context, documentID string) domain.IndexResult {
	if _, err := s.indexing.EnsureIndexed(ctx, documentID); err != nil {
		logger.Warn("indexing failed for document %s: %v", documentID, err)
		return domain.IndexResult{Completed: false, ErrorText: domain.UserMessage(err)}
	}
	return domain.IndexResult{Completed: true}
}

// History returns the full conversation, oldest first. A document the
// user does not own is domain.ErrNotFound.
func (s *ChatService) History(ctx context.Context, documentID string) ([]domain.ChatTurn, error) {
	if _, err := ownedDocument(ctx, s.identity, s.docs, documentID); err != nil {
		return nil, err
	}
	return s.history.LoadHistory(ctx, documentID)
}

// checkQuota fails with domain.ErrQuotaExceeded once the question limit is reached.
func (s *ChatService) checkQuota(ctx context.Context, documentID string) error {
	if s.settings.QuestionLimit <= 0 {
		return nil
	}
	asked, err := s.history.CountQuestions(ctx, documentID)
	if err != nil {
		return err
	}
	if asked >= s.settings.QuestionLimit {
		return fmt.Errorf("%w: %d of %d questions used", domain.ErrQuotaExceeded, asked, s.settings.QuestionLimit)
	}
	return nil
}
