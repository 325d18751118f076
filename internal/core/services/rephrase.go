package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
	"github.com/custodia-labs/pdfchat/internal/logger"
)

// Built-in prompts used when no PromptStore is configured or it fails.
const (
	fallbackRephrasePrompt = "Given the above conversation, generate a search query to look up " +
		"in order to get information relevant to the conversation"

	fallbackAnswerSystemPrompt = "Answer the user's questions based on the below context:\n\n%s\n\n" +
		"Answer strictly from the context above. Use the earlier conversation only to understand " +
		"what the user is referring to, never as a source of facts."
)

// loadPrompt reads a named prompt, falling back to def.
func loadPrompt(prompts driven.PromptStore, name, def string) string {
	if prompts == nil {
		return def
	}
	p, err := prompts.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		if err != nil {
			logger.Warn("failed to load prompt %s, using default: %v", name, err)
		}
		return def
	}
	return p
}

// historyMessages maps turns to chat messages in chronological order.
func historyMessages(turns []domain.ChatTurn) []driven.ChatMessage {
	msgs := make([]driven.ChatMessage, 0, len(turns))
	for _, t := range turns {
		role := driven.RoleUser
		if t.Role == domain.RoleAI {
			role = driven.RoleAssistant
		}
		msgs = append(msgs, driven.ChatMessage{Role: role, Content: t.Text})
	}
	return msgs
}

// QueryRephraser turns a follow-up question into a standalone search query.
type QueryRephraser struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewQueryRephraser creates a rephraser. prompts may be nil.
func NewQueryRephraser(llm driven.LLMService, prompts driven.PromptStore) *QueryRephraser {
	return &QueryRephraser{llm: llm, prompts: prompts}
}

// Rephrase returns question unchanged when there is no history.
// An empty model reply falls back to the question.
func (r *QueryRephraser) Rephrase(ctx context.Context, history []domain.ChatTurn, question string) (query string, err error) {
	if len(history) == 0 {
		return question, nil
	}

	ctx, span := startSpan(ctx, "chat.Rephrase")
	defer func() { endSpan(span, err) }()

	if r.llm == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrLLMUnavailable)
	}

	msgs := historyMessages(history)
	msgs = append(msgs,
		driven.ChatMessage{Role: driven.RoleUser, Content: question},
		driven.ChatMessage{Role: driven.RoleUser, Content: loadPrompt(r.prompts, driven.PromptRephrase, fallbackRephrasePrompt)},
	)

	out, err := r.llm.Chat(ctx, msgs, driven.ChatOptions{Temperature: driven.Temperature(0)})
	if err != nil {
		return "", fmt.Errorf("%w: rephrasing question: %w", domain.ErrGeneration, err)
	}

	query = strings.TrimSpace(out)
	if query == "" {
		return question, nil
	}
	logger.Debug("Rephrased %q as %q", question, query)
	return query, nil
}
