package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/pdfchat/internal/core/domain"
	"github.com/custodia-labs/pdfchat/internal/core/ports/driven"
)

// AnswerGenerator writes an answer grounded in retrieved passages.
type AnswerGenerator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewAnswerGenerator creates an answer generator. prompts may be nil.
func NewAnswerGenerator(llm driven.LLMService, prompts driven.PromptStore) *AnswerGenerator {
	return &AnswerGenerator{llm: llm, prompts: prompts}
}

// Generate answers question from passages. History only frames the conversation.
func (g *AnswerGenerator) Generate(
	ctx context.Context, passages []domain.ScoredPassage, history []domain.ChatTurn, question string,
) (answer string, err error) {
	ctx, span := startSpan(ctx, "chat.Generate")
	defer func() { endSpan(span, err) }()

	if g.llm == nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGeneration, domain.ErrLLMUnavailable)
	}

	system := fmt.Sprintf(
		loadPrompt(g.prompts, driven.PromptAnswerSystem, fallbackAnswerSystemPrompt),
		contextBlock(passages),
	)

	msgs := make([]driven.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, driven.ChatMessage{Role: driven.RoleSystem, Content: system})
	msgs = append(msgs, historyMessages(history)...)
	msgs = append(msgs, driven.ChatMessage{Role: driven.RoleUser, Content: question})

	out, err := g.llm.Chat(ctx, msgs, driven.ChatOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: generating answer: %w", domain.ErrGeneration, err)
	}

	answer = strings.TrimSpace(out)
	if answer == "" {
		return "", fmt.Errorf("%w: model returned an empty answer", domain.ErrGeneration)
	}
	return answer, nil
}

// contextBlock joins passage texts with blank lines.
func contextBlock(passages []domain.ScoredPassage) string {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n")
}
