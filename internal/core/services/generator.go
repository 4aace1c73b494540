package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure LLMGenerator implements the interfaces.
var (
	_ driven.QueryReformulator = (*LLMGenerator)(nil)
	_ driven.AnswerGenerator   = (*LLMGenerator)(nil)
)

// passageSeparator joins retrieved passages in the answer prompt.
const passageSeparator = "\n\n"

// reformulateMaxTokens bounds a rewritten question.
const reformulateMaxTokens = 256

// LLMGenerator reformulates questions and writes answers with a chat model.
type LLMGenerator struct {
	llm     driven.LLMService
	prompts driven.PromptStore

	temperature float64
	maxTokens   int
}

// NewLLMGenerator creates a generator. Answers use the given sampling
// settings; reformulation always runs at temperature zero.
func NewLLMGenerator(llm driven.LLMService, prompts driven.PromptStore, settings domain.LLMSettings) *LLMGenerator {
	return &LLMGenerator{
		llm:         llm,
		prompts:     prompts,
		temperature: settings.Temperature,
		maxTokens:   settings.MaxTokens,
	}
}

// Reformulate rewrites question so it stands alone without history.
func (g *LLMGenerator) Reformulate(ctx context.Context, question string, history []domain.Turn) (string, error) {
	system, err := g.prompts.Load(driven.PromptContextualize)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}

	messages := conversation(system, history, question)
	out, err := g.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   reformulateMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Answer writes an answer grounded in passages.
func (g *LLMGenerator) Answer(
	ctx context.Context,
	question string,
	history []domain.Turn,
	passages []domain.TextUnit,
) (string, error) {
	template, err := g.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return "", fmt.Errorf("load prompt: %w", err)
	}

	contents := make([]string, len(passages))
	for i, p := range passages {
		contents[i] = p.Content
	}
	system := fmt.Sprintf(template, strings.Join(contents, passageSeparator))

	messages := conversation(system, history, question)
	out, err := g.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// conversation builds system prompt, prior turns, then the new question.
func conversation(system string, history []domain.Turn, question string) []driven.ChatMessage {
	messages := make([]driven.ChatMessage, 0, len(history)+2)
	messages = append(messages, driven.ChatMessage{Role: driven.RoleSystem, Content: system})
	for _, turn := range history {
		role := driven.RoleUser
		if turn.Role == domain.RoleAssistant {
			role = driven.RoleAssistant
		}
		messages = append(messages, driven.ChatMessage{Role: role, Content: turn.Text})
	}
	return append(messages, driven.ChatMessage{Role: driven.RoleUser, Content: question})
}
