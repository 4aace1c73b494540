package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func newTestGenerator(llm *mockLLM) *LLMGenerator {
	prompts := &mockPromptStore{prompts: map[string]string{
		driven.PromptContextualize: "Rewrite the question.",
		driven.PromptAnswerSystem:  "Answer from:\n%s",
	}}
	return NewLLMGenerator(llm, prompts, domain.LLMSettings{Temperature: 0.7, MaxTokens: 1024})
}

var sampleHistory = []domain.Turn{
	{Role: domain.RoleUser, Text: "Who approves leave?"},
	{Role: domain.RoleAssistant, Text: "Your manager."},
}

func TestLLMGenerator_Reformulate(t *testing.T) {
	llm := &mockLLM{reply: "  How long does manager approval of leave take?\n"}
	g := newTestGenerator(llm)

	out, err := g.Reformulate(context.Background(), "How long does it take?", sampleHistory)
	require.NoError(t, err)
	assert.Equal(t, "How long does manager approval of leave take?", out)

	require.Len(t, llm.messages, 1)
	assert.Equal(t, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "Rewrite the question."},
		{Role: driven.RoleUser, Content: "Who approves leave?"},
		{Role: driven.RoleAssistant, Content: "Your manager."},
		{Role: driven.RoleUser, Content: "How long does it take?"},
	}, llm.messages[0])
	assert.Zero(t, llm.opts[0].Temperature)
}

func TestLLMGenerator_Answer(t *testing.T) {
	llm := &mockLLM{reply: "Two days."}
	g := newTestGenerator(llm)

	passages := []domain.TextUnit{
		{Content: "Approval takes two days."},
		{Content: "Managers review requests weekly."},
	}
	out, err := g.Answer(context.Background(), "How long?", sampleHistory, passages)
	require.NoError(t, err)
	assert.Equal(t, "Two days.", out)

	msgs := llm.messages[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, "Answer from:\nApproval takes two days.\n\nManagers review requests weekly.", msgs[0].Content)
	assert.Equal(t, "How long?", msgs[3].Content)
	assert.Equal(t, driven.ChatOptions{MaxTokens: 1024, Temperature: 0.7}, llm.opts[0])
}

func TestLLMGenerator_Errors(t *testing.T) {
	g := NewLLMGenerator(&mockLLM{}, &mockPromptStore{}, domain.LLMSettings{})
	_, err := g.Reformulate(context.Background(), "q", sampleHistory)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = g.Answer(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	boom := errors.New("503")
	g = newTestGenerator(&mockLLM{err: boom})
	_, err = g.Answer(context.Background(), "q", nil, nil)
	assert.ErrorIs(t, err, boom)
}
