package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SessionStore holds per-session conversation turns.
// Sessions are created on first reference and never evicted.
type SessionStore interface {
	// GetOrCreate returns a snapshot of the session, creating it if unseen.
	GetOrCreate(id string) domain.Session

	// AppendUser appends a user turn.
	AppendUser(id, text string)

	// AppendAssistant appends an assistant turn.
	AppendAssistant(id, text string)

	// AppendExchange appends a user turn and its answer as one adjacent pair.
	AppendExchange(id, question, answer string)
}

// QueryReformulator rewrites a follow-up question into a standalone query.
type QueryReformulator interface {
	Reformulate(ctx context.Context, question string, history []domain.Turn) (string, error)
}

// AnswerGenerator answers a question from retrieved context.
// When the context is insufficient the answer should say so.
type AnswerGenerator interface {
	Answer(ctx context.Context, question string, history []domain.Turn, passages []domain.TextUnit) (string, error)
}
