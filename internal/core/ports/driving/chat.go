package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChatService answers questions within a session.
type ChatService interface {
	// Chat runs one turn. On failure the session is left unchanged.
	Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)

	// History returns the turns recorded for a session.
	History(sessionID string) []domain.Turn
}
