package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ConversationalRetriever implements the interface.
var _ driving.ChatService = (*ConversationalRetriever)(nil)

// DefaultTopK is the number of passages retrieved per turn.
const DefaultTopK = 5

// ConversationalRetriever answers a question within a session in four steps:
// reformulate against history, retrieve, generate, then record the exchange.
type ConversationalRetriever struct {
	sessions     driven.SessionStore
	index        driven.VectorIndex
	embedder     driven.EmbeddingService
	reformulator driven.QueryReformulator
	generator    driven.AnswerGenerator

	topK             int
	defaultSessionID string
}

// RetrieverOption configures a ConversationalRetriever.
type RetrieverOption func(*ConversationalRetriever)

// WithTopK sets how many passages are retrieved per turn.
func WithTopK(k int) RetrieverOption {
	return func(r *ConversationalRetriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithDefaultSessionID sets the session used when a request names none.
func WithDefaultSessionID(id string) RetrieverOption {
	return func(r *ConversationalRetriever) {
		if id != "" {
			r.defaultSessionID = id
		}
	}
}

// NewConversationalRetriever creates a retriever.
func NewConversationalRetriever(
	sessions driven.SessionStore,
	index driven.VectorIndex,
	embedder driven.EmbeddingService,
	reformulator driven.QueryReformulator,
	generator driven.AnswerGenerator,
	opts ...RetrieverOption,
) *ConversationalRetriever {
	r := &ConversationalRetriever{
		sessions:         sessions,
		index:            index,
		embedder:         embedder,
		reformulator:     reformulator,
		generator:        generator,
		topK:             DefaultTopK,
		defaultSessionID: domain.DefaultSessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chat runs one turn. Retrieval and generation see the trimmed question;
// the history records it as the user typed it. The session is only written
// after an answer exists, so a failed turn leaves the history exactly as it was.
func (r *ConversationalRetriever) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidInput)
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = r.defaultSessionID
	}

	history := r.sessions.GetOrCreate(sessionID).Turns

	query, err := r.reformulate(ctx, question, history)
	if err != nil {
		return nil, err
	}

	hits, err := retrieve(ctx, r.embedder, r.index, query, r.topK)
	if err != nil {
		return nil, err
	}
	passages := make([]domain.TextUnit, len(hits))
	for i, h := range hits {
		passages[i] = h.Unit
	}

	answer, err := r.generator.Answer(ctx, question, history, passages)
	if err != nil {
		return nil, fmt.Errorf("%w: answer: %w", domain.ErrGenerationFailed, err)
	}

	r.sessions.AppendExchange(sessionID, req.Question, answer)
	logger.Debug("Session %s: answered with %d passages", sessionID, len(passages))

	return &domain.ChatResponse{Answer: answer, Sources: passages}, nil
}

// History returns the turns recorded for a session.
func (r *ConversationalRetriever) History(sessionID string) []domain.Turn {
	if sessionID == "" {
		sessionID = r.defaultSessionID
	}
	return r.sessions.GetOrCreate(sessionID).Turns
}

// reformulate rewrites a follow-up into a standalone query.
// A first question is used as is.
func (r *ConversationalRetriever) reformulate(ctx context.Context, question string, history []domain.Turn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}
	rewritten, err := r.reformulator.Reformulate(ctx, question, history)
	if err != nil {
		return "", fmt.Errorf("%w: reformulate: %w", domain.ErrGenerationFailed, err)
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question, nil
	}
	logger.Debug("Reformulated %q as %q", question, rewritten)
	return rewritten, nil
}

// retrieve embeds query and returns the k nearest passages.
func retrieve(
	ctx context.Context,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	query string,
	k int,
) ([]domain.ScoredUnit, error) {
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrEmbeddingFailed, err)
	}
	hits, err := index.Search(ctx, vec, k)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, fmt.Errorf("no index yet, run ingest first: %w", err)
		}
		return nil, fmt.Errorf("search index: %w", err)
	}
	return hits, nil
}
