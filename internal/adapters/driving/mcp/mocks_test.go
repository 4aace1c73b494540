package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	hits  []domain.ScoredUnit
	err   error
	query string
	limit int
}

func (m *mockSearchService) Search(_ context.Context, query string, limit int) ([]domain.ScoredUnit, error) {
	m.query = query
	m.limit = limit
	return m.hits, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	resp     *domain.ChatResponse
	err      error
	requests []domain.ChatRequest
	history  map[string][]domain.Turn
}

func (m *mockChatService) Chat(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.requests = append(m.requests, req)
	return m.resp, m.err
}

func (m *mockChatService) History(sessionID string) []domain.Turn {
	return m.history[sessionID]
}

// mockDocuments implements DocumentLister and ExtractedUnits.
type mockDocuments struct {
	files []driven.SourceFile
	units map[string][]domain.TextUnit
	err   error
}

func (m *mockDocuments) List(_ context.Context) ([]driven.SourceFile, error) {
	return m.files, m.err
}

func (m *mockDocuments) Load(_ context.Context, _ domain.Stage, name string) ([]domain.TextUnit, error) {
	units, ok := m.units[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return units, nil
}
