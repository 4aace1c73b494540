package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// newSessionID names a session for a chat call that brings none.
var newSessionID = uuid.NewString

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the text to find matching passages for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default from config)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

// PassageOutput is a retrieved passage.
type PassageOutput struct {
	Source  string  `json:"source"`
	Page    int     `json:"page,omitempty"`
	Type    string  `json:"type"`
	ChunkID int     `json:"chunk_id,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Content string  `json:"content"`
}

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation to continue; a new one is started when empty"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	Answer    string          `json:"answer"`
	SessionID string          `json:"session_id"`
	Sources   []PassageOutput `json:"sources"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages in the document collection closest to a query",
	}, s.handleSearch)

	if s.ports.Chat != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name: "chat",
			Description: "Answer a question using only the document collection. " +
				"Pass the returned session_id back to ask follow-up questions.",
		}, s.handleChat)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	hits, err := s.ports.Search.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}

	output := SearchOutput{
		Results: make([]PassageOutput, len(hits)),
		Count:   len(hits),
	}
	for i, h := range hits {
		output.Results[i] = passageOutput(h.Unit)
		output.Results[i].Score = h.Score
	}
	return nil, output, nil
}

// handleChat handles the chat tool invocation.
func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = newSessionID()
	}

	resp, err := s.ports.Chat.Chat(ctx, domain.ChatRequest{Question: input.Question, SessionID: sessionID})
	if err != nil {
		return nil, ChatOutput{}, toolError(err)
	}

	output := ChatOutput{
		Answer:    resp.Answer,
		SessionID: sessionID,
		Sources:   make([]PassageOutput, len(resp.Sources)),
	}
	for i, u := range resp.Sources {
		output.Sources[i] = passageOutput(u)
	}
	return nil, output, nil
}

func passageOutput(u domain.TextUnit) PassageOutput {
	return PassageOutput{
		Source:  u.Metadata.Source,
		Page:    u.Metadata.Page,
		Type:    u.Metadata.Type.String(),
		ChunkID: u.Metadata.ChunkID,
		Content: u.Content,
	}
}

// toolError adds guidance the calling assistant can relay to its user.
func toolError(err error) error {
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		return fmt.Errorf("%w: the documents have not been ingested yet, run 'docchat ingest'", err)
	case errors.Is(err, domain.ErrInvalidInput):
		return err
	default:
		return fmt.Errorf("docchat: %w", err)
	}
}
