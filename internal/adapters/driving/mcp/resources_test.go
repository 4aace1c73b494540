package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

func TestExtractDocumentName(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid document URI",
			uri:      "docchat://documents/handbook.pdf",
			expected: "handbook.pdf",
		},
		{
			name:     "escaped name",
			uri:      "docchat://documents/leave%20policy.docx",
			expected: "leave policy.docx",
		},
		{
			name:     "nested path",
			uri:      "docchat://documents/a/b.txt",
			expected: "",
		},
		{
			name:     "invalid prefix",
			uri:      "file://documents/handbook.pdf",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentName(tt.uri))
		})
	}
}

func TestExtractSessionID(t *testing.T) {
	assert.Equal(t, "s-1", extractSessionID("docchat://sessions/s-1"))
	assert.Equal(t, "", extractSessionID("docchat://sessions/"))
	assert.Equal(t, "", extractSessionID("docchat://documents/s-1"))
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("lists files", func(t *testing.T) {
		docs := &mockDocuments{files: []driven.SourceFile{
			{Name: "handbook.pdf", Path: "/data/handbook.pdf"},
			{Name: "leave policy.docx", Path: "/data/leave policy.docx"},
		}}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Documents: docs})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("docchat://documents"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var infos []map[string]string
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
		require.Len(t, infos, 2)
		assert.Equal(t, "handbook.pdf", infos[0]["name"])
		assert.Equal(t, "docchat://documents/leave%20policy.docx", infos[1]["uri"])
		assert.NotContains(t, result.Contents[0].Text, "/data/", "local paths are not exposed")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		docs := &mockDocuments{err: errors.New("permission denied")}
		server, err := NewServer(&Ports{Search: &mockSearchService{}, Documents: docs})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, makeReadResourceRequest("docchat://documents"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing documents")
	})
}

func TestServer_handleDocumentContentResource(t *testing.T) {
	ctx := context.Background()
	docs := &mockDocuments{units: map[string][]domain.TextUnit{
		"handbook.pdf": {
			unit("handbook.pdf", "First paragraph.", 1, 0),
			unit("handbook.pdf", "Second paragraph.", 2, 0),
		},
	}}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Units: docs})
	require.NoError(t, err)

	t.Run("returns extracted text", func(t *testing.T) {
		result, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("docchat://documents/handbook.pdf"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
		assert.Equal(t, "First paragraph.\n\nSecond paragraph.", result.Contents[0].Text)
	})

	t.Run("unknown document is not found", func(t *testing.T) {
		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("docchat://documents/missing.pdf"))
		assert.Error(t, err)
	})

	t.Run("malformed URI is not found", func(t *testing.T) {
		_, err := server.handleDocumentContentResource(ctx, makeReadResourceRequest("docchat://documents/"))
		assert.Error(t, err)
	})
}

func TestServer_handleSessionResource(t *testing.T) {
	ctx := context.Background()
	chat := &mockChatService{history: map[string][]domain.Turn{
		"s1": {
			{Role: domain.RoleUser, Text: "Q1"},
			{Role: domain.RoleAssistant, Text: "A1"},
		},
	}}
	server, err := NewServer(&Ports{Search: &mockSearchService{}, Chat: chat})
	require.NoError(t, err)

	t.Run("returns turns in order", func(t *testing.T) {
		result, err := server.handleSessionResource(ctx, makeReadResourceRequest("docchat://sessions/s1"))
		require.NoError(t, err)

		var session domain.Session
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &session))
		assert.Equal(t, "s1", session.ID)
		assert.Equal(t, chat.history["s1"], session.Turns)
	})

	t.Run("unknown session is empty", func(t *testing.T) {
		result, err := server.handleSessionResource(ctx, makeReadResourceRequest("docchat://sessions/other"))
		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, `"turns": []`)
	})

	t.Run("malformed URI is not found", func(t *testing.T) {
		_, err := server.handleSessionResource(ctx, makeReadResourceRequest("docchat://sessions/"))
		assert.Error(t, err)
	})
}
