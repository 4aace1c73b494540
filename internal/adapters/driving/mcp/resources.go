package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docchat resources.
	uriScheme = "docchat://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Documents != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "documents",
			Name:        "documents",
			Description: "Files in the data folder",
			MIMEType:    "application/json",
		}, s.handleDocumentsResource)
	}

	if s.ports.Units != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "documents/{name}",
			Name:        "document-content",
			Description: "Text extracted from a document",
			MIMEType:    "text/plain",
		}, s.handleDocumentContentResource)
	}

	if s.ports.Chat != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "sessions/{sessionId}",
			Name:        "session-history",
			Description: "Turns recorded in a chat session",
			MIMEType:    "application/json",
		}, s.handleSessionResource)
	}
}

// handleDocumentsResource lists the files in the data folder.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	files, err := s.ports.Documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		Name string `json:"name"`
		URI  string `json:"uri"`
	}

	infos := make([]docInfo, len(files))
	for i, f := range files {
		infos[i] = docInfo{Name: f.Name, URI: uriScheme + "documents/" + url.PathEscape(f.Name)}
	}
	return jsonResult(req.Params.URI, infos)
}

// handleDocumentContentResource returns the extracted text of a document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	name := extractDocumentName(req.Params.URI)
	if name == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	units, err := s.ports.Units.Load(ctx, domain.StageExtraction, name)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Content
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strings.Join(parts, "\n\n"),
		}},
	}, nil
}

// handleSessionResource returns the turns of a session.
func (s *Server) handleSessionResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	id := extractSessionID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	turns := s.ports.Chat.History(id)
	if turns == nil {
		turns = []domain.Turn{}
	}
	return jsonResult(req.Params.URI, domain.Session{ID: id, Turns: turns})
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentName extracts the file name from a URI like docchat://documents/{name}.
func extractDocumentName(uri string) string {
	return trimPrefix(uri, uriScheme+"documents/")
}

// extractSessionID extracts the session ID from a URI like docchat://sessions/{sessionId}.
func extractSessionID(uri string) string {
	return trimPrefix(uri, uriScheme+"sessions/")
}

// trimPrefix returns the single unescaped path segment after prefix, or "".
func trimPrefix(uri, prefix string) string {
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	rest, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
