package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// DocumentLister lists the input documents.
type DocumentLister interface {
	List(ctx context.Context) ([]driven.SourceFile, error)
}

// ExtractedUnits loads the text extracted from a document.
type ExtractedUnits interface {
	Load(ctx context.Context, stage domain.Stage, name string) ([]domain.TextUnit, error)
}

// Ports aggregates the services the MCP server exposes.
type Ports struct {
	// Search retrieves passages without a session. Required.
	Search driving.SearchService

	// Chat answers questions within a session. The chat tool and session
	// resources are only registered when set.
	Chat driving.ChatService

	// Documents lists the data folder. Optional.
	Documents DocumentLister

	// Units serves extracted document text. Optional.
	Units ExtractedUnits
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
