package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService retrieves passages for a query without a session.
type SearchService struct {
	index            driven.VectorIndex
	embeddingService driven.EmbeddingService
	defaultLimit     int
}

// NewSearchService creates a new search service.
// A non-positive defaultLimit uses DefaultTopK.
func NewSearchService(
	index driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	defaultLimit int,
) *SearchService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultTopK
	}
	return &SearchService{
		index:            index,
		embeddingService: embeddingService,
		defaultLimit:     defaultLimit,
	}
}

// Search embeds query and returns up to limit ranked passages.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]domain.ScoredUnit, error) {
	logger.Section("Search Execution")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	logger.Debug("Query: %q (limit=%d)", query, limit)

	hits, err := retrieve(ctx, s.embeddingService, s.index, query, limit)
	if err != nil {
		return nil, err
	}

	logger.Debug("Search returned %d results", len(hits))
	for i, h := range hits {
		logger.Debug("  [%d] %s chunk %d score=%.4f", i+1, h.Unit.Metadata.Source, h.Unit.Metadata.ChunkID, h.Score)
	}
	return hits, nil
}
