package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SearchService retrieves passages without generating an answer.
type SearchService interface {
	// Search embeds the query and returns up to limit ranked passages.
	// A non-positive limit uses the configured default.
	Search(ctx context.Context, query string, limit int) ([]domain.ScoredUnit, error)
}
