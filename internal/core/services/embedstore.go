package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Default embedding batch settings.
const (
	DefaultEmbedBatchSize = 32
	DefaultEmbedWorkers   = 4
)

// EmbeddingStore embeds only units whose (source, content) key is not yet known.
type EmbeddingStore struct {
	svc       driven.EmbeddingService
	batchSize int
	workers   int
	limiter   *rate.Limiter
}

// EmbeddingStoreOption configures an EmbeddingStore.
type EmbeddingStoreOption func(*EmbeddingStore)

// WithBatchSize bounds how many texts go into one embedding call.
func WithBatchSize(size int) EmbeddingStoreOption {
	return func(s *EmbeddingStore) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithWorkers bounds how many batches are embedded in parallel.
func WithWorkers(n int) EmbeddingStoreOption {
	return func(s *EmbeddingStore) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRateLimit throttles embedding calls to rps requests per second.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64) EmbeddingStoreOption {
	return func(s *EmbeddingStore) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			s.limiter = nil
		}
	}
}

// NewEmbeddingStore creates an EmbeddingStore over an embedding service.
func NewEmbeddingStore(svc driven.EmbeddingService, opts ...EmbeddingStoreOption) *EmbeddingStore {
	s := &EmbeddingStore{
		svc:       svc,
		batchSize: DefaultEmbedBatchSize,
		workers:   DefaultEmbedWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ModelName returns the embedding model, which partitions stored records.
func (s *EmbeddingStore) ModelName() string {
	return s.svc.ModelName()
}

// KnownKeys returns the dedup keys of previously saved records.
func KnownKeys(records []domain.EmbeddingRecord) map[string]struct{} {
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		known[r.Key()] = struct{}{}
	}
	return known
}

// EmbedNew embeds the units whose key is not in known and returns the new
// records in input order. Content is trimmed before keying; empty units and
// repeated keys within the call are skipped. Any failed batch fails the call.
func (s *EmbeddingStore) EmbedNew(
	ctx context.Context,
	units []domain.TextUnit,
	known map[string]struct{},
) ([]domain.EmbeddingRecord, error) {
	pending := make([]domain.TextUnit, 0, len(units))
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		content := strings.TrimSpace(u.Content)
		if content == "" {
			continue
		}
		key := domain.DedupKey(u.Metadata.Source, content)
		if _, ok := known[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		pending = append(pending, domain.TextUnit{Content: content, Metadata: u.Metadata})
	}
	if len(pending) == 0 {
		return nil, nil
	}

	batches := (len(pending) + s.batchSize - 1) / s.batchSize
	vectors := make([][][]float32, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for b := 0; b < batches; b++ {
		start := b * s.batchSize
		end := min(start+s.batchSize, len(pending))
		texts := make([]string, 0, end-start)
		for _, u := range pending[start:end] {
			texts = append(texts, u.Content)
		}

		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			logger.Debug("Embedding batch %d/%d (%d texts)", b+1, batches, len(texts))
			out, err := s.svc.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("%w: batch %d: %w", domain.ErrEmbeddingFailed, b+1, err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("%w: batch %d: got %d vectors for %d texts",
					domain.ErrEmbeddingFailed, b+1, len(out), len(texts))
			}
			vectors[b] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := s.svc.Dimensions()
	records := make([]domain.EmbeddingRecord, 0, len(pending))
	for b, batch := range vectors {
		for i, vec := range batch {
			if dim == 0 {
				dim = len(vec)
			}
			if len(vec) == 0 || len(vec) != dim {
				return nil, fmt.Errorf("%w: vector of length %d, want %d",
					domain.ErrEmbeddingFailed, len(vec), dim)
			}
			u := pending[b*s.batchSize+i]
			records = append(records, domain.EmbeddingRecord{
				Content:   u.Content,
				Metadata:  u.Metadata,
				Embedding: vec,
			})
		}
	}
	return records, nil
}
