package flat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

type entry struct {
	unit domain.TextUnit
	vec  []float32
	norm float64
}

// Index is an immutable flat vector index.
type Index struct {
	metric  domain.Metric
	dim     int
	entries []entry
	keys    map[string]struct{}
}

// New creates an empty index that will use the given metric.
// An empty metric defaults to cosine.
func New(metric domain.Metric) (*Index, error) {
	if metric == "" {
		metric = domain.MetricCosine
	}
	if !metric.IsValid() {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidInput, metric)
	}
	return &Index{metric: metric, keys: make(map[string]struct{})}, nil
}

// FromEmbeddings builds an index from records in order.
func FromEmbeddings(metric domain.Metric, records []domain.EmbeddingRecord) (*Index, error) {
	idx, err := New(metric)
	if err != nil {
		return nil, err
	}
	next, _, err := idx.Add(records)
	return next, err
}

// Metric returns the metric the index was built with.
func (idx *Index) Metric() domain.Metric {
	return idx.metric
}

// Dimension returns the vector length, or 0 for an empty index.
func (idx *Index) Dimension() int {
	return idx.dim
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Add returns a new index holding the receiver's entries followed by the
// records not already present, and the number added. Records are keyed by
// source and content, so replaying a merge adds nothing.
func (idx *Index) Add(records []domain.EmbeddingRecord) (*Index, int, error) {
	next := &Index{
		metric:  idx.metric,
		dim:     idx.dim,
		entries: make([]entry, len(idx.entries), len(idx.entries)+len(records)),
		keys:    make(map[string]struct{}, len(idx.keys)+len(records)),
	}
	copy(next.entries, idx.entries)
	for k := range idx.keys {
		next.keys[k] = struct{}{}
	}

	added := 0
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return nil, 0, fmt.Errorf("%w: empty embedding for %s", domain.ErrInvalidInput, r.Metadata.Source)
		}
		if next.dim == 0 {
			next.dim = len(r.Embedding)
		}
		if len(r.Embedding) != next.dim {
			return nil, 0, fmt.Errorf("%w: got %d, index has %d",
				domain.ErrDimensionMismatch, len(r.Embedding), next.dim)
		}
		key := r.Key()
		if _, ok := next.keys[key]; ok {
			continue
		}
		next.keys[key] = struct{}{}

		vec := make([]float32, len(r.Embedding))
		copy(vec, r.Embedding)
		next.entries = append(next.entries, entry{unit: r.Unit(), vec: vec, norm: norm(vec)})
		added++
	}
	return next, added, nil
}

// Search returns up to k units ranked under the index metric.
// An empty index returns an empty result. Equal scores keep insertion order.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]domain.ScoredUnit, error) {
	if k <= 0 || len(idx.entries) == 0 {
		return []domain.ScoredUnit{}, nil
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d",
			domain.ErrDimensionMismatch, len(query), idx.dim)
	}

	qnorm := norm(query)
	results := make([]domain.ScoredUnit, len(idx.entries))
	for i, e := range idx.entries {
		results[i] = domain.ScoredUnit{Unit: e.unit, Score: idx.score(query, qnorm, e)}
	}

	if idx.metric.IsDistance() {
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	} else {
		sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	}

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

func (idx *Index) score(q []float32, qnorm float64, e entry) float64 {
	switch idx.metric {
	case domain.MetricDot:
		return dot(q, e.vec)
	case domain.MetricL2:
		var sum float64
		for i := range q {
			d := float64(q[i]) - float64(e.vec[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	default:
		if qnorm == 0 || e.norm == 0 {
			return 0
		}
		return dot(q, e.vec) / (qnorm * e.norm)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
