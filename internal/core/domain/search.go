package domain

// Metric is the distance function a vector index is built with.
// An index keeps its metric for its whole lifetime.
type Metric string

// Available metrics.
const (
	// MetricCosine ranks by cosine similarity, highest first.
	MetricCosine Metric = "cosine"

	// MetricDot ranks by inner product, highest first.
	MetricDot Metric = "dot"

	// MetricL2 ranks by Euclidean distance, lowest first.
	MetricL2 Metric = "l2"
)

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricCosine, MetricDot, MetricL2:
		return true
	default:
		return false
	}
}

// IsDistance returns true if lower scores rank higher.
func (m Metric) IsDistance() bool {
	return m == MetricL2
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// ScoredUnit is a retrieved TextUnit with its score under the index metric.
// Score is a similarity for cosine and dot, a distance for l2.
type ScoredUnit struct {
	Unit  TextUnit `json:"unit"`
	Score float64  `json:"score"`
}
