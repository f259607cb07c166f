package litevec

import "github.com/litevec/litevec/filter"

// Similarity threshold sentinels for SearchRequest.SimilarityThreshold.
const (
	// ThresholdAcceptAll disables threshold filtering: the topK nearest
	// neighbors are returned by raw distance.
	ThresholdAcceptAll = 0.0

	// ThresholdExactMatch requests only identical or near-identical vectors
	// and always runs an exact (non-approximate) scan, because approximate
	// indexes can reorder or omit boundary matches.
	ThresholdExactMatch = 1.0
)

// Document is an opaque content unit. ID is treated as an opaque string and
// is unique within a collection; re-ingesting an existing ID overwrites
// content, metadata, and embedding atomically. Metadata values must be
// strings, integers, floats, or booleans; anything else is rejected at
// ingestion.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// SearchRequest describes one similarity query.
type SearchRequest struct {
	// Vector is the query embedding. It must match the collection's fixed
	// dimensionality and is normalized before querying when the collection
	// has ForcedNormalization set.
	Vector []float32

	// TopK limits the result count. 0 means DefaultTopK.
	TopK int

	// SimilarityThreshold is ThresholdAcceptAll, ThresholdExactMatch, or a
	// value strictly between them. Threshold filtering requires
	// ForcedNormalization and a COSINE or DOT metric.
	SimilarityThreshold float64

	// Filter optionally restricts results by metadata. It is combined with
	// the threshold predicate via logical AND.
	Filter *filter.Expression
}

// SearchResult is a Document annotated with its raw metric distance and a
// derived similarity score. For the DOT metric the distance is remapped to
// (1 + raw) / 2 so that smaller-is-better holds across metrics; Score is
// 1 - Distance for every metric.
type SearchResult struct {
	Document
	Embedding []float32
	Distance  float64
	Score     float64
}
