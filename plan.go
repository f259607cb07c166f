package litevec

import (
	"fmt"
	"strings"

	"github.com/litevec/litevec/filter"
	"github.com/litevec/litevec/vector"
)

// queryShape classifies a search request by its similarity threshold.
type queryShape int

const (
	shapeAcceptAll queryShape = iota
	shapeExactMatch
	shapeThreshold
)

// classify maps a request onto a query shape and decides whether an
// approximate scan is allowed. Threshold-filtered queries depend on distances
// living on a known scale, which only holds for unit vectors under COSINE or
// DOT, so any other combination fails before a statement is issued.
func classify(cfg Config, req SearchRequest) (queryShape, bool, error) {
	t := req.SimilarityThreshold
	if t < ThresholdAcceptAll || t > ThresholdExactMatch {
		return 0, false, configErrorf("similarity threshold must be within [0, 1], got %g", t)
	}
	approximate := cfg.SearchAccuracy != 0 && cfg.IndexType == IndexIVF
	switch {
	case t == ThresholdAcceptAll:
		return shapeAcceptAll, approximate, nil
	case t == ThresholdExactMatch:
		return shapeExactMatch, false, nil
	default:
		if !cfg.ForcedNormalization {
			return 0, false, configErrorf(
				"similarity threshold %g requires forced normalization", t)
		}
		if cfg.Metric != vector.Cosine && cfg.Metric != vector.Dot {
			return 0, false, configErrorf(
				"similarity threshold %g requires the COSINE or DOT metric, have %s", t, cfg.Metric)
		}
		return shapeThreshold, approximate, nil
	}
}

// distanceCutoff converts a similarity threshold into the raw-distance bound
// applied store-side. COSINE distance is 1 - cos, so similarity t keeps
// distances up to 1 - t. DOT distance is the negated inner product of unit
// vectors; similarity t maps through (1 + dot) / 2, keeping distances up to
// (1 - t) * 2 - 1.
func distanceCutoff(metric vector.Metric, threshold float64) float64 {
	if metric == vector.Dot {
		return (1-threshold)*2 - 1
	}
	return 1 - threshold
}

// renderQuery builds the similarity SELECT and its bind arguments. The query
// blob binds once in the projection and, for threshold queries, a second time
// in the predicate. candidateIDs, when non-nil, restricts the scan to the
// approximate index's candidate set.
func renderQuery(cfg Config, req SearchRequest, shape queryShape, blob []byte, candidateIDs []string) (string, []any, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	raw := fmt.Sprintf("vector_distance(embedding, ?, '%s')", string(cfg.Metric))
	display := raw
	if cfg.Metric == vector.Dot {
		display = "(1 + " + raw + ") / 2"
	}

	var b strings.Builder
	args := []any{blob}
	fmt.Fprintf(&b, "SELECT id, content, metadata, embedding, %s AS distance FROM %s", display, cfg.Table)

	var conds []string
	if shape == shapeThreshold {
		conds = append(conds, raw+" <= ?")
		args = append(args, blob, distanceCutoff(cfg.Metric, req.SimilarityThreshold))
	}
	if req.Filter != nil {
		where, filterArgs, err := filter.SQL(req.Filter, "metadata")
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, where)
		args = append(args, filterArgs...)
	}
	if candidateIDs != nil {
		placeholders := strings.Repeat("?, ", len(candidateIDs))
		conds = append(conds, "id IN ("+strings.TrimSuffix(placeholders, ", ")+")")
		for _, id := range candidateIDs {
			args = append(args, id)
		}
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	fmt.Fprintf(&b, " ORDER BY distance LIMIT %d", topK)
	return b.String(), args, nil
}
