package litevec

import (
	"fmt"
	"regexp"

	"github.com/litevec/litevec/vector"
)

// IndexType selects the vector index strategy for a collection.
type IndexType string

const (
	// IndexNone builds no index; every query performs an exact linear scan.
	IndexNone IndexType = "NONE"

	// IndexIVF partitions vectors into clusters; approximate queries probe a
	// subset of clusters sized by the target accuracy.
	IndexIVF IndexType = "IVF"

	// IndexHNSW is reserved. Its build parameters are accepted and recorded,
	// but no graph is built yet; queries degrade to the exact scan.
	IndexHNSW IndexType = "HNSW"
)

// DefaultTable is the collection table name used when none is configured.
const DefaultTable = "vector_store"

// DefaultTopK is the result limit applied when a search request leaves TopK
// unset.
const DefaultTopK = 4

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config fixes a collection's shape. It is validated eagerly by New and never
// mutated afterwards; reconfiguring a collection means constructing a new
// store.
type Config struct {
	// Table is the collection table name. Empty means DefaultTable. The name
	// is interpolated into DDL and queries, so it must be a plain SQL
	// identifier.
	Table string

	// Dimensions fixes the embedding width. 0 leaves the collection
	// unconstrained ("any dimensionality").
	Dimensions int

	// Metric is the distance metric used for ranking and, for COSINE/DOT,
	// threshold cutoffs. Empty means COSINE.
	Metric vector.Metric

	// IndexType selects the index strategy. Empty means IndexIVF.
	IndexType IndexType

	// SearchAccuracy is the target accuracy percentage for approximate
	// scans. 0 means unspecified: the index's own default applies.
	SearchAccuracy int

	// ForcedNormalization unit-scales every ingested and query vector so
	// that similarity thresholds are comparable across documents.
	ForcedNormalization bool

	// InitializeSchema runs EnsureSchema during New.
	InitializeSchema bool

	// DropFirst destroys a pre-existing collection with the same name before
	// creating it. Only honored when schema initialization runs.
	DropFirst bool

	// IVFPartitions overrides the IVF partition count. 0 uses the default.
	IVFPartitions int

	// HNSWNeighbors and HNSWEFConstruction are the reserved HNSW build
	// parameters (neighbor count and construction candidate list size).
	HNSWNeighbors      int
	HNSWEFConstruction int
}

func (c Config) withDefaults() Config {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Metric == "" {
		c.Metric = vector.Cosine
	}
	if c.IndexType == "" {
		c.IndexType = IndexIVF
	}
	return c
}

func (c Config) validate() error {
	if !identifierPattern.MatchString(c.Table) {
		return configErrorf("table name %q is not a valid SQL identifier", c.Table)
	}
	if c.Dimensions < 0 {
		return configErrorf("dimensions must be 0 (unconstrained) or positive, got %d", c.Dimensions)
	}
	if !c.Metric.Valid() {
		return configErrorf("unknown distance metric %q", string(c.Metric))
	}
	switch c.IndexType {
	case IndexNone, IndexIVF, IndexHNSW:
	default:
		return configErrorf("unknown index type %q", string(c.IndexType))
	}
	if c.SearchAccuracy != 0 && (c.SearchAccuracy < 1 || c.SearchAccuracy > 100) {
		return configErrorf("search accuracy must be within [1, 100], got %d", c.SearchAccuracy)
	}
	if c.IVFPartitions < 0 {
		return configErrorf("IVF partition count must not be negative, got %d", c.IVFPartitions)
	}
	if c.HNSWNeighbors < 0 || c.HNSWEFConstruction < 0 {
		return configErrorf("HNSW parameters must not be negative")
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("table=%s dims=%d metric=%s index=%s accuracy=%d normalized=%t",
		c.Table, c.Dimensions, c.Metric, c.IndexType, c.SearchAccuracy, c.ForcedNormalization)
}
