package index

// Index defines a candidate source for approximate similarity search.
// Implementations are built from (id, embedding) pairs, answer kNN candidate
// queries, and serialize to a blob for persistence in the index storage
// table.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length; vectors must share one
	// dimensionality.
	Build(ids []string, vectors [][]float32) error

	// Query returns up to k candidate ids ordered by increasing distance to
	// the query vector. k <= 0 returns every candidate the index considers.
	Query(query []float32, k int) ([]string, error)

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}
