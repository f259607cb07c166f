// Package vector provides the embedding codec shared by the store and the
// SQL layer: float32 BLOB encoding, optional L2 normalization, and the
// distance metrics backing the vector_distance SQL function.
package vector
