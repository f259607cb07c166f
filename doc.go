// Package litevec is an embedded vector similarity search engine on SQLite.
// Documents carry content, JSON metadata, and a fixed-width embedding stored
// as a float32 little-endian blob; queries rank by a configurable distance
// metric through the vector_distance SQL function and may run through an IVF
// candidate index when a target search accuracy is configured.
package litevec
