// Package engine opens SQLite databases and supplies the vector_distance SQL
// primitive the store's queries are built on.
package engine
