// Package ivf implements the inverted-file (cluster-partition) candidate
// index used for approximate similarity search.
package ivf
