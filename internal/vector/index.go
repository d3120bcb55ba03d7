// Package vector stores chunk embeddings and answers nearest-neighbour queries.
package vector

import "context"

// Searcher is the query side of a vector index.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
}

// VectorResult is one nearest-neighbour hit. ID is a chunk ID and Score the
// inner product with the query, in [-1, 1] for unit vectors.
type VectorResult struct {
	ID    string
	Score float64
}

var _ Searcher = (*MemoryIndex)(nil)
