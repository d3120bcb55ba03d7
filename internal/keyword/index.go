// Package keyword provides the keyword (BM25) side of chunk retrieval.
package keyword

import "context"

// SearchOptions are optional parameters for keyword search. Nil means defaults.
type SearchOptions struct {
	// TitleBoost multiplies matches in the document title field. Values <= 1 disable it.
	TitleBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits of the query terms.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Defaults to 1.
	Fuzziness int
}

// Entry is the indexed form of one chunk.
type Entry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// KeywordIndex defines keyword indexing and search over chunks.
type KeywordIndex interface {
	Index(ctx context.Context, id string, entry Entry) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}
