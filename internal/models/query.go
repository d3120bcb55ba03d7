package models

import "fmt"

const maxTopK = 50

// RetrievalQuery asks the retriever for the chunks most relevant to Text.
type RetrievalQuery struct {
	Text string `json:"text"`
	TopK int    `json:"top_k,omitempty"`
}

// Validate ensures the query is non-empty and clamps TopK to [1, 50],
// defaulting to 2.
func (q *RetrievalQuery) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK <= 0 {
		q.TopK = 2
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return nil
}
