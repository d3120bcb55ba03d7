// Package query answers questions from the indexed context: a retrieval
// engine that grounds the LLM, and a router that picks between engines.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/llm"
	"github.com/hyperjump/tradeidea/internal/models"
)

// EmptyResponse is the answer when retrieval finds no context.
const EmptyResponse = "Empty Response"

// DefaultTopK is the number of context chunks a VectorQueryEngine retrieves.
const DefaultTopK = 2

// Response is an engine's answer with the context it was grounded on.
type Response struct {
	Text     string
	Sources  []*models.RetrievedChunk
	Metadata map[string]string
}

// String returns the answer text.
func (r *Response) String() string { return r.Text }

// Engine answers a query.
type Engine interface {
	Query(ctx context.Context, q string) (*Response, error)
}

// Retriever returns the k chunks most relevant to text.
type Retriever interface {
	Retrieve(ctx context.Context, text string, k int) ([]*models.RetrievedChunk, error)
}

// VectorQueryEngine retrieves context chunks and has the LLM answer from them.
type VectorQueryEngine struct {
	retriever Retriever
	llm       llm.LLM
	topK      int
	logger    *zap.Logger
}

// NewVectorQueryEngine returns an engine retrieving topK chunks per query.
func NewVectorQueryEngine(retriever Retriever, model llm.LLM, topK int, logger *zap.Logger) *VectorQueryEngine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorQueryEngine{retriever: retriever, llm: model, topK: topK, logger: logger}
}

// Query retrieves context for q and synthesizes an answer.
func (e *VectorQueryEngine) Query(ctx context.Context, q string) (*Response, error) {
	chunks, err := e.retriever.Retrieve(ctx, q, e.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(chunks) == 0 {
		e.logger.Warn("no context retrieved", zap.String("query", q))
		return &Response{Text: EmptyResponse, Metadata: map[string]string{}}, nil
	}
	e.logger.Debug("retrieved context", zap.Int("chunks", len(chunks)))

	answer, err := e.llm.Complete(ctx, QAPrompt(chunks, q))
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}
	return &Response{
		Text:     strings.TrimSpace(answer),
		Sources:  chunks,
		Metadata: map[string]string{},
	}, nil
}

// QAPrompt builds the context-grounded question prompt.
func QAPrompt(chunks []*models.RetrievedChunk, q string) string {
	var b strings.Builder
	b.WriteString("Context information is below.\n")
	b.WriteString("---------------------\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if c.DocumentTitle != "" {
			fmt.Fprintf(&b, "file_name: %s\n\n", c.DocumentTitle)
		}
		b.WriteString(c.Chunk.Content)
	}
	b.WriteString("\n---------------------\n")
	b.WriteString("Given the context information and not prior knowledge, answer the query.\n")
	fmt.Fprintf(&b, "Query: %s\nAnswer: ", q)
	return b.String()
}
