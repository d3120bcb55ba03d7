// Package idea generates trade ideas from the persisted index.
package idea

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/config"
	"github.com/hyperjump/tradeidea/internal/embedding"
	"github.com/hyperjump/tradeidea/internal/llm"
	"github.com/hyperjump/tradeidea/internal/query"
	"github.com/hyperjump/tradeidea/internal/search"
	"github.com/hyperjump/tradeidea/internal/store"
)

const (
	// Prompt is the question routed to the query engine.
	Prompt = "Generate a trading idea(long/short) based on the given data"
	// ToolDescription describes the vector tool to the selector.
	ToolDescription = "Useful for retrieving specific context from the trading data."
)

// Generator answers Prompt over the index in IndexDir. The index is opened on
// first use and kept open until Close.
type Generator struct {
	indexDir string
	search   config.SearchConfig
	embedder embedding.Embedder
	llm      llm.LLM
	logger   *zap.Logger

	mu    sync.Mutex
	store *store.Store
}

// NewGenerator returns a generator over the index in indexDir.
func NewGenerator(indexDir string, searchCfg config.SearchConfig, embedder embedding.Embedder, model llm.LLM, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		indexDir: indexDir,
		search:   searchCfg,
		embedder: embedder,
		llm:      model,
		logger:   logger,
	}
}

// Generate produces one trade idea.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	start := time.Now()
	g.logger.Info("starting trade idea generation")

	st, err := g.openStore()
	if err != nil {
		return "", err
	}
	retriever := search.NewRetriever(st.Storage, g.embedder, st.Vectors, st.Keyword, g.search, g.logger)
	vectorTool := query.NewTool(
		query.NewVectorQueryEngine(retriever, g.llm, g.search.TopK, g.logger),
		"vector_tool",
		ToolDescription,
	)
	router := query.NewRouterQueryEngine(query.NewLLMSingleSelector(g.llm), []query.Tool{vectorTool}, g.logger)

	g.logger.Info("executing query", zap.String("prompt", Prompt))
	resp, err := router.Query(ctx, Prompt)
	if err != nil {
		return "", err
	}
	g.logger.Info("generated trade idea",
		zap.Int("sources", len(resp.Sources)),
		zap.Duration("elapsed", time.Since(start)))
	return resp.String(), nil
}

func (g *Generator) openStore() (*store.Store, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.store != nil {
		return g.store, nil
	}
	g.logger.Info("loading index from storage", zap.String("index_dir", g.indexDir))
	st, err := store.Open(g.indexDir, g.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	g.store = st
	return st, nil
}

// Close releases the index if it was opened.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.store == nil {
		return nil
	}
	err := g.store.Close()
	g.store = nil
	return err
}
