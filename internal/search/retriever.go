package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/config"
	"github.com/hyperjump/tradeidea/internal/embedding"
	"github.com/hyperjump/tradeidea/internal/keyword"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/storage"
	"github.com/hyperjump/tradeidea/internal/vector"
)

// Retriever runs hybrid (keyword + semantic) retrieval over indexed chunks.
type Retriever struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.Searcher
	keywordIndex keyword.KeywordIndex
	config       config.SearchConfig
	logger       *zap.Logger
}

// NewRetriever creates a retriever over the given indexes.
func NewRetriever(
	storage storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.Searcher,
	keywordIndex keyword.KeywordIndex,
	cfg config.SearchConfig,
	logger *zap.Logger,
) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopKCandidates <= 0 {
		cfg.TopKCandidates = 20
	}
	return &Retriever{
		storage:      storage,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
		logger:       logger,
	}
}

// Retrieve returns the k chunks that best match text, best first. A
// non-positive k uses the query default.
func (r *Retriever) Retrieve(ctx context.Context, text string, k int) ([]*models.RetrievedChunk, error) {
	start := time.Now()
	q := &models.RetrievalQuery{Text: text, TopK: k}
	if err := ProcessQuery(q); err != nil {
		return nil, err
	}

	candidates := r.config.TopKCandidates
	if candidates < q.TopK {
		candidates = q.TopK
	}

	var (
		keywordResults  []*keyword.KeywordResult
		semanticResults []*vector.VectorResult
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if r.config.KeywordWeight > 0 && r.keywordIndex != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := r.keywordIndex.Search(ctx, q.Text, candidates, &keyword.SearchOptions{
				TitleBoost:   r.config.TitleBoost,
				FuzzyEnabled: r.config.Fuzzy,
			})
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if r.config.SemanticWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := r.embedder.Embed(ctx, q.Text)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			results, err := r.vectorIndex.Search(ctx, queryEmbedding, candidates)
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticResults = results
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	fused := Fuse(
		NormalizeKeywordScores(keywordResults),
		NormalizeSemanticScores(semanticResults),
		r.config.KeywordWeight, r.config.SemanticWeight,
	)
	if len(fused) > q.TopK {
		fused = fused[:q.TopK]
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}
	chunks, err := r.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	titles := make(map[string]string)
	out := make([]*models.RetrievedChunk, 0, len(fused))
	for _, f := range fused {
		chunk, ok := chunks[f.ChunkID]
		if !ok {
			r.logger.Warn("indexed chunk missing from storage", zap.String("chunk_id", f.ChunkID))
			continue
		}
		title, seen := titles[chunk.DocumentID]
		if !seen {
			if doc, err := r.storage.GetDocument(ctx, chunk.DocumentID); err == nil {
				title = doc.Title
			}
			titles[chunk.DocumentID] = title
		}
		out = append(out, &models.RetrievedChunk{
			Chunk:         chunk,
			DocumentTitle: title,
			Score:         f.Score,
			KeywordScore:  f.KeywordScore,
			SemanticScore: f.SemanticScore,
			Rank:          len(out) + 1,
		})
	}

	r.logger.Debug("retrieved context",
		zap.String("query", q.Text),
		zap.Int("keyword_hits", len(keywordResults)),
		zap.Int("semantic_hits", len(semanticResults)),
		zap.Int("returned", len(out)),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}
