package idea

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/tradeidea/internal/config"
	"github.com/hyperjump/tradeidea/internal/embedding"
	"github.com/hyperjump/tradeidea/internal/keyword"
	"github.com/hyperjump/tradeidea/internal/llm"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/query"
	"github.com/hyperjump/tradeidea/internal/store"
)

var searchCfg = config.SearchConfig{TopK: 2, TopKCandidates: 10, KeywordWeight: 0.3, SemanticWeight: 0.7}

func buildIndex(t *testing.T, emb embedding.Embedder, contents ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "storage")
	ctx := context.Background()
	st, err := store.Create(dir, emb.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Storage.CreateDocument(ctx, &models.Document{ID: "d", Title: "posts.pdf", Content: "x"}); err != nil {
		t.Fatal(err)
	}
	var chunks []*models.DocumentChunk
	for i, c := range contents {
		id := "c" + string(rune('0'+i))
		chunks = append(chunks, &models.DocumentChunk{ID: id, DocumentID: "d", Content: c, ChunkIndex: i})
		v, _ := emb.Embed(ctx, c)
		if err := st.Vectors.Add(ctx, []string{id}, [][]float32{v}); err != nil {
			t.Fatal(err)
		}
		if err := st.Keyword.Index(ctx, id, keyword.Entry{Title: "posts.pdf", Content: c}); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Storage.BatchCreateChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if err := st.Save(); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestGenerator_Generate(t *testing.T) {
	emb := embedding.NewMockEmbedder(64)
	dir := buildIndex(t, emb, "Generate ideas: gold trading data shows a long setup", "unrelated weather report")
	model := llm.NewMock("LONG gold: Mock trading idea")
	g := NewGenerator(dir, searchCfg, emb, model, nil)
	defer g.Close()

	out, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "LONG gold: Mock trading idea" {
		t.Errorf("output = %q", out)
	}
	prompts := model.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("LLM calls = %d, want 1 (single tool needs no selection call)", len(prompts))
	}
	if !strings.Contains(prompts[0], Prompt) || !strings.Contains(prompts[0], "gold trading data") {
		t.Errorf("prompt = %s", prompts[0])
	}

	if _, err := g.Generate(context.Background()); err != nil {
		t.Errorf("second Generate reuses the open index: %v", err)
	}
}

func TestGenerator_missingIndex(t *testing.T) {
	g := NewGenerator(filepath.Join(t.TempDir(), "none"), searchCfg, embedding.NewMockEmbedder(8), llm.NewMock(), nil)
	_, err := g.Generate(context.Background())
	if !errors.Is(err, store.ErrNotBuilt) {
		t.Errorf("err = %v, want ErrNotBuilt", err)
	}
	if err := g.Close(); err != nil {
		t.Errorf("Close without open = %v", err)
	}
}

func TestGenerator_emptyIndex(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	dir := buildIndex(t, emb)
	model := llm.NewMock()
	g := NewGenerator(dir, searchCfg, emb, model, nil)
	defer g.Close()

	out, err := g.Generate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out != query.EmptyResponse {
		t.Errorf("output = %q", out)
	}
}

func TestGenerator_llmFailure(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	dir := buildIndex(t, emb, "gold data")
	boom := errors.New("rate limited")
	g := NewGenerator(dir, searchCfg, emb, llm.NewMock().FailWith(boom), nil)
	defer g.Close()
	if _, err := g.Generate(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
