package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/embedding"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/render"
	"github.com/hyperjump/tradeidea/internal/scraper"
	"github.com/hyperjump/tradeidea/internal/search"
	"github.com/hyperjump/tradeidea/internal/vector"
)

func BenchmarkFuse(b *testing.B) {
	kw := make(map[string]float64)
	sem := make(map[string]float64)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("chunk-%d", i)
		kw[id] = float64(i) / 100
		sem[id] = float64(100-i) / 100
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Fuse(kw, sem, 0.3, 0.7)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	idx, _ := vector.NewMemoryIndex(1536)
	ctx := context.Background()
	vecs := make([][]float32, 1000)
	ids := make([]string, 1000)
	for i := 0; i < 1000; i++ {
		vecs[i] = make([]float32, 1536)
		vecs[i][0] = float32(i) / 1000
		ids[i] = fmt.Sprintf("chunk-%d", i)
	}
	_ = idx.Add(ctx, ids, vecs)
	query := make([]float32, 1536)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, query, 2)
	}
}

func BenchmarkMockEmbedder_Embed(b *testing.B) {
	e := embedding.NewMockEmbedder(1536)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "Generate a trading idea(long/short) based on the given data")
	}
}

func BenchmarkParseHTML(b *testing.B) {
	page := `<html><head><title>Copper supply squeeze</title>
<meta name="description" content="Mines cut output"></head><body><script>var x;</script>` +
		strings.Repeat("<p>Copper inventories fell for the third week.</p>", 200) +
		`</body></html>`
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = scraper.ParseHTML(strings.NewReader(page))
	}
}

func BenchmarkRender(b *testing.B) {
	recs := make([]*models.Record, 50)
	for i := range recs {
		recs[i] = &models.Record{
			SourceFile: "posts.json",
			Index:      i,
			Text:       "Gold breaks out above resistance",
			FullText:   strings.Repeat("Gold breaks out above resistance on rate cut bets. ", 10),
			ExtractedURLs: []models.URLResult{{
				URL:         "https://example.com/gold",
				Title:       "Gold rallies",
				TextContent: strings.Repeat("Spot gold rose 2% on Tuesday. ", 40),
			}},
		}
	}
	r := render.NewRenderer(b.TempDir(), zap.NewNop())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if res := r.Render(models.NewPDFTask("posts.json", recs)); !res.OK() {
			b.Fatal(res.Err)
		}
	}
}
