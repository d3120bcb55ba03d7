package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/extract"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/render"
)

type stubScraper struct {
	mu      sync.Mutex
	calls   int
	seen    []string
	succeed func(url string) bool
}

func (s *stubScraper) ScrapeAll(_ context.Context, urls []string) map[string]models.URLResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.seen = append(s.seen, urls...)
	out := map[string]models.URLResult{}
	for _, u := range urls {
		if s.succeed == nil || s.succeed(u) {
			out[u] = models.URLResult{URL: u, Title: "Title of " + u, TextContent: "Scraped body"}
		}
	}
	return out
}

type countingRenderer struct {
	inner BatchRenderer
	calls int
}

func (c *countingRenderer) RenderAll(set models.RecordSet) []string {
	c.calls++
	return c.inner.RenderAll(set)
}

type fixture struct {
	inputDir string
	pdfDir   string
	scraper  *stubScraper
	renderer *countingRenderer
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		inputDir: filepath.Join(root, "json"),
		pdfDir:   filepath.Join(root, "pdfs"),
		scraper:  &stubScraper{},
	}
	f.renderer = &countingRenderer{
		inner: render.NewCoordinator(render.NewRenderer(f.pdfDir, zap.NewNop()), 2, zap.NewNop()),
	}
	f.orch = NewOrchestrator(Options{
		InputDir:        f.inputDir,
		PDFDir:          f.pdfDir,
		ShortLinkPrefix: "https://t.co/",
	}, f.scraper, f.renderer, zap.NewNop())
	return f
}

func (f *fixture) writeJSON(t *testing.T, name, content string) {
	t.Helper()
	if err := os.MkdirAll(f.inputDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.inputDir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) pdfText(t *testing.T, name string) string {
	t.Helper()
	text, err := extract.NewExtractor().Extract(filepath.Join(f.pdfDir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return text
}

const twoRows = `[
  {
    "text": "Row zero",
    "fullText": "Row zero full",
    "author": {"entities": {"url": {"urls": [
      {"expanded_url": "https://example.com/a"},
      {"expanded_url": "https://t.co/short"}
    ]}}}
  },
  {"text": "Row one", "fullText": "Row one full"}
]`

func TestRun_oneFileTwoRows(t *testing.T) {
	f := newFixture(t)
	f.writeJSON(t, "posts.json", twoRows)

	set, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	recs := set["posts.json"]
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if len(recs[0].ExtractedURLs) != 1 || recs[0].ExtractedURLs[0].URL != "https://example.com/a" {
		t.Errorf("row 0 urls = %+v", recs[0].ExtractedURLs)
	}
	if len(recs[1].ExtractedURLs) != 0 {
		t.Errorf("row 1 urls = %+v", recs[1].ExtractedURLs)
	}
	if len(f.scraper.seen) != 1 || f.scraper.seen[0] != "https://example.com/a" {
		t.Errorf("scraped urls = %v, short links must be excluded", f.scraper.seen)
	}

	entries, _ := os.ReadDir(f.pdfDir)
	if len(entries) != 1 || entries[0].Name() != "posts.pdf" {
		t.Fatalf("pdf dir = %v", entries)
	}
	text := f.pdfText(t, "posts.pdf")
	for _, want := range []string{"Entry 0", "Row zero", "Entry 1", "Row one", "Title of https://example.com/a"} {
		if !strings.Contains(text, want) {
			t.Errorf("pdf missing %q", want)
		}
	}
	if n := strings.Count(text, "Extracted URLs:"); n != 1 {
		t.Errorf("extracted url blocks = %d, want 1", n)
	}
}

func TestRun_allScrapesFail(t *testing.T) {
	f := newFixture(t)
	f.scraper.succeed = func(string) bool { return false }
	f.writeJSON(t, "posts.json", twoRows)

	set, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, rec := range set["posts.json"] {
		if len(rec.ExtractedURLs) != 0 {
			t.Errorf("record %d has urls %+v", rec.Index, rec.ExtractedURLs)
		}
	}
	text := f.pdfText(t, "posts.pdf")
	if strings.Contains(text, "Extracted URLs:") {
		t.Error("pdf should have no extracted url blocks")
	}
	if !strings.Contains(text, "Row one") {
		t.Error("pdf should still contain the rows")
	}
}

func TestRun_prepopulatedPDFDir(t *testing.T) {
	f := newFixture(t)
	f.writeJSON(t, "posts.json", twoRows)
	if err := os.MkdirAll(f.pdfDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.pdfDir, "old.pdf"), []byte("%PDF-1.3"), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(set) != 1 {
		t.Fatalf("set = %v", set)
	}
	recs := set["old.pdf"]
	if len(recs) != 1 {
		t.Fatalf("records = %v", recs)
	}
	if recs[0].Text != "old.pdf" || recs[0].FullText != filepath.Join(f.pdfDir, "old.pdf") || recs[0].Index != 0 {
		t.Errorf("synthetic record = %+v", recs[0])
	}
	if f.scraper.calls != 0 || f.renderer.calls != 0 {
		t.Errorf("scraper calls = %d, renderer calls = %d; want none", f.scraper.calls, f.renderer.calls)
	}
}

func TestRun_leftoverTempFileDoesNotSkip(t *testing.T) {
	f := newFixture(t)
	f.writeJSON(t, "posts.json", twoRows)
	if err := os.MkdirAll(f.pdfDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(f.pdfDir, ".posts.pdf.tmp"), []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(set["posts.json"]) != 2 {
		t.Fatalf("set = %v", set)
	}
	if f.scraper.calls != 1 || f.renderer.calls != 1 {
		t.Errorf("scraper calls = %d, renderer calls = %d; want 1 each", f.scraper.calls, f.renderer.calls)
	}
}

func TestRun_secondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	f.writeJSON(t, "posts.json", twoRows)

	if _, err := f.orch.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := f.orch.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.scraper.calls != 1 || f.renderer.calls != 1 {
		t.Errorf("scraper calls = %d, renderer calls = %d; want 1 each", f.scraper.calls, f.renderer.calls)
	}
}

func TestRun_firstSeenWinsAcrossFiles(t *testing.T) {
	f := newFixture(t)
	shared := `{"text": "%s", "fullText": "", "author": {"entities": {"url": {"urls": [{"expanded_url": "https://example.com/shared"}]}}}}`
	f.writeJSON(t, "a.json", "["+strings.Replace(shared, "%s", "a0", 1)+"]")
	f.writeJSON(t, "b.json", "["+strings.Replace(shared, "%s", "b0", 1)+"]")

	set, err := f.orch.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(f.scraper.seen) != 1 {
		t.Errorf("shared url scraped %d times", len(f.scraper.seen))
	}
	if len(set["a.json"][0].ExtractedURLs) != 1 {
		t.Error("first referencing record should receive the result")
	}
	if len(set["b.json"][0].ExtractedURLs) != 0 {
		t.Error("later records should not receive the result")
	}
}

func TestRun_noInputFiles(t *testing.T) {
	f := newFixture(t)
	_, err := f.orch.Run(context.Background())
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("err = %v, want ErrNoInput", err)
	}
	for _, dir := range []string{f.inputDir, f.pdfDir} {
		if _, statErr := os.Stat(dir); statErr != nil {
			t.Errorf("directory %s should be created: %v", dir, statErr)
		}
	}
}

func TestRun_malformedJSON(t *testing.T) {
	f := newFixture(t)
	f.writeJSON(t, "bad.json", `{"text": "not an array"}`)
	if _, err := f.orch.Run(context.Background()); err == nil {
		t.Error("expected error for malformed input")
	}
	if f.scraper.calls != 0 {
		t.Error("scraping should not start after a structural failure")
	}
}

func TestRun_uncreatableDirectory(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	orch := NewOrchestrator(Options{
		InputDir: filepath.Join(blocker, "json"),
		PDFDir:   filepath.Join(root, "pdfs"),
	}, &stubScraper{}, &countingRenderer{}, nil)
	if _, err := orch.Run(context.Background()); err == nil {
		t.Error("expected error when the input directory cannot be created")
	}
}
