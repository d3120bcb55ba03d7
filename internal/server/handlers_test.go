package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/config"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/scheduler"
	"github.com/hyperjump/tradeidea/internal/store"
)

type stubGenerator struct {
	out string
	err error
}

func (g stubGenerator) Generate(context.Context) (string, error) { return g.out, g.err }

type stubJobs []scheduler.Job

func (j stubJobs) Jobs() []scheduler.Job { return j }

func newTestServer(t *testing.T, gen Generator, jobs JobLister) (*Server, config.DataConfig) {
	t.Helper()
	root := t.TempDir()
	data := config.DataConfig{
		InputDir: filepath.Join(root, "json"),
		PDFDir:   filepath.Join(root, "pdfs"),
		IndexDir: filepath.Join(root, "storage"),
	}
	return NewServer(gen, jobs, config.ServerConfig{Port: 8000}, data, zap.NewNop()), data
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandleRoot(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{}, nil)
	w := do(t, srv.Handler(), http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["message"] != "Welcome to Trading Idea Generator!" || body["status"] != "healthy" || len(body) != 2 {
		t.Errorf("body = %v", body)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{}, nil)
	w := do(t, srv.Handler(), http.MethodGet, "/health")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}
}

func TestHandleGenerate(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{out: "Mock trading idea: LONG XLE"}, nil)
	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/generate")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp models.GenerateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.GeneratedOutput, "Mock trading idea") {
		t.Errorf("generated_output = %q", resp.GeneratedOutput)
	}
}

func TestHandleGenerate_failure(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{err: errors.New("Vector store error")}, nil)
	w := do(t, srv.Handler(), http.MethodPost, "/api/v1/generate")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["detail"] != "Error generating trade idea: Vector store error" {
		t.Errorf("detail = %q", body["detail"])
	}
}

func TestHandleGenerate_methodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, stubGenerator{}, nil)
	if w := do(t, srv.Handler(), http.MethodGet, "/api/v1/generate"); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET generate = %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	jobs := stubJobs{{ID: "1", Name: "extract", State: scheduler.StateSucceeded}}
	srv, data := newTestServer(t, stubGenerator{}, jobs)

	if err := os.MkdirAll(data.PDFDir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.pdf", "b.PDF", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(data.PDFDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	w := do(t, srv.Handler(), http.MethodGet, "/api/v1/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var out statusResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.PDFFiles != 2 || len(out.Jobs) != 1 || out.Jobs[0].Name != "extract" || out.Index.Exists {
		t.Errorf("status = %+v", out)
	}

	st, err := store.Create(data.IndexDir, 2)
	if err != nil {
		t.Fatal(err)
	}
	_ = st.Storage.CreateDocument(context.Background(), &models.Document{ID: "d", Title: "a.pdf", Content: "x"})
	if err := st.Save(); err != nil {
		t.Fatal(err)
	}
	_ = st.Close()

	w = do(t, srv.Handler(), http.MethodGet, "/api/v1/status")
	out = statusResponse{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Index.Exists || out.Index.Documents != 1 || out.Index.DiskUsageBytes <= 0 {
		t.Errorf("index = %+v", out.Index)
	}
}
