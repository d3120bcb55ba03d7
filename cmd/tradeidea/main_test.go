package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/config"
	"github.com/hyperjump/tradeidea/internal/embedding"
	"github.com/hyperjump/tradeidea/internal/scheduler"
)

func TestLoadConfig_missingDefaultUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(config.APIKeyEnv, "sk-env")

	cfg, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Port != 8000 || cfg.Scrape.Workers != 10 || cfg.Render.Workers != 4 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.OpenAIAPIKey != "sk-env" {
		t.Errorf("OpenAIAPIKey = %q", cfg.OpenAIAPIKey)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config path")
	}
}

func TestDetail(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"detail":"Error generating trade idea: boom"}`, "Error generating trade idea: boom"},
		{`{"error":"not found"}`, "not found"},
		{"upstream down\n", "upstream down"},
	}
	for _, tt := range tests {
		if got := detail([]byte(tt.body)); got != tt.want {
			t.Errorf("detail(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestGenerateViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/generate" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"generated_output":"LONG: copper"}`))
	}))
	defer srv.Close()

	out, err := generateViaHTTP(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	if out != "LONG: copper" {
		t.Errorf("out = %q", out)
	}
}

func TestGenerateViaHTTP_serverError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Error generating trade idea: no index"}`))
	}))
	defer srv.Close()

	_, err := generateViaHTTP(srv.URL)
	if err == nil || !strings.Contains(err.Error(), "no index") {
		t.Errorf("err = %v", err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Data = config.DataConfig{
		InputDir: filepath.Join(root, "json"),
		PDFDir:   filepath.Join(root, "pdfs"),
		IndexDir: filepath.Join(root, "storage"),
	}
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 16
	return cfg
}

// waitJobs polls until n jobs exist and none is pending or running.
func waitJobs(t *testing.T, s *scheduler.Scheduler, n int) []scheduler.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		jobs := s.Jobs()
		if len(jobs) == n {
			done := true
			for _, j := range jobs {
				if j.State == scheduler.StatePending || j.State == scheduler.StateRunning {
					done = false
				}
			}
			if done {
				return jobs
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("jobs did not settle: %+v", s.Jobs())
	return nil
}

func TestSchedulePipeline_failedExtractSkipsEmbed(t *testing.T) {
	cfg := testConfig(t)
	embedder, _ := embedding.New(cfg.Embedding, "")
	s := scheduler.New(zap.NewNop())
	if err := schedulePipeline(s, newOrchestrator(cfg, zap.NewNop()), newBuilder(cfg, embedder, zap.NewNop())); err != nil {
		t.Fatal(err)
	}
	s.Start()

	// No JSON input: extraction fails.
	jobs := waitJobs(t, s, 1)
	time.Sleep(50 * time.Millisecond)
	if len(s.Jobs()) != 1 {
		t.Fatalf("embed must not be scheduled: %+v", s.Jobs())
	}
	if jobs[0].Name != "extract" || jobs[0].State != scheduler.StateFailed {
		t.Errorf("extract job = %+v", jobs[0])
	}
	_ = s.Shutdown(context.Background())
}

func TestSchedulePipeline_extractThenEmbed(t *testing.T) {
	cfg := testConfig(t)
	// A populated PDF dir makes extraction a no-op success.
	if err := os.MkdirAll(cfg.Data.PDFDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Data.PDFDir, "posts.pdf"), []byte("not really a pdf"), 0644); err != nil {
		t.Fatal(err)
	}
	embedder, _ := embedding.New(cfg.Embedding, "")
	s := scheduler.New(zap.NewNop())
	if err := schedulePipeline(s, newOrchestrator(cfg, zap.NewNop()), newBuilder(cfg, embedder, zap.NewNop())); err != nil {
		t.Fatal(err)
	}
	s.Start()

	jobs := waitJobs(t, s, 2)
	if jobs[0].Name != "extract" || jobs[1].Name != "embed" {
		t.Fatalf("jobs = %+v", jobs)
	}
	for _, j := range jobs {
		if j.State != scheduler.StateSucceeded {
			t.Errorf("job %s state = %s (%s)", j.Name, j.State, j.Error)
		}
	}
	_ = s.Shutdown(context.Background())
}
