// Package main is the tradeidea CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/cli"
	"github.com/hyperjump/tradeidea/internal/config"
	"github.com/hyperjump/tradeidea/internal/embedding"
	"github.com/hyperjump/tradeidea/internal/idea"
	"github.com/hyperjump/tradeidea/internal/indexer"
	"github.com/hyperjump/tradeidea/internal/ingest"
	"github.com/hyperjump/tradeidea/internal/llm"
	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/internal/render"
	"github.com/hyperjump/tradeidea/internal/scheduler"
	"github.com/hyperjump/tradeidea/internal/scraper"
	"github.com/hyperjump/tradeidea/internal/server"
	"github.com/hyperjump/tradeidea/internal/store"
	"github.com/hyperjump/tradeidea/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "config.yaml"

// loadConfig loads config from path and the environment. A missing file at
// the default path is not an error: defaults relative to the working
// directory are used instead.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); err != nil && path == defaultConfigPath && errors.Is(err, os.ErrNotExist) {
		cfg = &config.Config{}
		config.ApplyDefaults(cfg)
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadEnv(cfg, filepath.Join(filepath.Dir(path), ".env"), ".env")
	return cfg, nil
}

// setup loads config and builds the logger shared by every subcommand.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debug
	logger, err := utils.NewLoggerWithFile(cfg.Debug, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "extract":
		runExtract()
	case "embed":
		runEmbed()
	case "generate":
		runGenerate()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("tradeidea version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func newOrchestrator(cfg *config.Config, logger *zap.Logger) *ingest.Orchestrator {
	fetcher := scraper.NewHTTPScraper(scraper.Options{
		Timeout:           time.Duration(cfg.Scrape.TimeoutSeconds) * time.Second,
		UserAgent:         cfg.Scrape.UserAgent,
		RequestsPerSecond: cfg.Scrape.RequestsPerSecond,
		Burst:             cfg.Scrape.Burst,
		MaxBodyBytes:      cfg.Scrape.MaxBodyBytes,
	}, logger)
	renderer := render.NewRenderer(cfg.Data.PDFDir, logger)
	return ingest.NewOrchestrator(ingest.Options{
		InputDir:        cfg.Data.InputDir,
		PDFDir:          cfg.Data.PDFDir,
		ShortLinkPrefix: cfg.Scrape.ShortLinkPrefix,
	},
		scraper.NewCoordinator(fetcher, cfg.Scrape.Workers, logger),
		render.NewCoordinator(renderer, cfg.Render.Workers, logger),
		logger,
	)
}

func newBuilder(cfg *config.Config, embedder embedding.Embedder, logger *zap.Logger) *indexer.Builder {
	return indexer.NewBuilder(indexer.Options{
		PDFDir:       cfg.Data.PDFDir,
		IndexDir:     cfg.Data.IndexDir,
		ChunkSize:    cfg.Search.ChunkSize,
		ChunkOverlap: cfg.Search.ChunkOverlap,
		BatchSize:    cfg.Embedding.BatchSize,
	}, embedder, indexer.WithLogger(logger))
}

// Components holds the services shared by the server and direct commands.
type Components struct {
	Embedder  embedding.Embedder
	LLM       llm.LLM
	Generator *idea.Generator
}

// Close releases the open index and the embedder.
func (c *Components) Close() {
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding, cfg.OpenAIAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	model, err := llm.New(cfg.LLM, cfg.OpenAIAPIKey)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	return &Components{
		Embedder:  embedder,
		LLM:       model,
		Generator: idea.NewGenerator(cfg.Data.IndexDir, cfg.Search, embedder, model, logger),
	}, nil
}

// schedulePipeline adds the extract job and, on its success, the embed job.
func schedulePipeline(s *scheduler.Scheduler, orch *ingest.Orchestrator, builder *indexer.Builder) error {
	_, err := scheduler.Chain(s,
		scheduler.Task{Name: "extract", Run: func(ctx context.Context) error {
			_, err := orch.Run(ctx)
			return err
		}},
		scheduler.Task{Name: "embed", Run: func(ctx context.Context) error {
			_, err := builder.Build(ctx)
			return err
		}},
	)
	return err
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", *configPath), zap.Bool("debug", cfg.Debug))

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	sched := scheduler.New(logger)
	if err := schedulePipeline(sched, newOrchestrator(cfg, logger), newBuilder(cfg, components.Embedder, logger)); err != nil {
		logger.Fatal("Failed to schedule pipeline", zap.Error(err))
	}
	sched.Start()

	srv := server.NewServer(components.Generator, sched, cfg.Server, cfg.Data, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sched.Shutdown(ctx); err != nil {
		logger.Warn("scheduler shutdown", zap.Error(err))
	}
	_ = srv.Stop(ctx)
}

func runExtract() {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	set, err := newOrchestrator(cfg, logger).Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecordSummary(os.Stdout, set); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	embedder, err := embedding.New(cfg.Embedding, cfg.OpenAIAPIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize embedder: %v\n", err)
		os.Exit(1)
	}
	defer embedder.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	built, err := newBuilder(cfg, embedder, logger).Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Indexing failed: %v\n", err)
		os.Exit(1)
	}
	if built {
		fmt.Printf("Index built in %s\n", cfg.Data.IndexDir)
	} else {
		fmt.Printf("Index not rebuilt (already present or no PDFs): %s\n", cfg.Data.IndexDir)
	}
}

func runGenerate() {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = query the local index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var out string
	if *serverURL != "" {
		// The server holds the index open; going through it avoids a second
		// process contending for the bleve and SQLite locks.
		out, err = generateViaHTTP(*serverURL)
	} else {
		out, err = generateDirect(*configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generate failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIdea(os.Stdout, out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func generateDirect(configPath string) (string, error) {
	cfg, logger := setup(configPath, false)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return "", err
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return components.Generator.Generate(ctx)
}

func generateViaHTTP(serverURL string) (string, error) {
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/generate", "application/json", nil)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, detail(b))
	}
	var out models.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.GeneratedOutput, nil
}

// detail returns the "detail" field of an error body, or the raw body.
func detail(body []byte) string {
	var e struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Detail != "" {
			return e.Detail
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Inspect(context.Background(), cfg.Data.IndexDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteIndexStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tradeidea - Trading idea generator over scraped social posts

Usage:
  tradeidea server [flags]     Run the extract/embed pipeline and the HTTP server
  tradeidea extract [flags]    Scrape linked pages and render one PDF per JSON file
  tradeidea embed [flags]      Build the retrieval index from the PDF directory
  tradeidea generate [flags]   Generate a trade idea
  tradeidea status [flags]     Show index status
  tradeidea version            Show version
  tradeidea help               Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml; defaults are used when absent)
  --debug            Enable debug logging (server, extract, embed)

Generate Flags:
  --server string    Server URL, e.g. http://localhost:8000. Empty queries the local index directly.
  --output string    Output format: text or json (default: text)

Status Flags:
  --output string    Output format: text or json (default: text)

Environment:
  OPENAI_API_KEY     API key for embeddings and completions (also read from .env)

Examples:
  tradeidea server
  tradeidea extract --config ./config.yaml
  tradeidea generate --server http://localhost:8000 --output json`)
}
