// Package config provides configuration loading and structs for the trading idea pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv is the environment variable holding the OpenAI API key.
const APIKeyEnv = "OPENAI_API_KEY"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogFile   string          `yaml:"log_file"`
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Render    RenderConfig    `yaml:"render"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Search    SearchConfig    `yaml:"search"`

	// OpenAIAPIKey is read from the environment, never from the config file.
	OpenAIAPIKey string `yaml:"-"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RequestTimeoutSeconds bounds each request, including idea generation.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// DataConfig holds the pipeline directories.
type DataConfig struct {
	InputDir string `yaml:"input_dir"`
	PDFDir   string `yaml:"pdf_dir"`
	IndexDir string `yaml:"index_dir"`
}

// ScrapeConfig holds URL scraping settings.
type ScrapeConfig struct {
	Workers           int     `yaml:"workers"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	UserAgent         string  `yaml:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	ShortLinkPrefix   string  `yaml:"short_link_prefix"`
	MaxBodyBytes      int64   `yaml:"max_body_bytes"`
}

// RenderConfig holds PDF rendering settings.
type RenderConfig struct {
	Workers int `yaml:"workers"`
}

// EmbeddingConfig holds embedder settings. Provider is "openai" or "mock".
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig holds completion model settings. Provider is "openai" or "mock".
type LLMConfig struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	Temperature    float64 `yaml:"temperature"`
}

// SearchConfig holds chunking and retrieval settings.
type SearchConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	KeywordWeight  float64 `yaml:"keyword_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
	TitleBoost     float64 `yaml:"title_boost"`
	Fuzzy          bool    `yaml:"fuzzy"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.LogFile = expandPath(cfg.LogFile, configDir)
	cfg.Data.InputDir = expandPath(cfg.Data.InputDir, configDir)
	cfg.Data.PDFDir = expandPath(cfg.Data.PDFDir, configDir)
	cfg.Data.IndexDir = expandPath(cfg.Data.IndexDir, configDir)

	return &cfg, nil
}

// LoadEnv loads .env files (missing files are ignored) and copies secrets
// from the environment into cfg. Variables already set in the process
// environment win over .env values.
func LoadEnv(cfg *Config, envFiles ...string) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.OpenAIAPIKey = key
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// "~/" is relative to the home directory; other relative paths are left to the working directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
