package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.LogFile == "" {
		cfg.LogFile = "app.log"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeoutSeconds <= 0 {
		cfg.Server.RequestTimeoutSeconds = 180
	}
	if cfg.Data.InputDir == "" {
		cfg.Data.InputDir = "data/downloaded_files/data_dir"
	}
	if cfg.Data.PDFDir == "" {
		cfg.Data.PDFDir = "data/downloaded_files/pdfs_dir"
	}
	if cfg.Data.IndexDir == "" {
		cfg.Data.IndexDir = "data/storage"
	}
	if cfg.Scrape.Workers == 0 {
		cfg.Scrape.Workers = 10
	}
	if cfg.Scrape.TimeoutSeconds == 0 {
		cfg.Scrape.TimeoutSeconds = 30
	}
	if cfg.Scrape.UserAgent == "" {
		cfg.Scrape.UserAgent = "Mozilla/5.0 (compatible; TradeIdeaBot/1.0)"
	}
	if cfg.Scrape.RequestsPerSecond == 0 {
		cfg.Scrape.RequestsPerSecond = 10
	}
	if cfg.Scrape.Burst == 0 {
		cfg.Scrape.Burst = 20
	}
	if cfg.Scrape.ShortLinkPrefix == "" {
		cfg.Scrape.ShortLinkPrefix = "https://t.co/"
	}
	if cfg.Scrape.MaxBodyBytes == 0 {
		cfg.Scrape.MaxBodyBytes = 5 << 20
	}
	if cfg.Render.Workers == 0 {
		cfg.Render.Workers = 4
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 120
	}
	if cfg.Search.ChunkSize == 0 {
		cfg.Search.ChunkSize = 768
	}
	if cfg.Search.ChunkOverlap == 0 {
		cfg.Search.ChunkOverlap = 150
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 2
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 20
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.3
		cfg.Search.SemanticWeight = 0.7
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2
	}
}
