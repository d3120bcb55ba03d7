package models

// RetrievedChunk is a chunk selected as context, with its fused score.
type RetrievedChunk struct {
	Chunk         *DocumentChunk `json:"chunk"`
	DocumentTitle string         `json:"document_title"`
	Score         float64        `json:"score"`
	KeywordScore  float64        `json:"keyword_score"`
	SemanticScore float64        `json:"semantic_score"`
	Rank          int            `json:"rank"`
}

// GenerateResponse is the body of a successful generate request.
type GenerateResponse struct {
	GeneratedOutput string `json:"generated_output"`
}

// IndexStatus summarizes the persisted index.
type IndexStatus struct {
	Exists         bool  `json:"exists"`
	Documents      int   `json:"documents"`
	Chunks         int   `json:"chunks"`
	Vectors        int   `json:"vectors"`
	DiskUsageBytes int64 `json:"disk_usage_bytes"`
}
