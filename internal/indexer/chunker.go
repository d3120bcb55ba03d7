// Package indexer builds the persisted retrieval index from the rendered PDFs.
package indexer

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hyperjump/tradeidea/internal/models"
)

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
// A non-positive size defaults to 768 words.
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 768
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text into DocumentChunks with overlapping windows.
func (c *Chunker) Chunk(docID, text string) []*models.DocumentChunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	var chunks []*models.DocumentChunk
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, &models.DocumentChunk{
			ID:         uuid.NewString(),
			DocumentID: docID,
			Content:    strings.Join(words[i:end], " "),
			ChunkIndex: len(chunks),
		})
		if end >= len(words) {
			break
		}
	}
	return chunks
}
