// Package extract reads the text back out of rendered PDFs.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned for file types the extractor cannot read.
var ErrUnsupported = errors.New("unsupported file type")

// Extractor extracts plain text from PDF files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether files with extension ext can be extracted.
func Supported(ext string) bool {
	return strings.EqualFold(ext, ".pdf")
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension,
// which includes the leading dot.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	if !Supported(ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, ext)
	}
	return extractPDF(content)
}
