// Package fileid derives stable document IDs for rendered PDF files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "pdf:"

// DocID returns the document ID for a rendered PDF. Only the base name is
// hashed, so an index built in a staging directory or from a moved PDF
// directory keeps the same IDs.
func DocID(path string) string {
	name := strings.ToLower(filepath.Base(filepath.Clean(path)))
	hash := sha256.Sum256([]byte(name))
	return prefix + hex.EncodeToString(hash[:16])
}

// SourceJSON returns the input file a PDF was rendered from ("posts.pdf" ->
// "posts.json"). Names without a .pdf extension are returned unchanged.
func SourceJSON(path string) string {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	if !strings.EqualFold(ext, ".pdf") {
		return name
	}
	return strings.TrimSuffix(name, ext) + ".json"
}
