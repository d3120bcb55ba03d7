package indexer

import (
	"path/filepath"
	"strings"
	"unicode"
)

// Preprocess normalizes extracted text for indexing: control characters
// become spaces and whitespace runs collapse to one space.
func Preprocess(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := true
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			if !wasSpace {
				b.WriteByte(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// keywordTitle drops the file extension and turns underscores and dashes into
// spaces so the standard analyzer splits "market_notes-2024.pdf" into words.
func keywordTitle(title string) string {
	title = strings.TrimSuffix(title, filepath.Ext(title))
	return strings.NewReplacer("_", " ", "-", " ").Replace(title)
}
