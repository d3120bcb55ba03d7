package models

import "strings"

// URLIndex maps each unique URL to the first record that referenced it.
// URLs carrying an excluded prefix (short links) are never stored.
type URLIndex struct {
	excludePrefix string
	refs          map[string]RecordRef
	order         []string
}

// NewURLIndex returns an empty index that rejects URLs starting with excludePrefix.
// An empty excludePrefix rejects nothing.
func NewURLIndex(excludePrefix string) *URLIndex {
	return &URLIndex{
		excludePrefix: excludePrefix,
		refs:          make(map[string]RecordRef),
	}
}

// Add records url for ref if it is not excluded and not yet present.
// It reports whether the URL was newly added.
func (x *URLIndex) Add(url string, ref RecordRef) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		return false
	}
	if x.excludePrefix != "" && strings.HasPrefix(url, x.excludePrefix) {
		return false
	}
	if _, ok := x.refs[url]; ok {
		return false
	}
	x.refs[url] = ref
	x.order = append(x.order, url)
	return true
}

// Lookup returns the record that first referenced url.
func (x *URLIndex) Lookup(url string) (RecordRef, bool) {
	ref, ok := x.refs[url]
	return ref, ok
}

// URLs returns the indexed URLs in insertion order.
func (x *URLIndex) URLs() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

// Len returns the number of indexed URLs.
func (x *URLIndex) Len() int {
	return len(x.order)
}
