package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Row is one post as it appears in an input JSON file. Only the fields the
// pipeline reads are declared; everything else is ignored.
type Row struct {
	Text     Text    `json:"text"`
	FullText Text    `json:"fullText"`
	Author   *Author `json:"author"`
}

// Author is the optional author object of a post.
type Author struct {
	Entities *Entities `json:"entities"`
}

// Entities holds the optional entity groups of an author.
type Entities struct {
	URL *URLEntity `json:"url"`
}

// URLEntity lists the links found in an author entity.
type URLEntity struct {
	URLs []URLRef `json:"urls"`
}

// URLRef is a single shortened link and its expansion.
type URLRef struct {
	ExpandedURL string `json:"expanded_url"`
}

// ExpandedURLs walks author.entities.url.urls[].expanded_url and reports
// whether the path was present.
func (r Row) ExpandedURLs() ([]string, bool) {
	ent, ok := r.Author.entities()
	if !ok {
		return nil, false
	}
	refs, ok := ent.urlRefs()
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.ExpandedURL != "" {
			out = append(out, ref.ExpandedURL)
		}
	}
	return out, true
}

func (a *Author) entities() (*Entities, bool) {
	if a == nil || a.Entities == nil {
		return nil, false
	}
	return a.Entities, true
}

func (e *Entities) urlRefs() ([]URLRef, bool) {
	if e.URL == nil || e.URL.URLs == nil {
		return nil, false
	}
	return e.URL.URLs, true
}

// Text is a string field that tolerates null and scalar JSON values,
// which some exports emit in place of empty or numeric text.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*t = Text(data)
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("text field: unsupported value %s", data)
		}
		*t = Text(data)
	}
	return nil
}
