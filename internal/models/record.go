package models

import "strings"

// URLResult is the scraped content of one URL.
type URLResult struct {
	URL             string `json:"url"`
	TextContent     string `json:"text_content"`
	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
}

// Record is one source row. ExtractedURLs is append-only and is filled once,
// after scraping, with results for URLs first seen in this row.
type Record struct {
	SourceFile    string      `json:"source_file"`
	Index         int         `json:"index"`
	Text          string      `json:"text"`
	FullText      string      `json:"full_text"`
	ExtractedURLs []URLResult `json:"extracted_urls,omitempty"`
}

// AttachURL appends a scraped result to the record.
func (r *Record) AttachURL(res URLResult) {
	r.ExtractedURLs = append(r.ExtractedURLs, res)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.ExtractedURLs != nil {
		c.ExtractedURLs = make([]URLResult, len(r.ExtractedURLs))
		copy(c.ExtractedURLs, r.ExtractedURLs)
	}
	return &c
}

// RecordRef locates a record by source file and positional index.
type RecordRef struct {
	SourceFile string
	Index      int
}

// RecordSet maps a source filename to its records in positional order
// (records[i].Index == i).
type RecordSet map[string][]*Record

// Lookup returns the record at ref, or nil.
func (s RecordSet) Lookup(ref RecordRef) *Record {
	recs := s[ref.SourceFile]
	if ref.Index < 0 || ref.Index >= len(recs) {
		return nil
	}
	return recs[ref.Index]
}

// Count returns the total number of records across all files.
func (s RecordSet) Count() int {
	n := 0
	for _, recs := range s {
		n += len(recs)
	}
	return n
}

// PDFTask is the self-contained input for rendering one PDF. Records are
// deep copies and share no memory with the RecordSet they came from.
type PDFTask struct {
	OutputFilename string
	Records        []*Record
}

// NewPDFTask builds a task for sourceFile, naming the output by replacing a
// trailing ".json" with ".pdf".
func NewPDFTask(sourceFile string, records []*Record) PDFTask {
	name := strings.TrimSuffix(sourceFile, ".json")
	if !strings.HasSuffix(name, ".pdf") {
		name += ".pdf"
	}
	copies := make([]*Record, len(records))
	for i, r := range records {
		copies[i] = r.Clone()
	}
	return PDFTask{OutputFilename: name, Records: copies}
}
