package models

import "testing"

func TestURLIndex_excludesShortLinks(t *testing.T) {
	idx := NewURLIndex("https://t.co/")
	ref := RecordRef{SourceFile: "a.json", Index: 0}

	if idx.Add("https://t.co/abc", ref) {
		t.Error("short link should be rejected")
	}
	if _, ok := idx.Lookup("https://t.co/abc"); ok {
		t.Error("short link must never be indexed")
	}
	if !idx.Add("https://example.com/t.co/abc", ref) {
		t.Error("prefix match only applies at the start")
	}
	if idx.Len() != 1 {
		t.Errorf("Len = %d, want 1", idx.Len())
	}
}

func TestURLIndex_firstSeenWins(t *testing.T) {
	idx := NewURLIndex("https://t.co/")
	first := RecordRef{SourceFile: "a.json", Index: 0}
	second := RecordRef{SourceFile: "b.json", Index: 3}

	if !idx.Add("https://example.com/a", first) {
		t.Fatal("first add should succeed")
	}
	if idx.Add("https://example.com/a", second) {
		t.Error("duplicate add should be rejected")
	}
	if idx.Add("  https://example.com/a ", second) {
		t.Error("surrounding whitespace should not create a new entry")
	}
	got, ok := idx.Lookup("https://example.com/a")
	if !ok || got != first {
		t.Errorf("Lookup = %+v, %v; want %+v", got, ok, first)
	}
	if idx.Add("", first) {
		t.Error("empty url should be rejected")
	}
}

func TestURLIndex_URLsInInsertionOrder(t *testing.T) {
	idx := NewURLIndex("")
	for i, u := range []string{"https://c", "https://a", "https://b", "https://a"} {
		idx.Add(u, RecordRef{Index: i})
	}
	urls := idx.URLs()
	want := []string{"https://c", "https://a", "https://b"}
	if len(urls) != len(want) {
		t.Fatalf("URLs = %v", urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("URLs[%d] = %s, want %s", i, urls[i], want[i])
		}
	}
	urls[0] = "mutated"
	if idx.URLs()[0] != "https://c" {
		t.Error("URLs must return a copy")
	}
}

func TestNewPDFTask_deepCopies(t *testing.T) {
	rec := &Record{SourceFile: "posts.json", Index: 0, Text: "t"}
	rec.AttachURL(URLResult{URL: "https://example.com", TextContent: "body"})

	task := NewPDFTask("posts.json", []*Record{rec})
	if task.OutputFilename != "posts.pdf" {
		t.Errorf("OutputFilename = %s", task.OutputFilename)
	}

	task.Records[0].Text = "changed"
	task.Records[0].ExtractedURLs[0].TextContent = "changed"
	if rec.Text != "t" || rec.ExtractedURLs[0].TextContent != "body" {
		t.Error("task records must not share memory with the source records")
	}
}

func TestNewPDFTask_keepsPDFName(t *testing.T) {
	if got := NewPDFTask("existing.pdf", nil).OutputFilename; got != "existing.pdf" {
		t.Errorf("OutputFilename = %s", got)
	}
}

func TestRecordSet_LookupAndCount(t *testing.T) {
	set := RecordSet{
		"a.json": {{SourceFile: "a.json", Index: 0}, {SourceFile: "a.json", Index: 1}},
		"b.json": {{SourceFile: "b.json", Index: 0}},
	}
	if set.Count() != 3 {
		t.Errorf("Count = %d", set.Count())
	}
	if r := set.Lookup(RecordRef{SourceFile: "a.json", Index: 1}); r == nil || r.Index != 1 {
		t.Errorf("Lookup = %+v", r)
	}
	if set.Lookup(RecordRef{SourceFile: "a.json", Index: 5}) != nil {
		t.Error("out of range lookup should be nil")
	}
	if set.Lookup(RecordRef{SourceFile: "missing.json"}) != nil {
		t.Error("missing file lookup should be nil")
	}
}
