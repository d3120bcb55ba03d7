// Package ingest turns the JSON post exports into per-file PDF documents:
// it loads the rows, scrapes the links they reference and renders the result.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/models"
)

// ErrNoInput is returned when the input directory holds no JSON files.
var ErrNoInput = errors.New("no JSON input files to aggregate")

// BatchScraper scrapes a set of URLs and returns the successful results.
type BatchScraper interface {
	ScrapeAll(ctx context.Context, urls []string) map[string]models.URLResult
}

// BatchRenderer renders one PDF per source file and returns the written names.
type BatchRenderer interface {
	RenderAll(set models.RecordSet) []string
}

// Options configures an Orchestrator.
type Options struct {
	InputDir        string
	PDFDir          string
	ShortLinkPrefix string
}

// Orchestrator runs one extraction: JSON rows to records, links to scraped
// content, records to PDFs.
type Orchestrator struct {
	opts     Options
	scraper  BatchScraper
	renderer BatchRenderer
	logger   *zap.Logger
}

// NewOrchestrator returns an orchestrator using scraper and renderer.
func NewOrchestrator(opts Options, scraper BatchScraper, renderer BatchRenderer, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{opts: opts, scraper: scraper, renderer: renderer, logger: logger}
}

// Run performs the extraction. When the PDF directory already holds files
// nothing is loaded, scraped or rendered; records are synthesized from the
// existing PDFs instead.
func (o *Orchestrator) Run(ctx context.Context) (models.RecordSet, error) {
	start := time.Now()
	o.logger.Info("extracting data from json", zap.String("input_dir", o.opts.InputDir))

	for _, dir := range []string{o.opts.InputDir, o.opts.PDFDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	done, err := o.alreadyExtracted()
	if err != nil {
		return nil, err
	}
	if done {
		o.logger.Info("pdf files already exist, skipping extraction", zap.String("pdf_dir", o.opts.PDFDir))
		return o.existingRecords()
	}

	set, index, err := o.loadRecords()
	if err != nil {
		return nil, err
	}
	o.logger.Info("loaded records",
		zap.Int("files", len(set)),
		zap.Int("records", set.Count()),
		zap.Int("unique_urls", index.Len()))

	urls := index.URLs()
	scraped := o.scraper.ScrapeAll(ctx, urls)
	attached := 0
	// Walk in first-seen order so each record's results are deterministic.
	for _, url := range urls {
		res, ok := scraped[url]
		if !ok {
			continue
		}
		ref, _ := index.Lookup(url)
		if rec := set.Lookup(ref); rec != nil {
			rec.AttachURL(res)
			attached++
		}
	}

	written := o.renderer.RenderAll(set)
	o.logger.Info("extraction complete",
		zap.Int("urls_attached", attached),
		zap.Int("pdfs_written", len(written)),
		zap.Duration("elapsed", time.Since(start)))
	return set, nil
}

func (o *Orchestrator) alreadyExtracted() (bool, error) {
	entries, err := os.ReadDir(o.opts.PDFDir)
	if err != nil {
		return false, fmt.Errorf("read pdf directory: %w", err)
	}
	// Hidden entries are leftover temp files from an interrupted render.
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			return true, nil
		}
	}
	return false, nil
}

func (o *Orchestrator) existingRecords() (models.RecordSet, error) {
	entries, err := os.ReadDir(o.opts.PDFDir)
	if err != nil {
		return nil, fmt.Errorf("read pdf directory: %w", err)
	}
	set := models.RecordSet{}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		set[e.Name()] = []*models.Record{{
			SourceFile: e.Name(),
			Index:      0,
			Text:       e.Name(),
			FullText:   filepath.Join(o.opts.PDFDir, e.Name()),
		}}
	}
	return set, nil
}

// loadRecords reads every JSON file in name order, creating records keyed by
// file and row position and indexing the links each row references.
func (o *Orchestrator) loadRecords() (models.RecordSet, *models.URLIndex, error) {
	files, err := jsonFiles(o.opts.InputDir)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoInput, o.opts.InputDir)
	}

	set := models.RecordSet{}
	index := models.NewURLIndex(o.opts.ShortLinkPrefix)
	for _, name := range files {
		rows, err := LoadRows(filepath.Join(o.opts.InputDir, name))
		if err != nil {
			return nil, nil, err
		}
		recs := make([]*models.Record, len(rows))
		for i, row := range rows {
			recs[i] = &models.Record{
				SourceFile: name,
				Index:      i,
				Text:       string(row.Text),
				FullText:   string(row.FullText),
			}
			urls, ok := row.ExpandedURLs()
			if !ok {
				continue
			}
			for _, u := range urls {
				index.Add(u, models.RecordRef{SourceFile: name, Index: i})
			}
		}
		set[name] = recs
		o.logger.Debug("loaded json file", zap.String("file", name), zap.Int("rows", len(rows)))
	}
	return set, index, nil
}

func jsonFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadRows decodes a JSON file holding an array of post objects.
func LoadRows(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}
