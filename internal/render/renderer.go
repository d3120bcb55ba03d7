// Package render writes pipeline records to PDF documents.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/pkg/utils"
)

const (
	// TextBudget caps every primary text field written to a page.
	TextBudget = 1000
	// ExcerptBudget caps the scraped page content written per URL.
	ExcerptBudget = 500

	placeholder = '?'
	fontFamily  = "Helvetica"
	fontSize    = 12
	lineHeight  = 10
)

// Result is the outcome of rendering one task.
type Result struct {
	Filename string
	Err      error
}

// OK reports whether the PDF was written.
func (r Result) OK() bool {
	return r.Err == nil
}

// Renderer writes one PDF per task into an output directory.
type Renderer struct {
	outDir string
	logger *zap.Logger
}

// NewRenderer returns a renderer writing into outDir.
func NewRenderer(outDir string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{outDir: outDir, logger: logger}
}

// Render writes task to <outDir>/<task.OutputFilename>, one page per record.
// The file is written under a temporary name and renamed into place, so a
// failed render never leaves a partial PDF behind.
func (r *Renderer) Render(task models.PDFTask) (res Result) {
	res.Filename = task.OutputFilename
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("render panicked: %v", p)
		}
		if res.Err != nil {
			r.logger.Error("failed to create pdf", zap.String("file", task.OutputFilename), zap.Error(res.Err))
		}
	}()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont(fontFamily, "", fontSize)
	for _, rec := range task.Records {
		pdf.AddPage()
		for _, line := range EntryLines(rec) {
			pdf.MultiCell(0, lineHeight, line, "", "L", false)
		}
	}
	if len(task.Records) == 0 {
		pdf.AddPage()
	}
	if err := pdf.Error(); err != nil {
		res.Err = fmt.Errorf("layout: %w", err)
		return res
	}

	final := filepath.Join(r.outDir, task.OutputFilename)
	tmp := filepath.Join(r.outDir, "."+task.OutputFilename+".tmp")
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		os.Remove(tmp)
		res.Err = fmt.Errorf("write pdf: %w", err)
		return res
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		res.Err = fmt.Errorf("rename pdf: %w", err)
		return res
	}
	r.logger.Debug("created pdf", zap.String("path", final), zap.Int("entries", len(task.Records)))
	return res
}

// EntryLines returns the text blocks written for one record, in page order.
// Every field is converted to ASCII and cut to its budget.
func EntryLines(rec *models.Record) []string {
	lines := []string{
		fmt.Sprintf("Entry %d", rec.Index),
		"Text: " + clean(rec.Text, TextBudget),
		"Full Text: " + clean(rec.FullText, TextBudget),
	}
	if len(rec.ExtractedURLs) == 0 {
		return lines
	}
	lines = append(lines, "\nExtracted URLs:")
	for _, u := range rec.ExtractedURLs {
		lines = append(lines,
			"\nURL: "+clean(u.URL, TextBudget),
			"Title: "+clean(u.Title, TextBudget),
			"Description: "+clean(u.MetaDescription, TextBudget),
			"Content: "+clean(u.TextContent, ExcerptBudget),
		)
	}
	return lines
}

func clean(s string, budget int) string {
	return utils.TruncateRunes(utils.ToASCII(s, placeholder), budget)
}
