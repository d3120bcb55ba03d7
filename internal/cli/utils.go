// Package cli formats command output for the tradeidea CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hyperjump/tradeidea/internal/models"
	"github.com/hyperjump/tradeidea/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteIdea writes a generated trade idea. JSON output matches the body of
// the generate endpoint.
func WriteIdea(w io.Writer, idea string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, models.GenerateResponse{GeneratedOutput: idea})
	}
	_, err := fmt.Fprintf(w, "\n%s\n\n", idea)
	return err
}

// WriteRecordSummary writes one line per source file with its record and
// attached URL counts, in filename order.
func WriteRecordSummary(w io.Writer, set models.RecordSet) error {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	urls := 0
	for _, name := range names {
		n := 0
		for _, rec := range set[name] {
			n += len(rec.ExtractedURLs)
		}
		urls += n
		if _, err := fmt.Fprintf(w, "%-40s %5d records %5d urls\n", utils.Truncate(name, 37), len(set[name]), n); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d files, %d records, %d urls attached\n", len(names), set.Count(), urls)
	return err
}

// WriteIndexStatus writes the index summary.
func WriteIndexStatus(w io.Writer, st models.IndexStatus, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	if !st.Exists {
		_, err := fmt.Fprintln(w, "Index: not built")
		return err
	}
	_, err := fmt.Fprintf(w, "Index: %d documents, %d chunks, %d vectors, %s on disk\n",
		st.Documents, st.Chunks, st.Vectors, FormatBytes(st.DiskUsageBytes))
	return err
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
