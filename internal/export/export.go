// Package export writes an assembled report as a spreadsheet, CSV or JSON.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ajitpratap0/groupmapper/internal/report"
)

// Format is an output file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "xlsx", "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use xlsx, csv or json)", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/json"
	}
}

// Write encodes rep to w in format f.
func Write(w io.Writer, f Format, rep report.Report) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, rep)
	case FormatCSV:
		return WriteCSV(w, rep)
	case FormatJSON:
		return WriteJSON(w, rep)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Filename suggests a file name for rep, e.g. "acme_ltd_structure.xlsx".
func Filename(rep report.Report, f Format) string {
	base := strings.Trim(unsafeChars.ReplaceAllString(rep.Root.Name, "_"), "_")
	if base == "" {
		base = strings.Trim(unsafeChars.ReplaceAllString(rep.Root.ID, "_"), "_")
	}
	if base == "" {
		base = "company"
	}
	return strings.ToLower(base) + "_structure." + string(f)
}
