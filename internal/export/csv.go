package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ajitpratap0/groupmapper/internal/report"
)

var csvHeader = []string{"level", "company_id", "name", "jurisdiction", "status", "type", "connected_via", "evidence", "source_url", "category"}

// WriteCSV writes one line per report row.
func WriteCSV(w io.Writer, rep report.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range rep.Rows {
		row := []string{
			strconv.Itoa(r.Level),
			r.CompanyID,
			r.Name,
			r.Jurisdiction,
			r.Status,
			r.Type,
			r.ConnectedVia,
			r.Evidence,
			r.SourceURL,
			string(r.Category),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}
