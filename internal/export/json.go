package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ajitpratap0/groupmapper/internal/report"
)

// WriteJSON writes rep as indented JSON.
func WriteJSON(w io.Writer, rep report.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
