package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ajitpratap0/groupmapper/internal/report"
)

// Sheet names of the workbook.
const (
	SheetStructure     = "Corporate Structure"
	SheetSummary       = "Summary"
	SheetJurisdictions = "By Jurisdiction"
	SheetWarnings      = "Warnings"
)

var structureHeader = []string{
	"Level", "Connected Via", "Company Name", "Jurisdiction", "Company Number",
	"Status", "Company Type", "Connection", "URL", "Category",
}

var structureWidths = []float64{8, 30, 40, 12, 15, 15, 25, 45, 50, 18}

// sheet accumulates the first error of a run of cell writes.
type sheet struct {
	f    *excelize.File
	name string
	err  error
}

func (s *sheet) set(col, row int, value any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellValue(s.name, cell, value)
}

func (s *sheet) style(fromCol, fromRow, toCol, toRow, style int) {
	if s.err != nil {
		return
	}
	from, err := excelize.CoordinatesToCellName(fromCol, fromRow)
	if err != nil {
		s.err = err
		return
	}
	to, err := excelize.CoordinatesToCellName(toCol, toRow)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellStyle(s.name, from, to, style)
}

func (s *sheet) link(col, row int, url string, style int) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	if s.err = s.f.SetCellValue(s.name, cell, url); s.err != nil {
		return
	}
	if s.err = s.f.SetCellHyperLink(s.name, cell, url, "External"); s.err != nil {
		return
	}
	s.err = s.f.SetCellStyle(s.name, cell, cell, style)
}

func (s *sheet) widths(widths ...float64) {
	for i, w := range widths {
		if s.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			s.err = err
			return
		}
		s.err = s.f.SetColWidth(s.name, col, col, w)
	}
}

type styles struct {
	header, body, link, title, bold int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Family: "Arial", Size: 11},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&st.body, &excelize.Style{Font: &excelize.Font{Family: "Arial", Size: 10}}},
		{&st.link, &excelize.Style{Font: &excelize.Font{Family: "Arial", Size: 10, Color: "0563C1", Underline: "single"}}},
		{&st.title, &excelize.Style{Font: &excelize.Font{Family: "Arial", Size: 14, Bold: true}}},
		{&st.bold, &excelize.Style{Font: &excelize.Font{Family: "Arial", Size: 10, Bold: true}}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("creating style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

// WriteXLSX writes rep as a workbook: the indented structure, a summary, a
// per-jurisdiction breakdown and, when present, the warnings.
func WriteXLSX(w io.Writer, rep report.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", SheetStructure); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	writers := []func(*excelize.File, report.Report, styles) error{
		writeStructure,
		writeSummary,
		writeJurisdictions,
	}
	if len(rep.Warnings) > 0 {
		writers = append(writers, writeWarnings)
	}
	for _, write := range writers {
		if err := write(f, rep, st); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeStructure(f *excelize.File, rep report.Report, st styles) error {
	s := &sheet{f: f, name: SheetStructure}
	for i, h := range structureHeader {
		s.set(i+1, 1, h)
	}
	s.style(1, 1, len(structureHeader), 1, st.header)

	for i, r := range rep.Rows {
		row := i + 2
		s.set(1, row, r.Level)
		s.set(2, row, r.ConnectedVia)
		s.set(3, row, r.DisplayName)
		s.set(4, row, strings.ToUpper(r.Jurisdiction))
		s.set(5, row, r.CompanyID)
		s.set(6, row, r.Status)
		s.set(7, row, r.Type)
		s.set(8, row, r.Evidence)
		s.set(10, row, r.Category.Title())
		s.style(1, row, len(structureHeader), row, st.body)
		if r.SourceURL != "" {
			s.link(9, row, r.SourceURL, st.link)
		}
	}
	s.widths(structureWidths...)
	if s.err != nil {
		return fmt.Errorf("writing %s sheet: %w", SheetStructure, s.err)
	}
	return nil
}

func writeSummary(f *excelize.File, rep report.Report, st styles) error {
	if _, err := f.NewSheet(SheetSummary); err != nil {
		return fmt.Errorf("creating %s sheet: %w", SheetSummary, err)
	}
	sum := rep.Summary
	s := &sheet{f: f, name: SheetSummary}

	s.set(1, 1, "Corporate Structure Analysis")
	s.style(1, 1, 1, 1, st.title)

	truncated := "No"
	if sum.Truncated {
		var reasons []string
		for _, t := range sum.Truncations {
			reason := fmt.Sprintf("%s at level %d", t.Reason, t.Level)
			if t.Dropped > 0 {
				reason += fmt.Sprintf(" (%d dropped)", t.Dropped)
			}
			reasons = append(reasons, reason)
		}
		truncated = "Yes: " + strings.Join(reasons, "; ")
	}

	facts := []struct {
		label string
		value any
	}{
		{"Root Company:", sum.RootName},
		{"Company Number:", sum.RootID},
		{"Total Entities:", sum.TotalCompanies},
		{"Run State:", string(sum.State)},
		{"Truncated:", truncated},
		{"Warnings:", sum.Warnings},
		{"Cross Links:", sum.CrossLinks},
		{"Shared Officers:", strings.Join(sum.SharedOfficers, ", ")},
	}
	row := 3
	for _, fact := range facts {
		s.set(1, row, fact.label)
		s.set(2, row, fact.value)
		s.style(1, row, 1, row, st.bold)
		row++
	}

	row++
	s.set(1, row, "Level")
	s.set(2, row, "Companies")
	s.style(1, row, 2, row, st.header)
	for _, level := range sum.Levels() {
		row++
		s.set(1, row, level)
		s.set(2, row, sum.ByLevel[level])
	}

	row += 2
	s.set(1, row, "Category")
	s.set(2, row, "Companies")
	s.style(1, row, 2, row, st.header)
	for _, c := range report.Categories {
		row++
		s.set(1, row, c.Title())
		s.set(2, row, sum.ByCategory[c])
	}

	s.widths(25, 60)
	if s.err != nil {
		return fmt.Errorf("writing %s sheet: %w", SheetSummary, s.err)
	}
	return nil
}

func writeJurisdictions(f *excelize.File, rep report.Report, st styles) error {
	if _, err := f.NewSheet(SheetJurisdictions); err != nil {
		return fmt.Errorf("creating %s sheet: %w", SheetJurisdictions, err)
	}
	s := &sheet{f: f, name: SheetJurisdictions}
	for i, h := range []string{"Jurisdiction", "Company Count", "Companies"} {
		s.set(i+1, 1, h)
	}
	s.style(1, 1, 3, 1, st.header)

	names := make(map[string][]string)
	for _, r := range rep.Rows {
		jur := strings.ToLower(r.Jurisdiction)
		if jur == "" {
			jur = "unknown"
		}
		names[jur] = append(names[jur], r.Name)
	}
	for i, jur := range rep.Summary.Jurisdictions() {
		row := i + 2
		s.set(1, row, strings.ToUpper(jur))
		s.set(2, row, rep.Summary.ByJurisdiction[jur])
		s.set(3, row, strings.Join(names[jur], ", "))
	}
	s.widths(15, 15, 100)
	if s.err != nil {
		return fmt.Errorf("writing %s sheet: %w", SheetJurisdictions, s.err)
	}
	return nil
}

func writeWarnings(f *excelize.File, rep report.Report, st styles) error {
	if _, err := f.NewSheet(SheetWarnings); err != nil {
		return fmt.Errorf("creating %s sheet: %w", SheetWarnings, err)
	}
	s := &sheet{f: f, name: SheetWarnings}
	for i, h := range []string{"Company", "Level", "Operation", "Message"} {
		s.set(i+1, 1, h)
	}
	s.style(1, 1, 4, 1, st.header)
	for i, warn := range rep.Warnings {
		row := i + 2
		s.set(1, row, warn.CompanyID)
		s.set(2, row, warn.Level)
		s.set(3, row, warn.Op)
		s.set(4, row, warn.Message)
	}
	s.widths(18, 8, 28, 90)
	if s.err != nil {
		return fmt.Errorf("writing %s sheet: %w", SheetWarnings, s.err)
	}
	return nil
}
