// Package report flattens a mapping result into ordered rows and summary
// counts for spreadsheet, CSV and JSON writers. It performs no I/O.
package report

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/groupmapper/internal/models"
)

// RootEvidence is the evidence text of the root row.
const RootEvidence = "Root entity"

// Row is one company in hierarchy order.
type Row struct {
	Level          int      `json:"level"`
	IndentLevel    int      `json:"indent_level"`
	CompanyID      string   `json:"company_id"`
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	Jurisdiction   string   `json:"jurisdiction,omitempty"`
	Status         string   `json:"status,omitempty"`
	Type           string   `json:"type,omitempty"`
	IncorporatedOn string   `json:"incorporated_on,omitempty"`
	ConnectedVia   string   `json:"connected_via,omitempty"`
	Evidence       string   `json:"evidence"`
	SourceURL      string   `json:"source_url,omitempty"`
	Category       Category `json:"category"`
}

// Summary holds the counts shown alongside the rows.
type Summary struct {
	RootID         string              `json:"root_id"`
	RootName       string              `json:"root_name"`
	State          models.RunState     `json:"state"`
	TotalCompanies int                 `json:"total_companies"`
	ByLevel        map[int]int         `json:"by_level"`
	ByJurisdiction map[string]int      `json:"by_jurisdiction"`
	ByCategory     map[Category]int    `json:"by_category"`
	Truncated      bool                `json:"truncated"`
	Truncations    []models.Truncation `json:"truncations,omitempty"`
	Warnings       int                 `json:"warnings"`
	CrossLinks     int                 `json:"cross_links"`
	SharedOfficers []string            `json:"shared_officers"`
}

// Report is a mapping result ready for a writer.
type Report struct {
	Root       models.Company      `json:"root"`
	Rows       []Row               `json:"rows"`
	Summary    Summary             `json:"summary"`
	Warnings   []models.Warning    `json:"warnings,omitempty"`
	CrossLinks []models.Connection `json:"cross_links,omitempty"`
}

// Assemble builds the full report for r.
func Assemble(r *models.MappingResult) Report {
	return Report{
		Root:       r.Root,
		Rows:       ToRows(r),
		Summary:    Summarize(r),
		Warnings:   r.Warnings,
		CrossLinks: r.CrossLinks,
	}
}

// ToRows orders companies by level, then name, then id. Each row names the
// companies it was reached from and the officers evidencing it.
func ToRows(r *models.MappingResult) []Row {
	names := make(map[string]string, len(r.Levels))
	for _, e := range r.Levels {
		names[e.Company.ID] = e.Company.Name
	}

	rows := make([]Row, 0, len(r.Levels))
	for _, e := range r.Levels {
		c := e.Company
		row := Row{
			Level:          e.Level,
			IndentLevel:    e.Level,
			CompanyID:      c.ID,
			Name:           c.Name,
			DisplayName:    strings.Repeat("  ", e.Level) + c.Name,
			Jurisdiction:   c.Jurisdiction,
			Status:         c.Status,
			Type:           c.Type,
			IncorporatedOn: c.IncorporatedOn,
			SourceURL:      c.SourceURL,
			Category:       Categorize(c, r.Root.Name),
		}
		if e.Level == 0 {
			row.Evidence = RootEvidence
		} else {
			row.ConnectedVia, row.Evidence = describe(e.Connections, names)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name); la != lb {
			return la < lb
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.CompanyID < b.CompanyID
	})
	return rows
}

func describe(conns []models.Connection, names map[string]string) (via, evidence string) {
	var parents, texts []string
	seenParent := make(map[string]bool)
	for _, c := range conns {
		if !seenParent[c.FromCompanyID] {
			seenParent[c.FromCompanyID] = true
			name := names[c.FromCompanyID]
			if name == "" {
				name = c.FromCompanyID
			}
			parents = append(parents, name)
		}
		texts = append(texts, c.Evidence)
	}
	return strings.Join(parents, "; "), strings.Join(texts, "; ")
}

// Summarize counts companies per level, jurisdiction and category and lists the
// distinct officers cited as evidence.
func Summarize(r *models.MappingResult) Summary {
	s := Summary{
		RootID:         r.Root.ID,
		RootName:       r.Root.Name,
		State:          r.State,
		TotalCompanies: len(r.Levels),
		ByLevel:        make(map[int]int),
		ByJurisdiction: make(map[string]int),
		ByCategory:     make(map[Category]int),
		Truncated:      r.Truncated,
		Truncations:    r.Truncations,
		Warnings:       len(r.Warnings),
		CrossLinks:     len(r.CrossLinks),
		SharedOfficers: []string{},
	}

	officers := make(map[string]string)
	for _, e := range r.Levels {
		s.ByLevel[e.Level]++
		jur := strings.ToLower(e.Company.Jurisdiction)
		if jur == "" {
			jur = "unknown"
		}
		s.ByJurisdiction[jur]++
		s.ByCategory[Categorize(e.Company, r.Root.Name)]++
		for _, c := range e.Connections {
			key := models.NormalizeName(c.OfficerName)
			if _, ok := officers[key]; !ok {
				officers[key] = c.OfficerName
			}
		}
	}
	for _, name := range officers {
		s.SharedOfficers = append(s.SharedOfficers, name)
	}
	sort.Strings(s.SharedOfficers)
	return s
}

// Levels returns the levels present in s in ascending order.
func (s Summary) Levels() []int {
	levels := make([]int, 0, len(s.ByLevel))
	for l := range s.ByLevel {
		levels = append(levels, l)
	}
	sort.Ints(levels)
	return levels
}

// Jurisdictions returns jurisdictions by descending company count, then name.
func (s Summary) Jurisdictions() []string {
	out := make([]string, 0, len(s.ByJurisdiction))
	for j := range s.ByJurisdiction {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		ci, ck := s.ByJurisdiction[out[i]], s.ByJurisdiction[out[k]]
		if ci != ck {
			return ci > ck
		}
		return out[i] < out[k]
	})
	return out
}
