package models

import "fmt"

// RunState is the terminal state of a mapping run that produced a result.
// Aborted runs produce no result and surface an error instead.
type RunState string

const (
	RunCompleted RunState = "completed"
	RunTruncated RunState = "truncated"
)

// TruncationReason explains why a run stopped short of a full traversal.
type TruncationReason string

const (
	TruncatedPerLevelCap TruncationReason = "per_level_cap"
	TruncatedTimeout     TruncationReason = "timeout"
	TruncatedCancelled   TruncationReason = "cancelled"
)

// Connection is evidence that two companies share a recorded officer.
type Connection struct {
	FromCompanyID string `json:"from_company_id"`
	ToCompanyID   string `json:"to_company_id"`
	OfficerName   string `json:"officer_name"`
	OfficerRole   Role   `json:"officer_role,omitempty"`
	Evidence      string `json:"evidence"`
}

// NewConnection builds the edge from -> to via officer o.
func NewConnection(fromID, toID string, o Officer) Connection {
	return Connection{
		FromCompanyID: fromID,
		ToCompanyID:   toID,
		OfficerName:   o.Name,
		OfficerRole:   o.Role,
		Evidence:      fmt.Sprintf("Shared officer: %s (%s)", o.Name, o.Role.Title()),
	}
}

// LevelEntry places a company at its shortest officer-hop distance from the root.
type LevelEntry struct {
	Company     Company      `json:"company"`
	Level       int          `json:"level"`
	Connections []Connection `json:"connections"`
}

// Truncation records one reason a result is partial.
type Truncation struct {
	Level   int              `json:"level"`
	Reason  TruncationReason `json:"reason"`
	Dropped int              `json:"dropped,omitempty"`
}

// Warning records a non-fatal registry failure against a company. Level is
// the level that was being built when the lookup failed.
type Warning struct {
	CompanyID string `json:"company_id"`
	Level     int    `json:"level"`
	Op        string `json:"op"`
	Message   string `json:"message"`
}

// MappingResult is the output of one mapping run.
type MappingResult struct {
	Root        Company      `json:"root"`
	Levels      []LevelEntry `json:"levels"`
	CrossLinks  []Connection `json:"cross_links,omitempty"`
	State       RunState     `json:"state"`
	Truncated   bool         `json:"truncated"`
	Truncations []Truncation `json:"truncations,omitempty"`
	Warnings    []Warning    `json:"warnings,omitempty"`
}

// Entry returns the level entry for a company ID.
func (r *MappingResult) Entry(id string) (LevelEntry, bool) {
	for i := range r.Levels {
		if r.Levels[i].Company.ID == id {
			return r.Levels[i], true
		}
	}
	return LevelEntry{}, false
}

// MaxLevel returns the deepest level present in the result.
func (r *MappingResult) MaxLevel() int {
	maxLevel := 0
	for i := range r.Levels {
		if r.Levels[i].Level > maxLevel {
			maxLevel = r.Levels[i].Level
		}
	}
	return maxLevel
}
