package models

// Company is a registry identity record. ID is unique within a source and
// jurisdiction; two records with the same ID are the same entity.
type Company struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Jurisdiction   string `json:"jurisdiction,omitempty"`
	Status         string `json:"status,omitempty"`
	Type           string `json:"type,omitempty"`
	IncorporatedOn string `json:"incorporated_on,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
	Source         string `json:"source,omitempty"`
}

// Merge fills empty fields of c from other. Both must describe the same ID.
func (c Company) Merge(other Company) Company {
	if other.ID != c.ID {
		return c
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&c.Name, other.Name)
	fill(&c.Jurisdiction, other.Jurisdiction)
	fill(&c.Status, other.Status)
	fill(&c.Type, other.Type)
	fill(&c.IncorporatedOn, other.IncorporatedOn)
	fill(&c.SourceURL, other.SourceURL)
	fill(&c.Source, other.Source)
	return c
}
