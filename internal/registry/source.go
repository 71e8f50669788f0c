// Package registry talks to company registries and normalizes their
// responses into models.Company and models.Officer.
package registry

import (
	"context"

	"github.com/ajitpratap0/groupmapper/internal/models"
)

// Source is a queryable company registry. Implementations pace their own
// requests and classify failures as *Error.
type Source interface {
	// Name identifies the source ("companies_house", "opencorporates").
	Name() string

	// Search returns companies matching name, optionally within a jurisdiction.
	// No match is an empty slice, not an error.
	Search(ctx context.Context, name, jurisdiction string) ([]models.Company, error)

	// Company returns a single company profile. Missing companies yield ErrNotFound.
	Company(ctx context.Context, id string) (models.Company, error)

	// Officers returns the officer roster of a company.
	Officers(ctx context.Context, companyID string) ([]models.Officer, error)
}

// OfficerLookup is implemented by sources that can list the companies an
// officer holds office in. Sources without it are searched by officer name
// and confirmed roster by roster.
type OfficerLookup interface {
	CompaniesForOfficer(ctx context.Context, officer models.Officer, jurisdiction string) ([]models.Company, error)
}
