// Package officers answers the two questions the mapper asks of a registry:
// who are a company's officers, and which other companies share one of them.
package officers

import (
	"context"
	"log/slog"

	"github.com/ajitpratap0/groupmapper/internal/models"
	"github.com/ajitpratap0/groupmapper/internal/registry"
)

// DefaultMaxCandidates bounds roster confirmations per officer when the
// source has no reverse lookup.
const DefaultMaxCandidates = 20

// Options configures an Index.
type Options struct {
	Policy        RolePolicy
	Matcher       Matcher
	MaxCandidates int
	Logger        *slog.Logger
}

// Skipped is a candidate company that could not be confirmed.
type Skipped struct {
	CompanyID string
	Err       error
}

// Index looks up officers and shared-officer companies on one source.
// A scoped Index memoizes lookups for a single mapping run and must not be
// shared between goroutines. Rosters are cached by company id. Shared-officer
// results are cached by the matcher key of the officer; when the source has a
// reverse lookup and the officer carries a registry reference, the reference
// is part of the key, because the lookup answers for that appointment record
// and not for the name.
type Index struct {
	source        registry.Source
	policy        RolePolicy
	matcher       Matcher
	maxCandidates int
	logger        *slog.Logger

	rosters map[string][]models.Officer
	sharing map[string]sharingResult
}

type sharingResult struct {
	companies []models.Company
	skipped   []Skipped
}

// New creates an unscoped Index. Unscoped indexes cache nothing.
func New(source registry.Source, opts Options) *Index {
	if opts.Matcher == nil {
		opts.Matcher = NameMatcher{}
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = DefaultMaxCandidates
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Index{
		source:        source,
		policy:        opts.Policy,
		matcher:       opts.Matcher,
		maxCandidates: opts.MaxCandidates,
		logger:        opts.Logger,
	}
}

// Scoped returns a copy of the index with fresh run-local caches.
func (x *Index) Scoped() *Index {
	c := *x
	c.rosters = make(map[string][]models.Officer)
	c.sharing = make(map[string]sharingResult)
	return &c
}

// Source returns the underlying registry source.
func (x *Index) Source() registry.Source { return x.source }

// Key returns the identity key of o under the index's matcher.
func (x *Index) Key(o models.Officer) string { return x.matcher.Key(o) }

// OfficersOf returns the roster of companyID.
func (x *Index) OfficersOf(ctx context.Context, companyID string) ([]models.Officer, error) {
	if roster, ok := x.rosters[companyID]; ok {
		return roster, nil
	}
	roster, err := x.source.Officers(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if x.rosters != nil {
		x.rosters[companyID] = roster
	}
	return roster, nil
}

// DrivingOfficers filters a roster by the role policy and collapses officers
// that hold several roles at the same company into their first driving entry.
func (x *Index) DrivingOfficers(roster []models.Officer) []models.Officer {
	seen := make(map[string]bool, len(roster))
	var out []models.Officer
	for _, o := range roster {
		if !x.policy.Drives(o) {
			continue
		}
		key := x.matcher.Key(o)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, o)
	}
	return out
}

// CompaniesSharingOfficer returns the companies, other than excludingID, in
// which officer holds a role. Sources implementing registry.OfficerLookup are
// asked directly. Otherwise the source is searched by officer name and each
// result, up to the candidate bound, is confirmed against its roster;
// candidates whose roster could not be read are returned as skipped.
//
// Skipped candidates are reported only by the lookup that first hit them.
// A non-nil error means the whole lookup failed.
func (x *Index) CompaniesSharingOfficer(ctx context.Context, officer models.Officer, excludingID string) ([]models.Company, []Skipped, error) {
	key := x.sharingKey(officer)
	res, cached := x.sharing[key]
	if cached {
		res.skipped = nil
	} else {
		var err error
		if lookup, isLookup := x.source.(registry.OfficerLookup); isLookup {
			res.companies, err = lookup.CompaniesForOfficer(ctx, officer, "")
		} else {
			res, err = x.confirmBySearch(ctx, officer, excludingID)
		}
		if err != nil {
			return nil, nil, err
		}
		if x.sharing != nil {
			x.sharing[key] = res
		}
	}

	seen := make(map[string]bool, len(res.companies))
	out := make([]models.Company, 0, len(res.companies))
	for _, c := range res.companies {
		if c.ID == "" || c.ID == excludingID || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, res.skipped, nil
}

// sharingKey identifies the answer to CompaniesSharingOfficer for officer.
func (x *Index) sharingKey(officer models.Officer) string {
	key := x.matcher.Key(officer)
	if _, isLookup := x.source.(registry.OfficerLookup); isLookup && officer.Ref != "" {
		key += "|ref:" + officer.Ref
	}
	return key
}

func (x *Index) confirmBySearch(ctx context.Context, officer models.Officer, excludingID string) (sharingResult, error) {
	var res sharingResult
	results, err := x.source.Search(ctx, officer.Name, "")
	if err != nil {
		return res, err
	}

	checked := 0
	for _, c := range results {
		// The company the officer came from is known to list them.
		if c.ID == excludingID {
			res.companies = append(res.companies, c)
			continue
		}
		if checked >= x.maxCandidates {
			x.logger.Debug("officer candidate bound reached", "officer", officer.Name, "results", len(results), "bound", x.maxCandidates)
			break
		}
		checked++

		roster, err := x.OfficersOf(ctx, c.ID)
		if err != nil {
			if registry.IsFatal(err) || ctx.Err() != nil {
				return res, err
			}
			res.skipped = append(res.skipped, Skipped{CompanyID: c.ID, Err: err})
			continue
		}
		if x.rosterLists(roster, officer) {
			res.companies = append(res.companies, c)
		}
	}
	return res, nil
}

func (x *Index) rosterLists(roster []models.Officer, officer models.Officer) bool {
	for _, o := range roster {
		if !x.policy.IncludeResigned && !o.IsCurrent() {
			continue
		}
		if x.matcher.Match(o, officer) {
			return true
		}
	}
	return false
}
