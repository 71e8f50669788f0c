package mapper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ajitpratap0/groupmapper/internal/models"
	"github.com/ajitpratap0/groupmapper/internal/registry"
)

// ErrAmbiguousMatch is matched by *AmbiguousMatchError.
var ErrAmbiguousMatch = errors.New("ambiguous company name")

// AmbiguousMatchError lists the companies a name could refer to. Callers
// must ask the user to pick one.
type AmbiguousMatchError struct {
	Query      string
	Candidates []models.Company
}

func (e *AmbiguousMatchError) Error() string {
	names := make([]string, 0, len(e.Candidates))
	for _, c := range e.Candidates {
		names = append(names, fmt.Sprintf("%s (%s)", c.Name, c.ID))
	}
	return fmt.Sprintf("%q matches %d companies: %s", e.Query, len(e.Candidates), strings.Join(names, ", "))
}

// Is reports whether target is ErrAmbiguousMatch.
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}

// ResolveRoot finds the single company a name refers to. A sole search result
// or a sole exact (normalized) name match wins; anything else is ambiguous.
func ResolveRoot(ctx context.Context, src registry.Source, query, jurisdiction string) (models.Company, error) {
	results, err := src.Search(ctx, query, jurisdiction)
	if err != nil {
		return models.Company{}, fmt.Errorf("searching %q: %w", query, err)
	}
	results = uniqueByID(results)

	switch len(results) {
	case 0:
		return models.Company{}, fmt.Errorf("no company matches %q: %w", query, registry.ErrNotFound)
	case 1:
		return results[0], nil
	}

	want := models.NormalizeName(query)
	var exact []models.Company
	for _, c := range results {
		if models.NormalizeName(c.Name) == want {
			exact = append(exact, c)
		}
	}
	switch len(exact) {
	case 1:
		return exact[0], nil
	case 0:
		return models.Company{}, &AmbiguousMatchError{Query: query, Candidates: results}
	default:
		return models.Company{}, &AmbiguousMatchError{Query: query, Candidates: exact}
	}
}

// Locate returns the root company by id when given, otherwise by name.
func Locate(ctx context.Context, src registry.Source, id, name, jurisdiction string) (models.Company, error) {
	if id != "" {
		c, err := src.Company(ctx, id)
		if err != nil {
			return models.Company{}, fmt.Errorf("fetching company %s: %w", id, err)
		}
		return c, nil
	}
	if strings.TrimSpace(name) == "" {
		return models.Company{}, fmt.Errorf("%w: company id or name is required", ErrInvalidOptions)
	}
	return ResolveRoot(ctx, src, name, jurisdiction)
}

func uniqueByID(cs []models.Company) []models.Company {
	seen := make(map[string]int, len(cs))
	out := cs[:0:0]
	for _, c := range cs {
		if i, ok := seen[c.ID]; ok {
			out[i] = out[i].Merge(c)
			continue
		}
		seen[c.ID] = len(out)
		out = append(out, c)
	}
	return out
}
