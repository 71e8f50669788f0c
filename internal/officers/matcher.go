package officers

import (
	"fmt"

	"github.com/ajitpratap0/groupmapper/internal/config"
	"github.com/ajitpratap0/groupmapper/internal/models"
)

// Matcher decides whether two officer records denote the same person.
// Registries expose no cross-company person identifier, so every strategy is
// an approximation over the fields they do publish.
type Matcher interface {
	// Key returns a stable identity key; officers with equal keys match.
	Key(o models.Officer) string
	// Match reports whether a and b are the same officer.
	Match(a, b models.Officer) bool
}

// NameMatcher matches on case- and whitespace-insensitive name equality.
// "DOE, Jane" and "Jane Doe" are the same name.
type NameMatcher struct{}

// Key implements Matcher.
func (NameMatcher) Key(o models.Officer) string {
	return canonicalName(o.Name)
}

// Match implements Matcher.
func (NameMatcher) Match(a, b models.Officer) bool {
	return canonicalName(a.Name) == canonicalName(b.Name)
}

// NameBirthMatcher additionally requires equal birth month when both records
// carry one.
type NameBirthMatcher struct{}

// Key implements Matcher.
func (NameBirthMatcher) Key(o models.Officer) string {
	if o.BirthDate == "" {
		return canonicalName(o.Name)
	}
	return canonicalName(o.Name) + "|" + o.BirthDate
}

// Match implements Matcher.
func (NameBirthMatcher) Match(a, b models.Officer) bool {
	if canonicalName(a.Name) != canonicalName(b.Name) {
		return false
	}
	return a.BirthDate == "" || b.BirthDate == "" || a.BirthDate == b.BirthDate
}

// MatcherFor returns the matcher for a configured strategy name.
func MatcherFor(strategy string) (Matcher, error) {
	switch strategy {
	case "", config.MatchStrategyName:
		return NameMatcher{}, nil
	case config.MatchStrategyNameBirth:
		return NameBirthMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q", strategy)
	}
}

func canonicalName(name string) string {
	if flipped, ok := models.SurnameFirst(name); ok {
		name = flipped
	}
	return models.NormalizeName(name)
}
