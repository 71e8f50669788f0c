package report

import (
	"strings"

	"github.com/ajitpratap0/groupmapper/internal/models"
)

// Category is a name-based guess at how a company relates to the root. It
// annotates rows only; it never changes which companies are in the result.
type Category string

const (
	CategoryParent           Category = "parent"
	CategoryLikelySubsidiary Category = "likely_subsidiary"
	CategoryRelated          Category = "related"
	CategoryOther            Category = "other"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryParent, CategoryLikelySubsidiary, CategoryRelated, CategoryOther}

// parentTypes are company types that mark a root-named company as the parent.
var parentTypes = map[string]bool{
	"plc":                    true,
	"public limited company": true,
	"holding company":        true,
}

// legalSuffixes are dropped from the end of names before comparing, so
// "Acme Ltd" and "Acme Limited" share the stem "acme".
var legalSuffixes = map[string]bool{
	"ltd": true, "ltd.": true, "limited": true, "plc": true, "llp": true,
	"inc": true, "inc.": true, "llc": true, "corp": true, "gmbh": true,
	"bv": true, "b.v.": true, "sa": true, "sas": true, "ag": true,
}

// Title returns the human-readable label of c.
func (c Category) Title() string {
	switch c {
	case CategoryParent:
		return "Parent"
	case CategoryLikelySubsidiary:
		return "Likely subsidiary"
	case CategoryRelated:
		return "Related"
	default:
		return "Other"
	}
}

// Categorize classifies c against the stem of rootName, its name without a
// trailing legal suffix:
//   - parent: same stem as the root, or containing it with a public or
//     holding company type
//   - likely subsidiary: name contains the root stem
//   - related: name contains one of the first two words of the root name
//     longer than three letters
//   - other: everything else
func Categorize(c models.Company, rootName string) Category {
	root := stem(rootName)
	name := models.NormalizeName(c.Name)
	if root == "" || name == "" {
		return CategoryOther
	}

	contains := strings.Contains(name, root)
	switch {
	case stem(c.Name) == root:
		return CategoryParent
	case contains && parentTypes[normalizeType(c.Type)]:
		return CategoryParent
	case contains:
		return CategoryLikelySubsidiary
	}

	words := strings.Fields(root)
	if len(words) > 2 {
		words = words[:2]
	}
	for _, w := range words {
		if len(w) > 3 && strings.Contains(name, w) {
			return CategoryRelated
		}
	}
	return CategoryOther
}

// normalizeType folds registry type codes such as "plc" or
// "holding-company" to lower-case words.
func normalizeType(t string) string {
	return models.NormalizeName(strings.NewReplacer("-", " ", "_", " ").Replace(t))
}

// stem normalizes name and drops trailing legal suffixes, keeping at least
// one word.
func stem(name string) string {
	words := strings.Fields(models.NormalizeName(name))
	for len(words) > 1 && legalSuffixes[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
