package models

import "strings"

// NormalizeName folds case and collapses whitespace so that "Jane  DOE" and
// "jane doe" compare equal. Punctuation is kept.
func NormalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// SurnameFirst reports the "SURNAME, Forenames" form some registries use and
// returns the name reordered as "Forenames SURNAME".
func SurnameFirst(s string) (string, bool) {
	surname, forenames, ok := strings.Cut(s, ",")
	if !ok {
		return s, false
	}
	surname, forenames = strings.TrimSpace(surname), strings.TrimSpace(forenames)
	if surname == "" || forenames == "" {
		return s, false
	}
	return forenames + " " + surname, true
}
