package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxEmailLength     = 254
	maxLocalPartLength = 64
	minNameLength      = 2
	maxNameLength      = 100
)

var (
	emailPattern = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")
	cuidPattern  = regexp.MustCompile(`^c[a-z0-9]{24,}$`)
	uuidPattern  = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
)

// NormalizeEmail trims and lowercases raw and reports whether the result is
// an acceptable address. The pattern is deliberately narrower than RFC 5322;
// anything it does not recognise is rejected.
func NormalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || len(email) > maxEmailLength {
		return "", false
	}

	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at > maxLocalPartLength {
		return "", false
	}

	if !emailPattern.MatchString(email) {
		return "", false
	}
	return email, true
}

// IsValidEmail reports whether raw normalizes to an acceptable address.
func IsValidEmail(raw string) bool {
	_, ok := NormalizeEmail(raw)
	return ok
}

// IsValidName reports whether the trimmed name is between 2 and 100
// characters long.
func IsValidName(raw string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(raw))
	return n >= minNameLength && n <= maxNameLength
}

// NormalizeName collapses whitespace runs, then uppercases the first rune of
// every word and lowercases the rest. Words split on whitespace only, so
// "mary-jane" becomes "Mary-jane".
func NormalizeName(raw string) string {
	words := strings.Fields(raw)
	if len(words) == 0 {
		return ""
	}
	// cases.Caser keeps state between calls and must not be shared.
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	for i, w := range words {
		_, size := utf8.DecodeRuneInString(w)
		words[i] = upper.String(w[:size]) + lower.String(w[size:])
	}
	return strings.Join(words, " ")
}

// IsNonEmpty reports whether s contains anything other than whitespace.
func IsNonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

// IsValidID accepts cuid-style identifiers and RFC 4122 UUIDs (versions 1-5).
func IsValidID(s string) bool {
	if s == "" {
		return false
	}
	return cuidPattern.MatchString(s) || uuidPattern.MatchString(s)
}
