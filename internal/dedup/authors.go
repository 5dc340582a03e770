package dedup

import (
	"strings"
	"unicode"
)

// Author match scores returned by nameSimilarity.
const (
	authorExact       = 1.0
	authorInitial     = 0.9
	authorSurnameOnly = 0.7
	authorConflict    = 0.3
)

// invertCatalogName turns "Austen, Jane, 1775-1817" into its given-name
// and surname parts. ok is false when the name has no comma.
func invertCatalogName(name string) (given, surname string, ok bool) {
	surname, rest, found := strings.Cut(name, ",")
	if !found {
		return "", name, false
	}
	given, _, _ = strings.Cut(rest, ",")
	return strings.TrimSpace(given), strings.TrimSpace(surname), true
}

// NormalizeName lowercases an author name, puts catalog "Surname, Given"
// forms into reading order, drops life dates and punctuation and collapses
// whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if given, surname, ok := invertCatalogName(name); ok {
		name = strings.TrimSpace(given + " " + surname)
	}

	letters := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, name)
	return strings.Join(strings.Fields(letters), " ")
}

// DisplayName turns a catalog name such as "Austen, Jane" into "Jane Austen",
// keeping the original casing. Names without a comma are returned trimmed.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	given, surname, ok := invertCatalogName(name)
	if !ok {
		return name
	}
	if strings.IndexFunc(given, unicode.IsLetter) < 0 {
		return surname
	}
	return given + " " + surname
}

// nameSimilarity scores two normalized names. Different surnames never
// match; with equal surnames the given names decide.
func nameSimilarity(a, b string) float64 {
	wa, wb := strings.Fields(a), strings.Fields(b)
	if len(wa) == 0 || len(wb) == 0 || wa[len(wa)-1] != wb[len(wb)-1] {
		return 0
	}

	givenA, givenB := wa[:len(wa)-1], wb[:len(wb)-1]
	switch {
	case len(givenA) == 0 || len(givenB) == 0:
		return authorSurnameOnly
	case strings.Join(givenA, " ") == strings.Join(givenB, " "):
		return authorExact
	case abbreviates(givenA[0], givenB[0]) || abbreviates(givenB[0], givenA[0]):
		return authorInitial
	}
	return authorConflict
}

// abbreviates reports whether initial is the one-letter form of word.
func abbreviates(initial, word string) bool {
	return len(initial) == 1 && len(word) > 1 && initial[0] == word[0]
}

// splitAuthors breaks a joined author string on the separators catalogs use
// between people. Commas stay, since "Surname, Given" names contain one.
func splitAuthors(s string) []string {
	s = strings.NewReplacer(" and ", ";", "&", ";").Replace(s)
	var out []string
	for _, p := range strings.Split(s, ";") {
		if n := NormalizeName(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}
