// Package dedup decides whether two catalog records describe the same book
// through fuzzy matching of titles and author names.
package dedup

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
)

// Default thresholds. Comparisons are strictly greater-than.
const (
	DefaultTitleThreshold     = 0.7
	DefaultWeakTitleThreshold = 0.5
	DefaultAuthorThreshold    = 0.7
)

// Matcher applies the title/author similarity decision rule.
type Matcher struct {
	TitleThreshold     float64
	WeakTitleThreshold float64
	AuthorThreshold    float64

	logger zerolog.Logger
}

// NewMatcher creates a Matcher with the default thresholds.
func NewMatcher(logger zerolog.Logger) *Matcher {
	return &Matcher{
		TitleThreshold:     DefaultTitleThreshold,
		WeakTitleThreshold: DefaultWeakTitleThreshold,
		AuthorThreshold:    DefaultAuthorThreshold,
		logger:             logger.With().Str("component", "matcher").Logger(),
	}
}

var defaultMatcher = NewMatcher(zerolog.Nop())

// IsSimilar reports whether two records match using the default thresholds.
func IsSimilar(titleA, titleB, authorA, authorB string) bool {
	return defaultMatcher.IsSimilar(titleA, titleB, authorA, authorB)
}

// IsSimilar matches when the title similarity is above TitleThreshold, or when
// it is above WeakTitleThreshold and both authors are given and their
// similarity is above AuthorThreshold. The result does not depend on argument
// order.
func (m *Matcher) IsSimilar(titleA, titleB, authorA, authorB string) bool {
	titleSim := m.similarity(NormalizeTitle(titleA), NormalizeTitle(titleB))
	if titleSim > m.TitleThreshold {
		return true
	}
	if titleSim <= m.WeakTitleThreshold {
		return false
	}
	if strings.TrimSpace(authorA) == "" || strings.TrimSpace(authorB) == "" {
		return false
	}
	return m.AuthorSimilarity(authorA, authorB) > m.AuthorThreshold
}

// AuthorSimilarity scores two author strings. Each may hold several people
// joined by ";", "&" or "and". The best of the whole-string ratio and the
// per-person scores is returned.
func (m *Matcher) AuthorSimilarity(a, b string) float64 {
	best := m.similarity(NormalizeName(a), NormalizeName(b))
	for _, na := range splitAuthors(a) {
		for _, nb := range splitAuthors(b) {
			if s := nameSimilarity(na, nb); s > best {
				best = s
			}
			if s := Ratio(na, nb); s > best {
				best = s
			}
		}
	}
	return best
}

func (m *Matcher) similarity(a, b string) float64 {
	if a == "" || b == "" {
		m.logger.Warn().
			Str("a", a).
			Str("b", b).
			Msg("empty normalized string in similarity check")
		return 1.0
	}
	return Ratio(a, b)
}

// Similarity returns the normalized Levenshtein ratio of two titles after
// NormalizeTitle. Empty input yields 1.0.
func Similarity(a, b string) float64 {
	return defaultMatcher.similarity(NormalizeTitle(a), NormalizeTitle(b))
}

// Ratio returns 1 - distance(longer, shorter)/len(longer), measured in runes.
// Two empty strings have ratio 1.0.
func Ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(longest)
}

// NormalizeTitle lowercases s, strips punctuation and collapses whitespace.
func NormalizeTitle(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}
