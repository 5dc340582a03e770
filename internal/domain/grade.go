package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// GradeBand is a coarse education level derived from free-text grade input.
type GradeBand int

const (
	GradeBandUnknown GradeBand = iota
	GradeBandPrimary
	GradeBandJuniorSecondary
	GradeBandSeniorSecondary
	GradeBandTertiary
)

// String returns the band label.
func (g GradeBand) String() string {
	switch g {
	case GradeBandPrimary:
		return "primary"
	case GradeBandJuniorSecondary:
		return "junior_secondary"
	case GradeBandSeniorSecondary:
		return "senior_secondary"
	case GradeBandTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

var gradeNumberRe = regexp.MustCompile(`\d{1,2}`)

var gradeKeywords = []struct {
	band     GradeBand
	keywords []string
}{
	{GradeBandTertiary, []string{"university", "college", "undergraduate", "graduate", "tertiary", "bachelor"}},
	{GradeBandSeniorSecondary, []string{"high school", "senior", "a-level", "a level", "sixth form"}},
	{GradeBandJuniorSecondary, []string{"middle school", "junior high", "junior", "intermediate"}},
	{GradeBandPrimary, []string{"primary", "elementary", "kindergarten", "infant"}},
}

// ParseGradeBand maps free text such as "Grade 10" or "middle school" to a band.
// Keywords win over numbers; unrecognized input yields GradeBandUnknown.
func ParseGradeBand(text string) GradeBand {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return GradeBandUnknown
	}
	for _, entry := range gradeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(s, kw) {
				return entry.band
			}
		}
	}

	m := gradeNumberRe.FindString(s)
	if m == "" {
		return GradeBandUnknown
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return GradeBandUnknown
	}
	switch {
	case n >= 1 && n <= 5:
		return GradeBandPrimary
	case n >= 6 && n <= 8:
		return GradeBandJuniorSecondary
	case n >= 9 && n <= 12:
		return GradeBandSeniorSecondary
	case n > 12:
		return GradeBandTertiary
	default:
		return GradeBandUnknown
	}
}

// DefaultSubjects returns the subject hints used for a band when the caller
// supplies none.
func DefaultSubjects(band GradeBand) []string {
	switch band {
	case GradeBandPrimary:
		return []string{"Children", "Reading", "Mathematics", "Science"}
	case GradeBandJuniorSecondary:
		return []string{"Science", "Mathematics", "History", "Literature"}
	case GradeBandSeniorSecondary:
		return []string{"Literature", "History", "Science", "Mathematics", "Philosophy"}
	case GradeBandTertiary:
		return []string{"Philosophy", "Economics", "Science", "History"}
	default:
		return nil
	}
}
