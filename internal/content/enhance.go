package content

import (
	"strings"

	"github.com/helixir/book-content-service/internal/domain"
)

// MaxEnhancementSubjects caps the subjects listed in the study section.
const MaxEnhancementSubjects = 5

// Grade band recommendations.
const (
	GradesMath       = "Grades 8-12"
	GradesScience    = "Grades 9-12"
	GradesHistory    = "Grades 6-12"
	GradesLiterature = "Grades 6-12"
	GradesGeneral    = "Grades 6-12 (general)"
)

var gradeBandKeywords = []struct {
	band     string
	keywords []string
}{
	{GradesMath, []string{"math", "algebra", "geometry", "calculus"}},
	{GradesScience, []string{"science", "physics", "chemistry", "biology"}},
	{GradesHistory, []string{"history", "social"}},
	{GradesLiterature, []string{"literature", "english", "poetry", "fiction"}},
}

type enhanceData struct {
	Subjects  []string
	GradeBand string
}

// Enhance returns a copy of c with a study resources section appended. The
// original content is kept as an unchanged prefix.
func Enhance(c *domain.BookContent) *domain.BookContent {
	if c == nil {
		return nil
	}

	subjects := c.Subjects()
	if len(subjects) > MaxEnhancementSubjects {
		subjects = subjects[:MaxEnhancementSubjects]
	}

	enhanced := *c
	enhanced.Content = c.Content + render("enhance.tmpl", enhanceData{
		Subjects:  subjects,
		GradeBand: RecommendedGrades(c.Subjects()),
	})
	return &enhanced
}

// RecommendedGrades maps subjects to a grade band. The first keyword group
// found in any subject wins.
func RecommendedGrades(subjects []string) string {
	joined := strings.ToLower(strings.Join(subjects, " "))
	for _, entry := range gradeBandKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(joined, kw) {
				return entry.band
			}
		}
	}
	return GradesGeneral
}
