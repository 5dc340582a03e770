// Package ranking orders multi-source search results.
package ranking

import (
	"sort"
	"strings"

	"github.com/helixir/book-content-service/internal/domain"
)

// Score weights.
const (
	PublicDomainDownloadBonus = 10
	SubjectMatchBonus         = 5
	TitleMatchBonus           = 3
)

// SourceBonus mirrors the aggregator's preference order.
var SourceBonus = map[domain.SourceType]int{
	domain.SourceTypePublicDomain:  8,
	domain.SourceTypeArchive:       6,
	domain.SourceTypeBibliographic: 4,
}

// Score computes the additive score of a single result.
func Score(r domain.RankedResult, query string, subjects []string) int {
	score := 0
	if r.Availability.CanDownload && r.Availability.IsPublicDomain {
		score += PublicDomainDownloadBonus
	}
	score += SourceBonus[r.Source]

	candidateSubjects := make([]string, len(r.Book.Subjects))
	for i, s := range r.Book.Subjects {
		candidateSubjects[i] = strings.ToLower(s)
	}
	for _, want := range subjects {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		for _, have := range candidateSubjects {
			if strings.Contains(have, want) {
				score += SubjectMatchBonus
				break
			}
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q != "" && strings.Contains(strings.ToLower(r.Book.Title), q) {
		score += TitleMatchBonus
	}
	return score
}

// Rank scores every result and returns a new slice sorted by descending
// score. Equal scores keep their input order. The input is not modified.
func Rank(results []domain.RankedResult, query string, subjects []string) []domain.RankedResult {
	ranked := make([]domain.RankedResult, len(results))
	copy(ranked, results)
	for i := range ranked {
		ranked[i].Score = Score(ranked[i], query, subjects)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
