// Package sources provides the interfaces and shared plumbing for book content
// source clients.
//
// Each external catalog (Project Gutenberg, the Internet Archive, Open
// Library) implements the ContentSource interface, so the aggregator can try
// them in a fixed preference order and the search use case can fan out to all
// of them with a unified API.
//
// Example usage:
//
//	source := gutenberg.New(cfg, httpClient)
//	result, err := source.Search(ctx, sources.SearchParams{
//		Query: "Pride and Prejudice",
//		Limit: 5,
//	})
package sources

import (
	"context"
	"time"

	"github.com/helixir/book-content-service/internal/domain"
)

// SearchParams defines the parameters for searching a catalog.
type SearchParams struct {
	// Query is the free-text search string (required).
	Query string

	// Subjects are optional subject hints. Each source maps them to its own
	// filter syntax. Sources may apply their own defaults when empty.
	Subjects []string

	// Limit caps the number of candidates returned.
	// A value of 0 uses the source's default limit.
	Limit int
}

// SearchResult contains the candidates returned by one source.
type SearchResult struct {
	// Candidates are in the source's own relevance order.
	Candidates []domain.SourceCandidate

	// TotalResults is the number of matches reported by the upstream API.
	// It may be an estimate and may exceed len(Candidates).
	TotalResults int

	// Source identifies which catalog produced these results.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search.
	SearchDuration time.Duration
}

// IsEmpty reports whether the result carries no candidates.
func (r *SearchResult) IsEmpty() bool {
	return r == nil || len(r.Candidates) == 0
}

// ContentSource defines the interface that all catalog clients implement.
type ContentSource interface {
	// Search queries the catalog for candidates matching params.
	// Failures are reported as domain.TimeoutError, domain.NetworkError,
	// domain.HTTPError or domain.ParseError.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// FetchContent retrieves an item by its source-specific identifier.
	// RawContent.Text is empty when the item has no text asset, but the
	// download links are always populated for an existing item.
	//
	// Returns domain.ErrNotFound if the item does not exist.
	FetchContent(ctx context.Context, id string) (*domain.RawContent, error)

	// SourceType returns the provenance tag for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name used for logs and metrics.
	Name() string

	// IsEnabled returns whether this source is switched on.
	IsEnabled() bool
}
