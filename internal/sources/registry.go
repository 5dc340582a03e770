package sources

import (
	"context"
	"sort"
	"sync"

	"github.com/helixir/book-content-service/internal/domain"
)

// SourceResult is one source's share of a fan-out search. Exactly one of
// Result and Error is set.
type SourceResult struct {
	Source domain.SourceType
	Result *SearchResult
	Error  error
}

// Registry holds the configured content sources.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]ContentSource
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[domain.SourceType]ContentSource)}
}

// Register adds source, replacing any source of the same type.
func (r *Registry) Register(source ContentSource) {
	r.mu.Lock()
	r.sources[source.SourceType()] = source
	r.mu.Unlock()
}

// Get returns the source of type st, or nil.
func (r *Registry) Get(st domain.SourceType) ContentSource {
	r.mu.RLock()
	s := r.sources[st]
	r.mu.RUnlock()
	return s
}

// Ordered returns the enabled sources in domain.PreferenceOrder.
// Registered sources with a type outside that order are appended last.
func (r *Registry) Ordered() []ContentSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ordered := make([]ContentSource, 0, len(r.sources))
	seen := make(map[domain.SourceType]bool, len(r.sources))
	for _, st := range domain.PreferenceOrder {
		if s, ok := r.sources[st]; ok && s.IsEnabled() {
			ordered = append(ordered, s)
		}
		seen[st] = true
	}

	var rest []ContentSource
	for st, s := range r.sources {
		if !seen[st] && s.IsEnabled() {
			rest = append(rest, s)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].SourceType() < rest[j].SourceType() })

	return append(ordered, rest...)
}

// SearchAll searches all enabled sources concurrently and waits for every one
// of them to settle. A failing source contributes its error without aborting
// the others. Results are returned in preference order.
func (r *Registry) SearchAll(ctx context.Context, params SearchParams) []SourceResult {
	ordered := r.Ordered()
	if len(ordered) == 0 {
		return nil
	}

	out := make([]SourceResult, len(ordered))
	var wg sync.WaitGroup
	for i, s := range ordered {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Search(ctx, params)
			out[i] = SourceResult{Source: s.SourceType(), Result: res, Error: err}
		}()
	}
	wg.Wait()
	return out
}
