package sources

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/internal/cache"
)

// CacheRecorder receives cache hit and miss notifications.
type CacheRecorder interface {
	RecordCacheHit(namespace string)
	RecordCacheMiss(namespace string)
}

// CachedSource decorates a ContentSource with a search result cache.
// Only successful, non-empty results are stored. FetchContent is not cached
// here; the aggregated BookContent is cached by the content service.
type CachedSource struct {
	ContentSource

	cache    cache.Cache
	ttl      time.Duration
	recorder CacheRecorder
	logger   zerolog.Logger
}

// Compile-time check that *CachedSource implements ContentSource.
var _ ContentSource = (*CachedSource)(nil)

// NewCachedSource wraps source. recorder may be nil.
func NewCachedSource(source ContentSource, c cache.Cache, ttl time.Duration, recorder CacheRecorder, logger zerolog.Logger) *CachedSource {
	return &CachedSource{
		ContentSource: source,
		cache:         c,
		ttl:           ttl,
		recorder:      recorder,
		logger:        logger.With().Str("component", "source_cache").Str("source", source.Name()).Logger(),
	}
}

// SearchCacheKey returns the deterministic cache key of a search.
func SearchCacheKey(sourceName string, params SearchParams) string {
	return cache.BuildKey(cache.NamespaceSources, sourceName+"_search", map[string]string{
		"query":    strings.ToLower(strings.TrimSpace(params.Query)),
		"subjects": strings.ToLower(strings.Join(params.Subjects, ",")),
		"limit":    strconv.Itoa(params.Limit),
	})
}

// Search returns a cached result when one is present, otherwise it queries
// the wrapped source and caches a non-empty result.
func (s *CachedSource) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	key := SearchCacheKey(s.Name(), params)

	cached, ok, err := cache.GetJSON[SearchResult](ctx, s.cache, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("search cache read failed")
	}
	if ok && !cached.IsEmpty() {
		s.record(true)
		return cached, nil
	}
	s.record(false)

	result, err := s.ContentSource.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	if !result.IsEmpty() {
		if err := cache.SetJSON(ctx, s.cache, key, result, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("search cache write failed")
		}
	}
	return result, nil
}

// Unwrap returns the decorated source.
func (s *CachedSource) Unwrap() ContentSource {
	return s.ContentSource
}

func (s *CachedSource) record(hit bool) {
	if s.recorder == nil {
		return
	}
	if hit {
		s.recorder.RecordCacheHit(cache.NamespaceSources)
	} else {
		s.recorder.RecordCacheMiss(cache.NamespaceSources)
	}
}
