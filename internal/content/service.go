// Package content resolves readable book content from the configured catalogs.
//
// GetBookContent tries the sources one at a time in preference order and stops
// at the first full-text hit. When no source yields anything a generated
// placeholder is synthesized. Every result is enhanced with study resources
// and cached. SearchEducationalBooks fans out to every source at once and
// ranks the merged candidates.
package content

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/internal/cache"
	"github.com/helixir/book-content-service/internal/dedup"
	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/events"
	"github.com/helixir/book-content-service/internal/observability"
	"github.com/helixir/book-content-service/internal/ranking"
	"github.com/helixir/book-content-service/internal/sources"
)

// Defaults applied by NewService.
const (
	DefaultBooksTTL          = time.Hour
	DefaultCandidateLimit    = 5
	DefaultSearchLimit       = 20
	DefaultCacheWriteTimeout = 5 * time.Second
	DefaultPublishTimeout    = 5 * time.Second
	MaxSearchLimit           = 100
)

// Config tunes the content service.
type Config struct {
	// BooksTTL is how long resolved content stays cached.
	BooksTTL time.Duration

	// CandidateLimit is the number of candidates requested from each source
	// while resolving a single book.
	CandidateLimit int

	// SearchLimit is the result count used when a search passes no limit.
	SearchLimit int

	// CacheWriteTimeout bounds the cache write after a resolution.
	CacheWriteTimeout time.Duration

	// PublishTimeout bounds event publication after a resolution.
	PublishTimeout time.Duration
}

// SourceLister is the subset of sources.Registry the service depends on.
type SourceLister interface {
	Ordered() []sources.ContentSource
	SearchAll(ctx context.Context, params sources.SearchParams) []sources.SourceResult
}

// Service aggregates book content across sources. It holds no per-request
// state and is safe for concurrent use.
type Service struct {
	config    Config
	registry  SourceLister
	cache     cache.Cache
	publisher events.Publisher
	emitter   *events.Emitter
	matcher   *dedup.Matcher
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewService creates a content service. A nil publisher disables events and
// metrics may be nil.
func NewService(
	cfg Config,
	registry SourceLister,
	c cache.Cache,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	if cfg.BooksTTL <= 0 {
		cfg.BooksTTL = DefaultBooksTTL
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultSearchLimit
	}
	if cfg.CacheWriteTimeout <= 0 {
		cfg.CacheWriteTimeout = DefaultCacheWriteTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}

	logger = logger.With().Str("component", "content").Logger()

	return &Service{
		config:    cfg,
		registry:  registry,
		cache:     c,
		publisher: publisher,
		emitter:   events.NewEmitter(events.EmitterConfig{}),
		matcher:   dedup.NewMatcher(logger),
		metrics:   metrics,
		logger:    logger,
	}
}

// BookKey returns the cache key of q.
func BookKey(q domain.BookQuery) string {
	return cache.BuildKey(cache.NamespaceBooks, cache.KindContent, q.CacheParams())
}

// GetBookContent resolves q to readable content. It never fails: when every
// source errors or nothing matches, a generated placeholder is returned. The
// returned content always carries at least one download link.
func (s *Service) GetBookContent(ctx context.Context, q domain.BookQuery, useCache bool) *domain.BookContent {
	start := time.Now()
	key := BookKey(q)
	logger := observability.WithBookContext(s.logger, observability.RequestIDFromContext(ctx), q.Title, q.Author)

	s.metrics.RecordAggregationStarted()

	if useCache && s.cache != nil {
		cached, ok, err := cache.GetJSON[domain.BookContent](ctx, s.cache, key)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		case ok && cached.Validate() == nil:
			s.metrics.RecordCacheHit(cache.NamespaceBooks)
			logger.Debug().Str("source", string(cached.Source)).Msg("content served from cache")
			s.publishResolved(ctx, key, cached, true, logger)
			s.metrics.RecordAggregationCompleted(string(cached.Source), cached.IsFullText, time.Since(start).Seconds())
			return cached
		}
		s.metrics.RecordCacheMiss(cache.NamespaceBooks)
	}

	result := s.resolve(ctx, q, logger)
	if result == nil {
		logger.Info().Msg("no source produced content, synthesizing placeholder")
		result = Synthesize(q)
		s.metrics.RecordFallbackSynthesized()
	}
	result = Enhance(result)

	if err := result.Validate(); err != nil {
		logger.Error().Err(err).Msg("resolved content violates invariants")
	}

	if s.cache != nil {
		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.CacheWriteTimeout)
		if err := cache.SetJSON(writeCtx, s.cache, key, result, s.config.BooksTTL); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
		cancel()
	}

	s.publishResolved(ctx, key, result, false, logger)

	duration := time.Since(start)
	s.metrics.RecordAggregationCompleted(string(result.Source), result.IsFullText, duration.Seconds())
	logger.Info().
		Str("source", string(result.Source)).
		Bool("full_text", result.IsFullText).
		Int("links", len(result.DownloadLinks)).
		Dur("duration", duration).
		Msg("book content resolved")

	return result
}

// resolve walks the sources in preference order. The first full-text hit
// wins outright; otherwise the first partial hit is returned. It returns nil
// when no source produced anything.
func (s *Service) resolve(ctx context.Context, q domain.BookQuery, logger zerolog.Logger) *domain.BookContent {
	var best *domain.BookContent

	for _, src := range s.registry.Ordered() {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("aggregation cancelled")
			break
		}

		found := s.trySource(ctx, src, q, logger)
		if found == nil {
			continue
		}
		if found.IsFullText {
			return found
		}
		if best == nil {
			best = found
		}
	}

	return best
}

// trySource searches one source, fetches the first similar candidate and
// converts it. Errors are logged and reported as no result.
func (s *Service) trySource(ctx context.Context, src sources.ContentSource, q domain.BookQuery, logger zerolog.Logger) *domain.BookContent {
	sourceName := string(src.SourceType())
	srcLogger := observability.WithSourceContext(logger, sourceName, q.Title)

	searchStart := time.Now()
	s.metrics.RecordSearchStarted(sourceName)
	result, err := src.Search(ctx, sources.SearchParams{Query: q.Title, Limit: s.config.CandidateLimit})
	if err != nil {
		errorType := domain.ErrorKind(err)
		s.metrics.RecordSearchFailed(sourceName, errorType, time.Since(searchStart).Seconds())
		s.metrics.RecordSourceError(sourceName, "search", errorType)
		srcLogger.Warn().Err(err).Str("error_type", errorType).Msg("source search failed")
		return nil
	}
	if result.IsEmpty() {
		s.metrics.RecordSearchCompleted(sourceName, 0, time.Since(searchStart).Seconds())
		s.metrics.RecordSourceFetch(sourceName, "no_candidates")
		srcLogger.Debug().Msg("source returned no candidates")
		return nil
	}
	s.metrics.RecordSearchCompleted(sourceName, len(result.Candidates), time.Since(searchStart).Seconds())

	candidate, ok := s.firstMatch(q, result.Candidates)
	if !ok {
		s.metrics.RecordSourceFetch(sourceName, "no_match")
		srcLogger.Debug().Int("candidates", len(result.Candidates)).Msg("no similar candidate")
		return nil
	}

	raw, err := src.FetchContent(ctx, candidate.ID)
	if err != nil {
		errorType := domain.ErrorKind(err)
		s.metrics.RecordSourceFetch(sourceName, "error")
		s.metrics.RecordSourceError(sourceName, "fetch", errorType)
		srcLogger.Warn().Err(err).Str("candidate_id", candidate.ID).Str("error_type", errorType).Msg("source fetch failed")
		return nil
	}
	if raw == nil || (!raw.HasText() && len(raw.DownloadLinks) == 0) {
		s.metrics.RecordSourceFetch(sourceName, "empty")
		return nil
	}

	content := buildContent(src.SourceType(), src.Name(), q, candidate, raw)
	if content.IsFullText {
		s.metrics.RecordSourceFetch(sourceName, "full_text")
	} else {
		s.metrics.RecordSourceFetch(sourceName, "partial")
	}
	srcLogger.Debug().
		Str("candidate_id", candidate.ID).
		Bool("full_text", content.IsFullText).
		Msg("candidate fetched")

	return content
}

// firstMatch returns the first candidate similar to q. Candidates keep the
// source's own relevance order, so earlier hits win even when a later one is
// closer.
func (s *Service) firstMatch(q domain.BookQuery, candidates []domain.SourceCandidate) (domain.SourceCandidate, bool) {
	for _, c := range candidates {
		// Catalog names carry their own comma ("Austen, Jane"), so people are
		// joined on ";" for the matcher to compare them one by one.
		if s.matcher.IsSimilar(q.Title, c.Title, q.Author, strings.Join(c.Authors, "; ")) {
			return c, true
		}
	}
	return domain.SourceCandidate{}, false
}

// buildContent converts a fetched item into BookContent.
func buildContent(
	sourceType domain.SourceType,
	sourceName string,
	q domain.BookQuery,
	candidate domain.SourceCandidate,
	raw *domain.RawContent,
) *domain.BookContent {
	title := firstNonEmpty(raw.Title, candidate.Title, q.Title)
	author := firstNonEmpty(strings.Join(raw.Authors, ", "), candidate.AuthorString(), q.Author, domain.UnknownAuthor)
	metadata := mergeMetadata(raw.Metadata, candidate, q)

	c := &domain.BookContent{
		Title:          title,
		Author:         author,
		Source:         sourceType,
		DownloadLinks:  raw.DownloadLinks,
		ReadingOptions: raw.ReadingOptions,
		Metadata:       metadata,
	}

	if raw.HasText() {
		c.Content = raw.Text
		c.IsFullText = true
		return c
	}

	c.Content = renderSummary(summaryData{
		Title:       title,
		Author:      author,
		Year:        metadata.PublishYear,
		Description: metadata.Description,
		SourceName:  sourceName,
	})
	return c
}

func mergeMetadata(m *domain.BookMetadata, candidate domain.SourceCandidate, q domain.BookQuery) *domain.BookMetadata {
	merged := &domain.BookMetadata{}
	if m != nil {
		merged.Language = m.Language
		merged.PublishYear = m.PublishYear
		merged.Description = m.Description
		merged.AddSubjects(m.Subjects...)
	}
	merged.AddSubjects(candidate.Subjects...)
	merged.AddSubjects(q.Subjects...)
	if merged.Language == "" {
		merged.Language = candidate.Language
	}
	if merged.PublishYear == 0 {
		merged.PublishYear = candidate.PublishYear
	}
	return merged
}

func (s *Service) publishResolved(ctx context.Context, key string, c *domain.BookContent, fromCache bool, logger zerolog.Logger) {
	ev, err := s.emitter.EmitBookContentResolved(observability.RequestIDFromContext(ctx), domain.BookContentResolvedPayload{
		BookKey:    key,
		Title:      c.Title,
		Author:     c.Author,
		Source:     c.Source,
		IsFullText: c.IsFullText,
		FromCache:  fromCache,
		ResolvedAt: time.Now().UTC(),
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build resolved event")
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PublishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, ev); err != nil {
		logger.Warn().Err(err).Str("event_type", ev.EventType).Msg("failed to publish event")
	}
}

// SearchEducationalBooks searches every enabled source concurrently and
// returns up to limit ranked results. Subjects default to the hints of the
// grade band parsed from gradeLevel. A failing source contributes nothing;
// when every source fails the result is empty, never nil.
func (s *Service) SearchEducationalBooks(
	ctx context.Context,
	query string,
	subjects []string,
	gradeLevel string,
	limit int,
) []domain.RankedResult {
	if limit <= 0 {
		limit = s.config.SearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if len(subjects) == 0 {
		subjects = domain.DefaultSubjects(domain.ParseGradeBand(gradeLevel))
	}

	logger := observability.LoggerFromContext(ctx, s.logger).With().
		Str("query", query).
		Strs("subjects", subjects).
		Int("limit", limit).
		Logger()

	for _, src := range s.registry.Ordered() {
		s.metrics.RecordSearchStarted(string(src.SourceType()))
	}
	start := time.Now()
	results := s.registry.SearchAll(ctx, sources.SearchParams{
		Query:    query,
		Subjects: subjects,
		Limit:    limit,
	})

	merged := make([]domain.RankedResult, 0, limit)
	for _, sr := range results {
		sourceName := string(sr.Source)
		if sr.Error != nil {
			errorType := domain.ErrorKind(sr.Error)
			s.metrics.RecordSearchFailed(sourceName, errorType, time.Since(start).Seconds())
			s.metrics.RecordSourceError(sourceName, "search", errorType)
			logger.Warn().Err(sr.Error).Str("source", sourceName).Msg("source search failed")
			continue
		}
		if sr.Result == nil {
			continue
		}

		s.metrics.RecordSearchCompleted(sourceName, len(sr.Result.Candidates), sr.Result.SearchDuration.Seconds())
		for _, c := range sr.Result.Candidates {
			merged = append(merged, domain.RankedResult{
				Book:         c,
				Source:       sr.Source,
				Availability: c.Availability,
			})
		}
	}

	ranked := ranking.Rank(merged, query, subjects)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	logger.Info().
		Int("sources", len(results)).
		Int("candidates", len(merged)).
		Int("returned", len(ranked)).
		Dur("duration", time.Since(start)).
		Msg("educational search completed")

	return ranked
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
