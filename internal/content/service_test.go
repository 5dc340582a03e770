package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/book-content-service/internal/cache"
	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/observability"
	"github.com/helixir/book-content-service/internal/sources"
	"github.com/helixir/book-content-service/internal/sources/gutenberg"
)

// mockSource is a testify mock of sources.ContentSource.
type mockSource struct {
	mock.Mock
	sourceType domain.SourceType
}

func newMockSource(st domain.SourceType) *mockSource {
	return &mockSource{sourceType: st}
}

func (m *mockSource) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	args := m.Called(ctx, params)
	if r := args.Get(0); r != nil {
		return r.(*sources.SearchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) FetchContent(ctx context.Context, id string) (*domain.RawContent, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*domain.RawContent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSource) SourceType() domain.SourceType { return m.sourceType }
func (m *mockSource) Name() string                  { return string(m.sourceType) }
func (m *mockSource) IsEnabled() bool               { return true }

// mockPublisher records published events.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, evs ...*domain.Event) error {
	args := m.Called(ctx, evs)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func newRegistry(srcs ...sources.ContentSource) *sources.Registry {
	r := sources.NewRegistry()
	for _, s := range srcs {
		r.Register(s)
	}
	return r
}

func newTestService(registry SourceLister, c cache.Cache) *Service {
	return NewService(Config{}, registry, c, nil, nil, zerolog.Nop())
}

func candidate(id, title string, authors ...string) domain.SourceCandidate {
	return domain.SourceCandidate{ID: id, Title: title, Authors: authors}
}

func searchResult(st domain.SourceType, cands ...domain.SourceCandidate) *sources.SearchResult {
	return &sources.SearchResult{Candidates: cands, TotalResults: len(cands), Source: st}
}

func txtLink(url string) domain.DownloadLink {
	return domain.DownloadLink{Kind: domain.LinkKindTXT, URL: url, Format: "TXT", Quality: domain.QualityMedium, SourceName: "test"}
}

func allFailing(err error) (*mockSource, *mockSource, *mockSource) {
	pg := newMockSource(domain.SourceTypePublicDomain)
	ia := newMockSource(domain.SourceTypeArchive)
	ol := newMockSource(domain.SourceTypeBibliographic)
	for _, m := range []*mockSource{pg, ia, ol} {
		m.On("Search", mock.Anything, mock.Anything).Return(nil, err).Once()
	}
	return pg, ia, ol
}

func TestGetBookContent_PublicDomainScenario(t *testing.T) {
	const body = "START OF THIS PROJECT GUTENBERG EBOOK\nHello World\nEND OF THIS PROJECT GUTENBERG EBOOK"

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		book := gutenberg.Book{
			ID:       7,
			Title:    "Introduction to Physics",
			Authors:  []gutenberg.Person{{Name: "Doe, Jane"}},
			Subjects: []string{"Physics"},
			Formats:  map[string]string{"text/plain; charset=utf-8": server.URL + "/files/7.txt"},
		}
		switch r.URL.Path {
		case "/books":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(gutenberg.SearchResponse{Count: 1, Results: []gutenberg.Book{book}})
		case "/books/7/":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(book)
		case "/files/7.txt":
			_, _ = w.Write([]byte(body))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	pg := gutenberg.New(gutenberg.Config{
		BaseURL:   server.URL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
		BurstSize: 100,
		Enabled:   true,
	})
	ia := newMockSource(domain.SourceTypeArchive)
	ol := newMockSource(domain.SourceTypeBibliographic)

	svc := newTestService(newRegistry(pg, ia, ol), cache.NewMemoryCache())
	got := svc.GetBookContent(context.Background(), domain.BookQuery{
		Title:    "Introduction to Physics",
		Author:   "Jane Doe",
		Subjects: []string{"physics"},
	}, true)

	require.NotNil(t, got)
	assert.True(t, got.IsFullText)
	assert.Equal(t, domain.SourceTypePublicDomain, got.Source)
	assert.True(t, strings.HasPrefix(got.Content, "Hello World\n\nAdditional Study Resources"), got.Content)
	assert.NotContains(t, got.Content, "PROJECT GUTENBERG")
	assert.Equal(t, "Jane Doe", got.Author)
	assert.NotEmpty(t, got.DownloadLinks)
	assert.NoError(t, got.Validate())

	// The first source produced full text, so the others are never touched.
	ia.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	ol.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestGetBookContent_FullTextShortCircuits(t *testing.T) {
	pg := newMockSource(domain.SourceTypePublicDomain)
	ia := newMockSource(domain.SourceTypeArchive)
	ol := newMockSource(domain.SourceTypeBibliographic)

	pg.On("Search", mock.Anything, sources.SearchParams{Query: "Emma", Limit: DefaultCandidateLimit}).
		Return(searchResult(domain.SourceTypePublicDomain, candidate("158", "Emma", "Austen, Jane")), nil).Once()
	pg.On("FetchContent", mock.Anything, "158").
		Return(&domain.RawContent{ID: "158", Text: "Emma Woodhouse, handsome, clever, and rich", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/158.txt")}}, nil).Once()

	svc := newTestService(newRegistry(pg, ia, ol), nil)
	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Emma", Author: "Jane Austen"}, false)

	assert.True(t, got.IsFullText)
	assert.Equal(t, domain.SourceTypePublicDomain, got.Source)
	pg.AssertExpectations(t)
	ia.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	ia.AssertNotCalled(t, "FetchContent", mock.Anything, mock.Anything)
	ol.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	ol.AssertNotCalled(t, "FetchContent", mock.Anything, mock.Anything)
}

func TestGetBookContent_LaterFullTextBeatsEarlierPartial(t *testing.T) {
	pg := newMockSource(domain.SourceTypePublicDomain)
	ia := newMockSource(domain.SourceTypeArchive)
	ol := newMockSource(domain.SourceTypeBibliographic)

	pg.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypePublicDomain, candidate("1", "Opticks", "Isaac Newton")), nil).Once()
	pg.On("FetchContent", mock.Anything, "1").
		Return(&domain.RawContent{ID: "1", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/1.epub")}}, nil).Once()
	ia.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypeArchive, candidate("opticks00newt", "Opticks", "Newton, Isaac")), nil).Once()
	ia.On("FetchContent", mock.Anything, "opticks00newt").
		Return(&domain.RawContent{ID: "opticks00newt", Text: "QUERIES", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/o.txt")}}, nil).Once()

	svc := newTestService(newRegistry(pg, ia, ol), nil)
	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Opticks", Author: "Isaac Newton"}, false)

	assert.True(t, got.IsFullText)
	assert.Equal(t, domain.SourceTypeArchive, got.Source)
	assert.True(t, strings.HasPrefix(got.Content, "QUERIES"))
	ol.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestGetBookContent_FirstPartialWins(t *testing.T) {
	ia := newMockSource(domain.SourceTypeArchive)
	ol := newMockSource(domain.SourceTypeBibliographic)

	ia.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypeArchive, candidate("a1", "The Republic", "Plato")), nil).Once()
	ia.On("FetchContent", mock.Anything, "a1").
		Return(&domain.RawContent{
			ID:            "a1",
			Title:         "The Republic",
			Authors:       []string{"Plato"},
			DownloadLinks: []domain.DownloadLink{{Kind: domain.LinkKindPDF, URL: "https://archive.org/download/a1/a1.pdf", Quality: domain.QualityHigh}},
			Metadata:      &domain.BookMetadata{Description: "A Socratic dialogue.", PublishYear: 1901},
		}, nil).Once()
	ol.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypeBibliographic, candidate("OL1W", "The Republic", "Plato")), nil).Once()
	ol.On("FetchContent", mock.Anything, "OL1W").
		Return(&domain.RawContent{ID: "OL1W", DownloadLinks: []domain.DownloadLink{{Kind: domain.LinkKindWeb, URL: "https://openlibrary.org/works/OL1W"}}}, nil).Once()

	svc := newTestService(newRegistry(ia, ol), nil)
	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "The Republic", Author: "Plato", Subjects: []string{"Philosophy"}}, false)

	assert.False(t, got.IsFullText)
	assert.Equal(t, domain.SourceTypeArchive, got.Source)
	assert.Contains(t, got.Content, "A Socratic dialogue.")
	assert.Contains(t, got.Content, "Published: 1901")
	assert.Equal(t, "https://archive.org/download/a1/a1.pdf", got.DownloadLinks[0].URL)
	assert.Equal(t, []string{"Philosophy"}, got.Subjects())
	ia.AssertExpectations(t)
	ol.AssertExpectations(t)
}

func TestGetBookContent_FirstSimilarCandidateIsFetched(t *testing.T) {
	pg := newMockSource(domain.SourceTypePublicDomain)

	pg.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypePublicDomain,
			candidate("1", "A Treatise on Electricity", "James Maxwell"),
			candidate("2", "Emma", "Jane Austen"),
			candidate("3", "Emma", "Jane Austen"),
		), nil).Once()
	pg.On("FetchContent", mock.Anything, "2").
		Return(&domain.RawContent{ID: "2", Text: "chapter one", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/2.txt")}}, nil).Once()

	svc := newTestService(newRegistry(pg), nil)
	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Emma", Author: "Jane Austen"}, false)

	assert.True(t, got.IsFullText)
	pg.AssertExpectations(t)
	pg.AssertNotCalled(t, "FetchContent", mock.Anything, "3")
}

func TestGetBookContent_CoAuthorsMatchedOneByOne(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
	}{
		{"reading order", []string{"Jane Doe", "William Strunk"}},
		{"catalog order", []string{"Doe, Jane", "Strunk, William, 1869-1946"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg := newMockSource(domain.SourceTypePublicDomain)
			pg.On("Search", mock.Anything, mock.Anything).
				Return(searchResult(domain.SourceTypePublicDomain,
					candidate("7", "The Elements of Style Illustrated", tt.authors...),
				), nil).Once()
			pg.On("FetchContent", mock.Anything, "7").
				Return(&domain.RawContent{ID: "7", Text: "Rule one", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/7.txt")}}, nil).Once()

			svc := newTestService(newRegistry(pg), nil)
			got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Elements of Style", Author: "William Strunk"}, false)

			assert.True(t, got.IsFullText)
			pg.AssertExpectations(t)
		})
	}
}

func TestGetBookContent_AllSourcesFail(t *testing.T) {
	netErr := domain.NewNetworkError("test", errors.New("connection refused"))
	pg, ia, ol := allFailing(netErr)

	svc := newTestService(newRegistry(pg, ia, ol), nil)
	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Lost Book", Author: "Nobody", Subjects: []string{"Mathematics"}}, false)

	require.NotNil(t, got)
	assert.Equal(t, domain.SourceTypeGenerated, got.Source)
	assert.False(t, got.IsFullText)
	assert.GreaterOrEqual(t, len(got.DownloadLinks), 2)
	assert.Contains(t, got.Content, "Lost Book")
	assert.Contains(t, got.Content, "Additional Study Resources")
	assert.Contains(t, got.Content, GradesMath)
	assert.NoError(t, got.Validate())

	pg.AssertExpectations(t)
	ia.AssertExpectations(t)
	ol.AssertExpectations(t)
}

func TestGetBookContent_DownloadLinksNeverEmpty(t *testing.T) {
	failures := []error{
		domain.NewNetworkError("test", errors.New("reset")),
		domain.NewTimeoutError("test", time.Second, context.DeadlineExceeded),
		domain.NewHTTPError("test", http.StatusServiceUnavailable, "down"),
		domain.NewParseError("test", errors.New("unexpected EOF")),
	}
	queries := []domain.BookQuery{
		{Title: "Emma"},
		{Title: "Introduction to Physics", Author: "Jane Doe", Subjects: []string{"physics"}},
		{Title: "x", SourceKey: "OL1W"},
	}

	for _, failure := range failures {
		for _, q := range queries {
			t.Run(fmt.Sprintf("%s/%s", domain.ErrorKind(failure), q.Title), func(t *testing.T) {
				pg, ia, ol := allFailing(failure)
				svc := newTestService(newRegistry(pg, ia, ol), nil)

				got := svc.GetBookContent(context.Background(), q, false)
				assert.NotEmpty(t, got.DownloadLinks)
				assert.NotEmpty(t, strings.TrimSpace(got.Content))
			})
		}
	}
}

func TestGetBookContent_FetchErrorContinues(t *testing.T) {
	pg := newMockSource(domain.SourceTypePublicDomain)
	ia := newMockSource(domain.SourceTypeArchive)

	pg.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypePublicDomain, candidate("1", "Walden", "Henry David Thoreau")), nil).Once()
	pg.On("FetchContent", mock.Anything, "1").Return(nil, domain.NewNotFoundError("book", "1")).Once()
	ia.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypeArchive, candidate("walden", "Walden", "Thoreau, Henry David")), nil).Once()
	ia.On("FetchContent", mock.Anything, "walden").
		Return(&domain.RawContent{ID: "walden", Text: "When I wrote the following pages", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/w.txt")}}, nil).Once()

	svc := newTestService(newRegistry(pg, ia), nil)
	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Walden", Author: "Henry David Thoreau"}, false)

	assert.Equal(t, domain.SourceTypeArchive, got.Source)
	assert.True(t, got.IsFullText)
}

func TestGetBookContent_CacheHit(t *testing.T) {
	c := cache.NewMemoryCache()
	pg := newMockSource(domain.SourceTypePublicDomain)
	pg.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypePublicDomain, candidate("158", "Emma", "Jane Austen")), nil).Once()
	pg.On("FetchContent", mock.Anything, "158").
		Return(&domain.RawContent{ID: "158", Text: "Emma Woodhouse", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/158.txt")}}, nil).Once()

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWith(reg, "test")
	svc := NewService(Config{}, newRegistry(pg), c, nil, metrics, zerolog.Nop())
	q := domain.BookQuery{Title: "Emma", Author: "Jane Austen"}

	first := svc.GetBookContent(context.Background(), q, true)
	second := svc.GetBookContent(context.Background(), q, true)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.SourceTypePublicDomain, second.Source)
	pg.AssertNumberOfCalls(t, "Search", 1)
	pg.AssertNumberOfCalls(t, "FetchContent", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheHits.WithLabelValues(cache.NamespaceBooks)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheMisses.WithLabelValues(cache.NamespaceBooks)))

	stored, ok, err := cache.GetJSON[domain.BookContent](context.Background(), c, BookKey(q))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Content, stored.Content)
}

func TestGetBookContent_CacheBypass(t *testing.T) {
	c := cache.NewMemoryCache()
	q := domain.BookQuery{Title: "Emma"}
	require.NoError(t, cache.SetJSON(context.Background(), c, BookKey(q), Enhance(Synthesize(q)), time.Hour))

	pg := newMockSource(domain.SourceTypePublicDomain)
	pg.On("Search", mock.Anything, mock.Anything).
		Return(searchResult(domain.SourceTypePublicDomain, candidate("158", "Emma")), nil).Once()
	pg.On("FetchContent", mock.Anything, "158").
		Return(&domain.RawContent{ID: "158", Text: "Emma Woodhouse", DownloadLinks: []domain.DownloadLink{txtLink("https://example.org/158.txt")}}, nil).Once()

	svc := newTestService(newRegistry(pg), c)
	got := svc.GetBookContent(context.Background(), q, false)

	assert.Equal(t, domain.SourceTypePublicDomain, got.Source)
	pg.AssertExpectations(t)
}

func TestGetBookContent_PublishesResolvedEvent(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(evs []*domain.Event) bool {
		if len(evs) != 1 || evs[0].EventType != domain.EventTypeBookContentResolved {
			return false
		}
		var p domain.BookContentResolvedPayload
		if err := json.Unmarshal(evs[0].Payload, &p); err != nil {
			return false
		}
		return p.Source == domain.SourceTypeGenerated && !p.FromCache && p.BookKey == evs[0].AggregateID
	})).Return(errors.New("broker down")).Once()

	pg, ia, ol := allFailing(domain.NewNetworkError("test", errors.New("down")))
	svc := NewService(Config{}, newRegistry(pg, ia, ol), nil, pub, nil, zerolog.Nop())

	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Anything"}, false)

	assert.Equal(t, domain.SourceTypeGenerated, got.Source)
	pub.AssertExpectations(t)
}

func TestGetBookContent_NoSources(t *testing.T) {
	svc := newTestService(sources.NewRegistry(), nil)
	got := svc.GetBookContent(context.Background(), domain.BookQuery{Title: "Emma"}, true)

	assert.Equal(t, domain.SourceTypeGenerated, got.Source)
	assert.NotEmpty(t, got.DownloadLinks)
}

func TestSearchEducationalBooks(t *testing.T) {
	pg := newMockSource(domain.SourceTypePublicDomain)
	ia := newMockSource(domain.SourceTypeArchive)
	ol := newMockSource(domain.SourceTypeBibliographic)

	params := sources.SearchParams{Query: "physics", Subjects: []string{"Physics"}, Limit: 10}
	pg.On("Search", mock.Anything, params).Return(searchResult(domain.SourceTypePublicDomain,
		domain.SourceCandidate{ID: "p1", Title: "Physics for Everyone", Subjects: []string{"Physics"},
			Availability: domain.Availability{CanRead: true, CanDownload: true, IsPublicDomain: true}},
	), nil).Once()
	ia.On("Search", mock.Anything, params).Return(nil, domain.NewTimeoutError("archive", time.Second, context.DeadlineExceeded)).Once()
	ol.On("Search", mock.Anything, params).Return(searchResult(domain.SourceTypeBibliographic,
		domain.SourceCandidate{ID: "OL1W", Title: "Modern Physics", Subjects: []string{"Physics", "Science"}},
		domain.SourceCandidate{ID: "OL2W", Title: "Astronomy"},
	), nil).Once()

	svc := newTestService(newRegistry(pg, ia, ol), nil)
	got := svc.SearchEducationalBooks(context.Background(), "physics", []string{"Physics"}, "", 10)

	require.Len(t, got, 3)
	assert.Equal(t, "p1", got[0].Book.ID)
	assert.Equal(t, 26, got[0].Score)
	assert.Equal(t, "OL1W", got[1].Book.ID)
	assert.Equal(t, 12, got[1].Score)
	assert.Equal(t, "OL2W", got[2].Book.ID)
	assert.Equal(t, domain.SourceTypeBibliographic, got[2].Source)
}

func TestSearchEducationalBooks_CountsStartsBeforeFanOut(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsWith(reg, "test")

	var startedDuringSearch float64
	pg := newMockSource(domain.SourceTypePublicDomain)
	ia := newMockSource(domain.SourceTypeArchive)
	pg.On("Search", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			startedDuringSearch = testutil.ToFloat64(metrics.SearchesStarted.WithLabelValues(string(domain.SourceTypePublicDomain)))
		}).
		Return(searchResult(domain.SourceTypePublicDomain, candidate("1", "Physics")), nil).Once()
	ia.On("Search", mock.Anything, mock.Anything).
		Return(nil, domain.NewNetworkError("archive", errors.New("down"))).Once()

	svc := NewService(Config{}, newRegistry(pg, ia), nil, nil, metrics, zerolog.Nop())
	got := svc.SearchEducationalBooks(context.Background(), "physics", []string{"Physics"}, "", 5)

	require.Len(t, got, 1)
	assert.Equal(t, 1.0, startedDuringSearch)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SearchesStarted.WithLabelValues(string(domain.SourceTypeArchive))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SearchesCompleted.WithLabelValues(string(domain.SourceTypePublicDomain))))
}

func TestSearchEducationalBooks_GradeDefaultsAndLimit(t *testing.T) {
	pg := newMockSource(domain.SourceTypePublicDomain)

	want := domain.DefaultSubjects(domain.GradeBandJuniorSecondary)
	pg.On("Search", mock.Anything, mock.MatchedBy(func(p sources.SearchParams) bool {
		return assert.ObjectsAreEqual(want, p.Subjects) && p.Limit == 2
	})).Return(searchResult(domain.SourceTypePublicDomain,
		candidate("1", "A"), candidate("2", "B"), candidate("3", "C"),
	), nil).Once()

	svc := newTestService(newRegistry(pg), nil)
	got := svc.SearchEducationalBooks(context.Background(), "anything", nil, "grade 7", 2)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].Book.ID)
	assert.Equal(t, "2", got[1].Book.ID)
	pg.AssertExpectations(t)
}

func TestSearchEducationalBooks_TotalFailureIsEmpty(t *testing.T) {
	pg, ia, ol := allFailing(domain.NewNetworkError("test", errors.New("down")))

	svc := newTestService(newRegistry(pg, ia, ol), nil)
	got := svc.SearchEducationalBooks(context.Background(), "history", []string{"History"}, "", 5)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
