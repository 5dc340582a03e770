// Package gutenberg implements the public-domain catalog source on top of the
// Gutendex JSON API for Project Gutenberg.
package gutenberg

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/book-content-service/internal/dedup"
	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/sources"
	"github.com/helixir/book-content-service/internal/textclean"
)

// Defaults for a zero Config. Gutendex pages hold 32 books, more than a
// single search needs.
const (
	DefaultBaseURL    = "https://gutendex.com"
	DefaultRateLimit  = 2.0
	DefaultBurstSize  = 2
	DefaultTimeout    = 15 * time.Second
	DefaultMaxResults = 10

	// SourceName is the display name of this catalog.
	SourceName = "Project Gutenberg"

	ebookPageURL = "https://www.gutenberg.org/ebooks/"
)

// DefaultEducationalSubjects are sent as Gutendex topics when the caller
// gives no subject hints, and back the optional strict filter.
var DefaultEducationalSubjects = []string{
	"Education", "Science", "Mathematics", "History", "Literature",
	"Philosophy", "Technology", "Medicine", "Psychology", "Economics",
}

// Config configures the Gutendex client. Zero fields take the package
// defaults, except Enabled.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimit    float64 // requests per second
	BurstSize    int
	MaxResults   int // per search when the caller gives no limit
	PreviewLimit int // runes of extracted text kept

	// StrictEducationalFilter drops candidates that match none of
	// DefaultEducationalSubjects.
	StrictEducationalFilter bool

	UserAgent string
	Transport http.RoundTripper // proxy transport, if any
	Enabled   bool
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(cmp.Or(c.BaseURL, DefaultBaseURL), "/")
	c.Timeout = cmp.Or(c.Timeout, DefaultTimeout)
	c.RateLimit = cmp.Or(c.RateLimit, DefaultRateLimit)
	c.BurstSize = cmp.Or(c.BurstSize, DefaultBurstSize)
	c.MaxResults = cmp.Or(c.MaxResults, DefaultMaxResults)
	c.PreviewLimit = cmp.Or(c.PreviewLimit, textclean.PreviewLimit)
	return c
}

// Client is the public-domain source.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.ContentSource = (*Client)(nil)

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return NewWithHTTPClient(cfg, sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    "gutenberg",
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.UserAgent,
		Transport: cfg.Transport,
	}))
}

// NewWithHTTPClient builds a client over an existing HTTPClient, so tests
// can point it at an httptest server without rate limiting.
func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	return &Client{config: cfg.withDefaults(), httpClient: httpClient}
}

// Search queries Gutendex once per topic. Gutendex filters on a single topic
// phrase, so subject hints are OR-ed by issuing one request each. Without
// hints DefaultEducationalSubjects are used as topics, and a final unfiltered
// request fills whatever the educational topics left open. Requests stop as
// soon as the limit is reached. Candidates keep first-seen order.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	began := time.Now()

	limit := params.Limit
	if limit <= 0 {
		limit = c.config.MaxResults
	}

	topics, biased := searchTopics(params.Subjects)
	if biased {
		topics = append(topics, "")
	}

	var (
		candidates = make([]domain.SourceCandidate, 0, limit)
		seen       = make(map[int]bool)
		total      int
	)
	for _, topic := range topics {
		if len(candidates) >= limit {
			break
		}
		var resp SearchResponse
		if err := c.httpClient.GetJSON(ctx, c.buildSearchURL(params.Query, topic), &resp); err != nil {
			if len(candidates) > 0 {
				break
			}
			return nil, fmt.Errorf("gutenberg search: %w", err)
		}
		total += resp.Count
		for i := range resp.Results {
			book := &resp.Results[i]
			if len(candidates) >= limit {
				break
			}
			if seen[book.ID] || !c.isEducational(book) {
				continue
			}
			seen[book.ID] = true
			candidates = append(candidates, bookToCandidate(book))
		}
	}

	return &sources.SearchResult{
		Candidates:     candidates,
		TotalResults:   total,
		Source:         domain.SourceTypePublicDomain,
		SearchDuration: time.Since(began),
	}, nil
}

// searchTopics returns the trimmed, de-duplicated hints, or the default
// educational subjects when no usable hint is given. biased reports the
// latter.
func searchTopics(hints []string) (topics []string, biased bool) {
	seen := make(map[string]bool, len(hints))
	for _, h := range hints {
		h = strings.TrimSpace(h)
		if h == "" || seen[strings.ToLower(h)] {
			continue
		}
		seen[strings.ToLower(h)] = true
		topics = append(topics, h)
	}
	if len(topics) > 0 {
		return topics, false
	}
	return slices.Clone(DefaultEducationalSubjects), true
}

// FetchContent retrieves a book's metadata, maps its formats to download
// links and extracts the plain-text (or HTML) rendition when one exists.
func (c *Client) FetchContent(ctx context.Context, id string) (*domain.RawContent, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, domain.NewNotFoundError("gutenberg book", id)
	}

	var book Book
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/books/"+id+"/", &book); err != nil {
		var httpErr *domain.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError("gutenberg book", id)
		}
		return nil, fmt.Errorf("gutenberg fetch %s: %w", id, err)
	}

	links := formatsToLinks(book.Formats)
	links = append(links, sources.WebLink(ebookPageURL+id, "Project Gutenberg book page", SourceName))

	raw := &domain.RawContent{
		ID:             id,
		Title:          book.Title,
		Authors:        authorNames(book.Authors),
		DownloadLinks:  links,
		ReadingOptions: sources.ReadingOptionsFor(links),
		Metadata:       bookMetadata(&book),
	}

	if textURL := pickTextFormat(book.Formats); textURL != "" {
		// A failed text download still leaves the links usable.
		if text, err := c.httpClient.GetText(ctx, textURL); err == nil {
			raw.Text = textclean.CleanWithLimit(text, domain.SourceTypePublicDomain, c.config.PreviewLimit)
		}
	}

	return raw, nil
}

// SourceType returns the provenance tag for Project Gutenberg.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePublicDomain
}

// Name returns the source name used in cache keys and metrics.
func (c *Client) Name() string {
	return "gutenberg"
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(query, topic string) string {
	q := url.Values{}
	q.Set("search", strings.TrimSpace(query))
	if topic != "" {
		q.Set("topic", topic)
	}
	return c.config.BaseURL + "/books?" + q.Encode()
}

// isEducational is an advisory relevance check against
// DefaultEducationalSubjects. Unless StrictEducationalFilter is set it lets
// every book through: recall is preferred over precision, and whether the
// filter should ever be tightened by default is still an open product
// question.
func (c *Client) isEducational(book *Book) bool {
	if !c.config.StrictEducationalFilter {
		return true
	}
	haystack := strings.ToLower(book.Title + " " + strings.Join(book.Subjects, " ") + " " + strings.Join(book.Bookshelves, " "))
	for _, s := range DefaultEducationalSubjects {
		if strings.Contains(haystack, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func bookToCandidate(book *Book) domain.SourceCandidate {
	files := make([]domain.FileAsset, 0, len(book.Formats))
	for _, mime := range sortedMIMEs(book.Formats) {
		files = append(files, domain.FileAsset{Name: book.Formats[mime], Format: mime, URL: book.Formats[mime]})
	}

	return domain.SourceCandidate{
		ID:       strconv.Itoa(book.ID),
		Title:    book.Title,
		Authors:  authorNames(book.Authors),
		Subjects: subjectsOf(book),
		Files:    files,
		Language: firstOf(book.Languages),
		Availability: domain.Availability{
			CanRead:        true,
			CanDownload:    len(book.Formats) > 0,
			IsPublicDomain: book.IsPublicDomain(),
		},
	}
}

func bookMetadata(book *Book) *domain.BookMetadata {
	m := &domain.BookMetadata{
		Language:    firstOf(book.Languages),
		Description: firstOf(book.Summaries),
	}
	m.AddSubjects(subjectsOf(book)...)
	return m
}

func subjectsOf(book *Book) []string {
	out := make([]string, 0, len(book.Subjects)+len(book.Bookshelves))
	out = append(out, book.Subjects...)
	for _, shelf := range book.Bookshelves {
		out = append(out, strings.TrimPrefix(shelf, "Browsing: "))
	}
	return out
}

func authorNames(people []Person) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		if n := dedup.DisplayName(p.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// formatsToLinks maps Gutendex formats to download links, best quality first.
// Cover images, RDF records and zip bundles are skipped.
func formatsToLinks(formats map[string]string) []domain.DownloadLink {
	links := make([]domain.DownloadLink, 0, len(formats))
	for _, mime := range sortedMIMEs(formats) {
		if strings.HasPrefix(mime, "image/") || strings.Contains(mime, "rdf") || mime == "application/octet-stream" {
			continue
		}
		links = append(links, sources.InferLink(formats[mime], mime, nil, SourceName))
	}
	sources.SortByQuality(links)
	return links
}

// pickTextFormat prefers UTF-8 plain text, then any plain text, then HTML.
func pickTextFormat(formats map[string]string) string {
	var plain, html string
	for _, mime := range sortedMIMEs(formats) {
		switch {
		case strings.HasPrefix(mime, "text/plain") && strings.Contains(mime, "utf-8"):
			return formats[mime]
		case strings.HasPrefix(mime, "text/plain") && plain == "":
			plain = formats[mime]
		case strings.HasPrefix(mime, "text/html") && html == "":
			html = formats[mime]
		}
	}
	if plain != "" {
		return plain
	}
	return html
}

func sortedMIMEs(formats map[string]string) []string {
	mimes := make([]string, 0, len(formats))
	for mime := range formats {
		mimes = append(mimes, mime)
	}
	sort.Strings(mimes)
	return mimes
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
