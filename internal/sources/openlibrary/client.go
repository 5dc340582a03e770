// Package openlibrary implements the bibliographic source on top of the
// Open Library search, works and editions APIs. It never yields full text.
package openlibrary

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/sources"
	"github.com/helixir/book-content-service/internal/textclean"
)

// Defaults for a zero Config.
const (
	DefaultBaseURL    = "https://openlibrary.org"
	DefaultArchiveURL = "https://archive.org" // scanned editions download from here
	DefaultRateLimit  = 3.0
	DefaultBurstSize  = 3
	DefaultTimeout    = 10 * time.Second
	DefaultMaxResults = 10

	// SourceName is the display name of this catalog.
	SourceName = "Open Library"

	maxScannedEditions = 2
	maxAuthorLookups   = 3
)

var searchFields = strings.Join([]string{
	"key", "title", "author_name", "subject", "first_publish_year",
	"language", "ebook_access", "has_fulltext", "public_scan_b", "ia",
}, ",")

var (
	workIDRe = regexp.MustCompile(`^OL\d+W$`)
	yearRe   = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)
)

// Config configures the Open Library client. Zero fields take the package
// defaults, except Enabled.
type Config struct {
	BaseURL    string
	ArchiveURL string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxResults int
	UserAgent  string
	Transport  http.RoundTripper
	Enabled    bool
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(cmp.Or(c.BaseURL, DefaultBaseURL), "/")
	c.ArchiveURL = strings.TrimRight(cmp.Or(c.ArchiveURL, DefaultArchiveURL), "/")
	c.Timeout = cmp.Or(c.Timeout, DefaultTimeout)
	c.RateLimit = cmp.Or(c.RateLimit, DefaultRateLimit)
	c.BurstSize = cmp.Or(c.BurstSize, DefaultBurstSize)
	c.MaxResults = cmp.Or(c.MaxResults, DefaultMaxResults)
	return c
}

// Client is the bibliographic source.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.ContentSource = (*Client)(nil)

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return NewWithHTTPClient(cfg, sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    "openlibrary",
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.UserAgent,
		Transport: cfg.Transport,
	}))
}

func NewWithHTTPClient(cfg Config, httpClient *sources.HTTPClient) *Client {
	return &Client{config: cfg.withDefaults(), httpClient: httpClient}
}

// Search queries search.json. Each subject hint is sent as a subject filter.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	began := time.Now()

	limit := params.Limit
	if limit <= 0 {
		limit = c.config.MaxResults
	}

	q := url.Values{}
	q.Set("q", strings.TrimSpace(params.Query))
	for _, s := range params.Subjects {
		if s = strings.TrimSpace(s); s != "" {
			q.Add("subject", s)
		}
	}
	q.Set("fields", searchFields)
	q.Set("limit", strconv.Itoa(limit))

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/search.json?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("openlibrary search: %w", err)
	}

	candidates := make([]domain.SourceCandidate, 0, len(resp.Docs))
	for i := range resp.Docs {
		if len(candidates) >= limit {
			break
		}
		doc := &resp.Docs[i]
		id := workID(doc.Key)
		if id == "" {
			continue
		}
		candidates = append(candidates, docToCandidate(id, doc))
	}

	return &sources.SearchResult{
		Candidates:     candidates,
		TotalResults:   resp.NumFound,
		Source:         domain.SourceTypeBibliographic,
		SearchDuration: time.Since(began),
	}, nil
}

// FetchContent reads a work and its editions. The result never carries
// text: scanned editions become archive download links and the work page
// is always linked.
func (c *Client) FetchContent(ctx context.Context, id string) (*domain.RawContent, error) {
	key := id
	if id = workID(key); id == "" {
		return nil, domain.NewNotFoundError("openlibrary work", key)
	}

	var work Work
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/works/"+id+".json", &work); err != nil {
		var httpErr *domain.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError("openlibrary work", id)
		}
		return nil, fmt.Errorf("openlibrary fetch %s: %w", id, err)
	}

	var links []domain.DownloadLink
	var language string

	// Editions are optional; a failure leaves only the work page link.
	var editions EditionsResponse
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/works/"+id+"/editions.json", &editions); err == nil {
		links, language = c.scanLinks(editions.Entries)
	}
	links = append(links, sources.WebLink(c.config.BaseURL+"/works/"+id, "Open Library record", SourceName))

	meta := &domain.BookMetadata{
		Language:    language,
		PublishYear: parseYear(work.FirstPublishDate),
		Description: textclean.Clean(string(work.Description), domain.SourceTypeBibliographic),
	}
	meta.AddSubjects(work.Subjects...)

	return &domain.RawContent{
		ID:             id,
		Title:          work.Title,
		Authors:        c.authorNames(ctx, work.Authors),
		DownloadLinks:  links,
		ReadingOptions: sources.ReadingOptionsFor(links),
		Metadata:       meta,
	}, nil
}

// SourceType returns the provenance tag for Open Library.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeBibliographic
}

// Name returns the source name used in cache keys and metrics.
func (c *Client) Name() string {
	return "openlibrary"
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) scanLinks(editions []Edition) ([]domain.DownloadLink, string) {
	var (
		links    []domain.DownloadLink
		language string
		seen     = make(map[string]struct{})
	)
	for _, e := range editions {
		if language == "" {
			language = e.Language()
		}
		ocaid := strings.TrimSpace(e.OCAID)
		if ocaid == "" || len(seen) >= maxScannedEditions {
			continue
		}
		if _, ok := seen[ocaid]; ok {
			continue
		}
		seen[ocaid] = struct{}{}

		base := c.config.ArchiveURL + "/download/" + url.PathEscape(ocaid) + "/" + url.PathEscape(ocaid)
		links = append(links,
			sources.InferLink(base+".pdf", "", nil, SourceName),
			sources.InferLink(base+".epub", "", nil, SourceName),
		)
	}
	sources.SortByQuality(links)
	return links, language
}

func (c *Client) authorNames(ctx context.Context, authors []WorkAuthor) []string {
	names := make([]string, 0, len(authors))
	for i, a := range authors {
		if i >= maxAuthorLookups {
			break
		}
		key := strings.TrimPrefix(a.Author.Key, "/authors/")
		if key == "" {
			continue
		}
		var details AuthorDetails
		if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/authors/"+url.PathEscape(key)+".json", &details); err != nil {
			continue
		}
		name := details.Name
		if name == "" {
			name = details.PersonalName
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func docToCandidate(id string, doc *Doc) domain.SourceCandidate {
	var language string
	if len(doc.Language) > 0 {
		language = doc.Language[0]
	}
	return domain.SourceCandidate{
		ID:          id,
		Title:       doc.Title,
		Authors:     doc.AuthorNames,
		Subjects:    doc.Subjects,
		Language:    language,
		PublishYear: doc.FirstPublishYear,
		Availability: domain.Availability{
			CanRead:        doc.HasFulltext,
			CanDownload:    doc.PublicScan,
			RequiresBorrow: doc.EbookAccess == "borrowable" || doc.EbookAccess == "printdisabled",
			IsPublicDomain: doc.EbookAccess == "public",
		},
	}
}

// workID extracts "OL123W" from a bare id or a "/works/OL123W" key.
func workID(key string) string {
	id := strings.TrimPrefix(strings.TrimSpace(key), "/works/")
	if !workIDRe.MatchString(id) {
		return ""
	}
	return id
}

func parseYear(s string) int {
	m := yearRe.FindString(s)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}
