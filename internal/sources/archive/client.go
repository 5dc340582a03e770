// Package archive implements the digitized-archive source on top of the
// Internet Archive advancedsearch and metadata APIs.
package archive

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/book-content-service/internal/dedup"
	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/sources"
	"github.com/helixir/book-content-service/internal/textclean"
)

const (
	// DefaultBaseURL also roots detail pages and file downloads.
	DefaultBaseURL    = "https://archive.org"
	DefaultRateLimit  = 2.0
	DefaultBurstSize  = 3
	DefaultTimeout    = 15 * time.Second
	DefaultMaxResults = 10

	// SourceName is the display name of this catalog.
	SourceName = "Internet Archive"
)

var searchFields = []string{"identifier", "title", "creator", "subject", "year", "language"}

var yearRe = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)

// Config configures the Internet Archive client.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RateLimit    float64
	BurstSize    int
	MaxResults   int
	PreviewLimit int
	UserAgent    string
	Transport    http.RoundTripper
	Enabled      bool
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

// Client is the digitized-archive source.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.ContentSource = (*Client)(nil)

func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return NewWithHTTPClient(cfg, sources.NewHTTPClient(sources.HTTPClientConfig{
		Source:    "archive",
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

// Search queries advancedsearch for text items. Subject hints are OR-ed
// together.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	began := time.Now()

	limit := params.Limit
	if limit <= 0 {
		limit = c.config.MaxResults
	}

	var resp SearchResponse
	if err := c.httpClient.GetJSON(ctx, c.buildSearchURL(params, limit), &resp); err != nil {
		return nil, fmt.Errorf("archive search: %w", err)
	}

	candidates := make([]domain.SourceCandidate, 0, len(resp.Response.Docs))
	for i := range resp.Response.Docs {
		if len(candidates) >= limit {
			break
		}
		doc := &resp.Response.Docs[i]
		if doc.Identifier == "" {
			continue
		}
		candidates = append(candidates, docToCandidate(doc))
	}

	return &sources.SearchResult{
		Candidates:     candidates,
		TotalResults:   resp.Response.NumFound,
		Source:         domain.SourceTypeArchive,
		SearchDuration: time.Since(began),
	}, nil
}

// FetchContent reads an item's metadata, links its readable files and
// extracts the OCR text when the item has one.
func (c *Client) FetchContent(ctx context.Context, id string) (*domain.RawContent, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/?#") {
		return nil, domain.NewNotFoundError("archive item", id)
	}

	var meta MetadataResponse
	if err := c.httpClient.GetJSON(ctx, c.config.BaseURL+"/metadata/"+url.PathEscape(id), &meta); err != nil {
		return nil, fmt.Errorf("archive fetch %s: %w", id, err)
	}
	if meta.Metadata.Identifier == "" && len(meta.Files) == 0 {
		return nil, domain.NewNotFoundError("archive item", id)
	}

	// The detail page is always the first link.
	links := []domain.DownloadLink{
		sources.WebLink(c.config.BaseURL+"/details/"+url.PathEscape(id), "Read online at the Internet Archive", SourceName),
	}
	fileLinks := make([]domain.DownloadLink, 0, len(meta.Files))
	var textFile string
	for _, f := range meta.Files {
		if isTextFile(f) && textFile == "" {
			textFile = f.Name
		}
		link := sources.InferLink(c.downloadURL(id, f.Name), f.Format, f.SizeBytes(), SourceName)
		if link.Kind == domain.LinkKindWeb {
			continue
		}
		fileLinks = append(fileLinks, link)
	}
	sources.SortByQuality(fileLinks)
	links = append(links, fileLinks...)

	raw := &domain.RawContent{
		ID:             id,
		Title:          meta.Metadata.Title.First(),
		Authors:        creatorNames(meta.Metadata.Creator),
		DownloadLinks:  links,
		ReadingOptions: sources.ReadingOptionsFor(links),
		Metadata:       itemMetadata(&meta.Metadata),
	}

	if textFile != "" {
		if text, err := c.httpClient.GetText(ctx, c.downloadURL(id, textFile)); err == nil {
			raw.Text = textclean.CleanWithLimit(text, domain.SourceTypeArchive, c.config.PreviewLimit)
		}
	}

	return raw, nil
}

// SourceType returns the provenance tag for the Internet Archive.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArchive
}

// Name returns the source name used in cache keys and metrics.
func (c *Client) Name() string {
	return "archive"
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(params sources.SearchParams, limit int) string {
	q := url.Values{}
	q.Set("q", buildQuery(params.Query, params.Subjects))
	for _, f := range searchFields {
		q.Add("fl[]", f)
	}
	q.Set("rows", strconv.Itoa(limit))
	q.Set("page", "1")
	q.Set("output", "json")
	return c.config.BaseURL + "/advancedsearch.php?" + q.Encode()
}

func buildQuery(query string, subjects []string) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(escapeQuery(query))
	b.WriteString(") AND mediatype:texts")

	clauses := make([]string, 0, len(subjects))
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		clauses = append(clauses, `subject:"`+strings.ReplaceAll(s, `"`, "")+`"`)
	}
	if len(clauses) > 0 {
		b.WriteString(" AND (")
		b.WriteString(strings.Join(clauses, " OR "))
		b.WriteString(")")
	}
	return b.String()
}

var queryEscaper = strings.NewReplacer(`"`, " ", "(", " ", ")", " ", ":", " ")

func escapeQuery(q string) string {
	return strings.Join(strings.Fields(queryEscaper.Replace(q)), " ")
}

func (c *Client) downloadURL(id, name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.config.BaseURL + "/download/" + url.PathEscape(id) + "/" + strings.Join(segments, "/")
}

func isTextFile(f File) bool {
	name := strings.ToLower(f.Name)
	return f.Format == "DjVuTXT" || strings.HasSuffix(name, "_djvu.txt") || f.Format == "Text"
}

func docToCandidate(doc *Doc) domain.SourceCandidate {
	return domain.SourceCandidate{
		ID:          doc.Identifier,
		Title:       doc.Title.First(),
		Authors:     creatorNames(doc.Creator),
		Subjects:    splitSubjects(doc.Subject),
		Language:    doc.Language.First(),
		PublishYear: parseYear(doc.Year.First()),
		Availability: domain.Availability{
			CanRead:     true,
			CanDownload: true,
		},
	}
}

func itemMetadata(m *ItemMetadata) *domain.BookMetadata {
	year := parseYear(m.Year.First())
	if year == 0 {
		year = parseYear(m.Date.First())
	}
	meta := &domain.BookMetadata{
		Language:    m.Language.First(),
		PublishYear: year,
		Description: textclean.Clean(m.Description.Joined("\n\n"), domain.SourceTypeArchive),
	}
	meta.AddSubjects(splitSubjects(m.Subject)...)
	return meta
}

// splitSubjects also splits uploader-entered "a; b; c" lists.
func splitSubjects(values FlexString) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func creatorNames(values FlexString) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		if n := dedup.DisplayName(v); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func parseYear(s string) int {
	m := yearRe.FindString(s)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}
