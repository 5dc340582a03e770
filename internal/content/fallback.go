package content

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/helixir/book-content-service/internal/domain"
)

// Search endpoints used for generated links.
const (
	WebSearchURL        = "https://www.google.com/search"
	FullTextSearchURL   = "https://archive.org/search"
	generatedSourceName = "Generated"
	unknownYear         = "Unknown"
	generalSubjects     = "General studies"
)

type fallbackData struct {
	Title    string
	Author   string
	Year     string
	Subjects string
}

type summaryData struct {
	Title       string
	Author      string
	Year        int
	Description string
	SourceName  string
}

// Synthesize builds placeholder content for a book no source could provide.
// The result is never full text and always carries a web search for a PDF
// copy and an Internet Archive full-text search, both derived from the title
// and author alone.
func Synthesize(q domain.BookQuery) *domain.BookContent {
	title := firstNonEmpty(q.Title, "Untitled")
	author := firstNonEmpty(q.Author, domain.UnknownAuthor)

	metadata := &domain.BookMetadata{}
	metadata.AddSubjects(q.Subjects...)

	subjects := generalSubjects
	if len(metadata.Subjects) > 0 {
		subjects = strings.Join(metadata.Subjects, ", ")
	}

	body := render("fallback.tmpl", fallbackData{
		Title:    title,
		Author:   author,
		Year:     unknownYear,
		Subjects: subjects,
	})
	options := []domain.ReadingOption{{
		Kind:        domain.ReadingKindWebReader,
		URL:         fullTextSearchLink(title, q.Author),
		Description: "Search digitized libraries for this book",
		Format:      "Web",
	}}

	return &domain.BookContent{
		Title:          title,
		Author:         author,
		Content:        body,
		IsFullText:     false,
		Source:         domain.SourceTypeGenerated,
		DownloadLinks:  searchLinks(title, q.Author),
		ReadingOptions: options,
		Metadata:       metadata,
	}
}

func searchLinks(title, author string) []domain.DownloadLink {
	return []domain.DownloadLink{
		{
			Kind:        domain.LinkKindWeb,
			URL:         pdfSearchLink(title, author),
			Format:      "Web",
			Description: "Search the web for a PDF copy",
			Quality:     domain.QualityLow,
			SourceName:  generatedSourceName,
		},
		{
			Kind:        domain.LinkKindWeb,
			URL:         fullTextSearchLink(title, author),
			Format:      "Web",
			Description: "Search the full text of the Internet Archive",
			Quality:     domain.QualityLow,
			SourceName:  generatedSourceName,
		},
	}
}

func pdfSearchLink(title, author string) string {
	terms := strconv.Quote(title)
	if a := strings.TrimSpace(author); a != "" {
		terms += " " + a
	}
	v := url.Values{}
	v.Set("q", terms+" filetype:pdf")
	return WebSearchURL + "?" + v.Encode()
}

func fullTextSearchLink(title, author string) string {
	terms := strings.TrimSpace(title + " " + strings.TrimSpace(author))
	v := url.Values{}
	v.Set("query", terms)
	v.Set("sin", "TXT")
	return FullTextSearchURL + "?" + v.Encode()
}

func renderSummary(data summaryData) string {
	return render("summary.tmpl", data)
}
