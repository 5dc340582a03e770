package sources

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/helixir/book-content-service/internal/domain"
)

// InferLink builds a DownloadLink for a file, inferring its kind and quality
// from the MIME type or file extension. pdf and epub are high quality, txt,
// html and mobi medium, and anything else is a low quality web link.
// sizeBytes may be nil when the catalog does not report a size.
func InferLink(fileURL, format string, sizeBytes *int64, sourceName string) domain.DownloadLink {
	kind := inferKind(fileURL, format)

	link := domain.DownloadLink{
		Kind:       kind,
		URL:        fileURL,
		Format:     formatLabel(kind, format),
		Quality:    qualityFor(kind),
		SourceName: sourceName,
	}
	if sizeBytes != nil && *sizeBytes > 0 {
		link.Size = HumanSize(*sizeBytes)
	}
	link.Description = fmt.Sprintf("%s from %s", link.Format, sourceName)
	return link
}

func inferKind(fileURL, format string) domain.LinkKind {
	f := strings.ToLower(format)
	switch {
	case strings.Contains(f, "pdf"):
		return domain.LinkKindPDF
	case strings.Contains(f, "epub"):
		return domain.LinkKindEPUB
	case strings.Contains(f, "mobi"), strings.Contains(f, "kindle"), strings.Contains(f, "x-mobipocket"):
		return domain.LinkKindMOBI
	case strings.Contains(f, "html"):
		return domain.LinkKindHTML
	case strings.Contains(f, "text/plain"), strings.Contains(f, "djvutxt"), f == "text", f == "txt":
		return domain.LinkKindTXT
	}

	ext := strings.ToLower(path.Ext(strings.SplitN(fileURL, "?", 2)[0]))
	switch ext {
	case ".pdf":
		return domain.LinkKindPDF
	case ".epub":
		return domain.LinkKindEPUB
	case ".mobi", ".azw", ".azw3":
		return domain.LinkKindMOBI
	case ".htm", ".html":
		return domain.LinkKindHTML
	case ".txt":
		return domain.LinkKindTXT
	}
	return domain.LinkKindWeb
}

func qualityFor(kind domain.LinkKind) domain.Quality {
	switch kind {
	case domain.LinkKindPDF, domain.LinkKindEPUB:
		return domain.QualityHigh
	case domain.LinkKindTXT, domain.LinkKindHTML, domain.LinkKindMOBI:
		return domain.QualityMedium
	default:
		return domain.QualityLow
	}
}

func formatLabel(kind domain.LinkKind, format string) string {
	switch kind {
	case domain.LinkKindPDF:
		return "PDF"
	case domain.LinkKindEPUB:
		return "EPUB"
	case domain.LinkKindMOBI:
		return "Kindle (MOBI)"
	case domain.LinkKindHTML:
		return "HTML"
	case domain.LinkKindTXT:
		return "Plain Text"
	}
	if format != "" {
		return format
	}
	return "Web"
}

// WebLink returns a low quality link to a page that can be read online.
func WebLink(pageURL, description, sourceName string) domain.DownloadLink {
	return domain.DownloadLink{
		Kind:        domain.LinkKindWeb,
		URL:         pageURL,
		Format:      "Web",
		Description: description,
		Quality:     domain.QualityLow,
		SourceName:  sourceName,
	}
}

// ReadingOptionsFor derives reading options from download links: web pages
// become web readers, text and html become previews, the rest downloads.
func ReadingOptionsFor(links []domain.DownloadLink) []domain.ReadingOption {
	opts := make([]domain.ReadingOption, 0, len(links))
	for _, l := range links {
		opt := domain.ReadingOption{URL: l.URL, Format: l.Format, Description: l.Description}
		switch l.Kind {
		case domain.LinkKindWeb:
			opt.Kind = domain.ReadingKindWebReader
		case domain.LinkKindHTML, domain.LinkKindTXT:
			opt.Kind = domain.ReadingKindPreview
		default:
			opt.Kind = domain.ReadingKindDownload
		}
		opts = append(opts, opt)
	}
	return opts
}

// HumanSize formats a byte count as "1.2 MB".
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// SortByQuality orders links high quality first, keeping the relative order
// of links with the same quality.
func SortByQuality(links []domain.DownloadLink) {
	sort.SliceStable(links, func(i, j int) bool {
		return qualityRank(links[i].Quality) < qualityRank(links[j].Quality)
	})
}

func qualityRank(q domain.Quality) int {
	switch q {
	case domain.QualityHigh:
		return 0
	case domain.QualityMedium:
		return 1
	default:
		return 2
	}
}
