// Package domain provides domain models and business logic for the Book Content Service.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownAuthor is the display author used when no source reports one.
const UnknownAuthor = "Unknown Author"

// SourceType is the provenance tag of a BookContent or a search candidate.
type SourceType string

const (
	SourceTypePublicDomain  SourceType = "public_domain_catalog"
	SourceTypeArchive       SourceType = "archive_catalog"
	SourceTypeBibliographic SourceType = "bibliographic_service"
	SourceTypeGenerated     SourceType = "generated"
)

// PreferenceOrder is the fixed order in which content sources are tried.
// Public-domain texts are the most likely to be clean and complete, archive
// scans come next, and bibliographic records rarely carry full text.
var PreferenceOrder = []SourceType{
	SourceTypePublicDomain,
	SourceTypeArchive,
	SourceTypeBibliographic,
}

// IsValid reports whether s is one of the known provenance tags.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypePublicDomain, SourceTypeArchive, SourceTypeBibliographic, SourceTypeGenerated:
		return true
	default:
		return false
	}
}

// LinkKind is the kind of a download link.
type LinkKind string

const (
	LinkKindPDF  LinkKind = "pdf"
	LinkKindEPUB LinkKind = "epub"
	LinkKindTXT  LinkKind = "txt"
	LinkKindHTML LinkKind = "html"
	LinkKindMOBI LinkKind = "mobi"
	LinkKindWeb  LinkKind = "web"
)

// Quality grades a download link.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// ReadingKind is the kind of a reading option.
type ReadingKind string

const (
	ReadingKindWebReader ReadingKind = "web_reader"
	ReadingKindDownload  ReadingKind = "download"
	ReadingKindPreview   ReadingKind = "preview"
)

// DownloadLink points at one downloadable or viewable rendition of a book.
type DownloadLink struct {
	Kind        LinkKind `json:"type"`
	URL         string   `json:"url"`
	Format      string   `json:"format"`
	Description string   `json:"description"`
	Size        string   `json:"size,omitempty"`
	Quality     Quality  `json:"quality"`
	SourceName  string   `json:"source"`
}

// ReadingOption describes one way of reading a book.
type ReadingOption struct {
	Kind        ReadingKind `json:"type"`
	URL         string      `json:"url"`
	Description string      `json:"description"`
	Format      string      `json:"format"`
}

// BookMetadata holds optional descriptive data attached to a BookContent.
type BookMetadata struct {
	Subjects    []string `json:"subjects,omitempty"`
	Language    string   `json:"language,omitempty"`
	PublishYear int      `json:"publish_year,omitempty"`
	Description string   `json:"description,omitempty"`
}

// AddSubjects merges subjects into the metadata, keeping set semantics
// (case-insensitive) and first-seen order.
func (m *BookMetadata) AddSubjects(subjects ...string) {
	seen := make(map[string]struct{}, len(m.Subjects)+len(subjects))
	for _, s := range m.Subjects {
		seen[strings.ToLower(s)] = struct{}{}
	}
	for _, s := range subjects {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		m.Subjects = append(m.Subjects, s)
	}
}

// BookQuery is the caller-supplied descriptor of the book to look up.
type BookQuery struct {
	Title     string   `json:"title" validate:"required,min=1,max=500"`
	Author    string   `json:"author" validate:"max=500"`
	Subjects  []string `json:"subjects" validate:"max=25,dive,max=200"`
	SourceKey string   `json:"source_key" validate:"max=200"`
}

// CacheParams returns the parameters identifying this query in the content cache.
// The opaque source key wins when present; otherwise title and author are used.
func (q BookQuery) CacheParams() map[string]string {
	if key := strings.TrimSpace(q.SourceKey); key != "" {
		return map[string]string{"key": key}
	}
	return map[string]string{
		"title":  strings.ToLower(strings.TrimSpace(q.Title)),
		"author": strings.ToLower(strings.TrimSpace(q.Author)),
	}
}

// BookContent is the unified result of a content lookup.
type BookContent struct {
	Title          string          `json:"title"`
	Author         string          `json:"author"`
	Content        string          `json:"content"`
	IsFullText     bool            `json:"is_full_text"`
	Source         SourceType      `json:"source"`
	DownloadLinks  []DownloadLink  `json:"download_links"`
	ReadingOptions []ReadingOption `json:"reading_options"`
	Metadata       *BookMetadata   `json:"metadata,omitempty"`
}

// Validate checks the invariants every returned BookContent must satisfy.
func (c *BookContent) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Content) == "" {
		errs = append(errs, NewValidationError("content", "content must not be empty"))
	}
	if len(c.DownloadLinks) == 0 {
		errs = append(errs, NewValidationError("download_links", "at least one download link is required"))
	}
	if !c.Source.IsValid() {
		errs = append(errs, NewValidationError("source", fmt.Sprintf("unknown source %q", c.Source)))
	}
	if c.IsFullText && c.Source == SourceTypeGenerated {
		errs = append(errs, NewValidationError("is_full_text", "generated content cannot be full text"))
	}
	return errors.Join(errs...)
}

// Subjects returns the metadata subjects, or nil when there is no metadata.
func (c *BookContent) Subjects() []string {
	if c.Metadata == nil {
		return nil
	}
	return c.Metadata.Subjects
}

// FileAsset is one file an item declares in its source catalog.
type FileAsset struct {
	Name      string `json:"name"`
	Format    string `json:"format"`
	URL       string `json:"url,omitempty"`
	SizeBytes *int64 `json:"size_bytes,omitempty"`
}

// Availability summarizes how a candidate can be accessed.
type Availability struct {
	CanRead        bool `json:"can_read"`
	CanDownload    bool `json:"can_download"`
	RequiresBorrow bool `json:"requires_borrow"`
	IsPublicDomain bool `json:"is_public_domain"`
}

// SourceCandidate is a single search hit from one catalog.
type SourceCandidate struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Authors      []string     `json:"authors"`
	Subjects     []string     `json:"subjects"`
	Files        []FileAsset  `json:"files,omitempty"`
	Language     string       `json:"language,omitempty"`
	PublishYear  int          `json:"publish_year,omitempty"`
	Availability Availability `json:"availability"`
}

// AuthorString joins the candidate's authors for display and matching.
func (c SourceCandidate) AuthorString() string {
	return strings.Join(c.Authors, ", ")
}

// RawContent is what a source returns for a single item.
// Text is empty when the item has no usable text asset.
type RawContent struct {
	ID             string
	Title          string
	Authors        []string
	Text           string
	DownloadLinks  []DownloadLink
	ReadingOptions []ReadingOption
	Metadata       *BookMetadata
}

// HasText reports whether the raw content carries extracted text.
func (r *RawContent) HasText() bool {
	return r != nil && strings.TrimSpace(r.Text) != ""
}

// RankedResult is one entry of a multi-source search.
type RankedResult struct {
	Book         SourceCandidate `json:"book"`
	Source       SourceType      `json:"source"`
	Availability Availability    `json:"availability"`
	Score        int             `json:"score"`
}
