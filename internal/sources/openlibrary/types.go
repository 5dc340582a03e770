package openlibrary

import (
	"encoding/json"
	"strings"
)

// SearchResponse matches search.json.
type SearchResponse struct {
	NumFound int   `json:"numFound"`
	Start    int   `json:"start"`
	Docs     []Doc `json:"docs"`
}

// Doc is one search.json hit.
type Doc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorNames      []string `json:"author_name"`
	Subjects         []string `json:"subject"`
	FirstPublishYear int      `json:"first_publish_year"`
	Language         []string `json:"language"`
	EbookAccess      string   `json:"ebook_access"`
	HasFulltext      bool     `json:"has_fulltext"`
	PublicScan       bool     `json:"public_scan_b"`
	IA               []string `json:"ia"`
}

// Work matches works/{id}.json.
type Work struct {
	Key              string       `json:"key"`
	Title            string       `json:"title"`
	Description      TextValue    `json:"description"`
	Subjects         []string     `json:"subjects"`
	Authors          []WorkAuthor `json:"authors"`
	FirstPublishDate string       `json:"first_publish_date"`
}

// WorkAuthor is an author reference of a work.
type WorkAuthor struct {
	Author struct {
		Key string `json:"key"`
	} `json:"author"`
}

// EditionsResponse matches works/{id}/editions.json.
type EditionsResponse struct {
	Size    int       `json:"size"`
	Entries []Edition `json:"entries"`
}

// Edition is one edition of a work.
type Edition struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	OCAID       string `json:"ocaid"`
	PublishDate string `json:"publish_date"`
	Languages   []struct {
		Key string `json:"key"`
	} `json:"languages"`
}

// Language returns the edition's first language code, e.g. "eng".
func (e Edition) Language() string {
	if len(e.Languages) == 0 {
		return ""
	}
	return strings.TrimPrefix(e.Languages[0].Key, "/languages/")
}

// AuthorDetails matches authors/{key}.json.
type AuthorDetails struct {
	Name         string `json:"name"`
	PersonalName string `json:"personal_name"`
}

// TextValue decodes Open Library text fields, which are either a plain
// string or {"type": "/type/text", "value": "..."}.
type TextValue string

// UnmarshalJSON implements json.Unmarshaler.
func (t *TextValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TextValue(s)
		return nil
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		*t = ""
		return nil
	}
	*t = TextValue(typed.Value)
	return nil
}
