package archive

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SearchResponse is the advancedsearch.php JSON response.
type SearchResponse struct {
	Response struct {
		NumFound int   `json:"numFound"`
		Start    int   `json:"start"`
		Docs     []Doc `json:"docs"`
	} `json:"response"`
}

// Doc is one search hit. Most Internet Archive fields may be either a
// single value or a list, depending on how the item was uploaded.
type Doc struct {
	Identifier string     `json:"identifier"`
	Title      FlexString `json:"title"`
	Creator    FlexString `json:"creator"`
	Subject    FlexString `json:"subject"`
	Year       FlexString `json:"year"`
	Language   FlexString `json:"language"`
}

// MetadataResponse is the /metadata/{identifier} response. A missing item
// yields an empty object.
type MetadataResponse struct {
	Metadata ItemMetadata `json:"metadata"`
	Files    []File       `json:"files"`
}

// ItemMetadata holds the descriptive fields of an item.
type ItemMetadata struct {
	Identifier  string     `json:"identifier"`
	Title       FlexString `json:"title"`
	Creator     FlexString `json:"creator"`
	Subject     FlexString `json:"subject"`
	Description FlexString `json:"description"`
	Language    FlexString `json:"language"`
	Year        FlexString `json:"year"`
	Date        FlexString `json:"date"`
	MediaType   FlexString `json:"mediatype"`
}

// File is one file attached to an item.
type File struct {
	Name   string     `json:"name"`
	Format string     `json:"format"`
	Size   FlexString `json:"size"`
	Source string     `json:"source"`
}

// SizeBytes parses the reported size, or returns nil when absent.
func (f File) SizeBytes() *int64 {
	n, err := strconv.ParseInt(f.Size.First(), 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// FlexString decodes a JSON string, number, or array of either into a list
// of strings.
type FlexString []string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}

	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			if s != "" {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	}

	s, err := scalarString(data)
	if err != nil {
		return err
	}
	if s == "" {
		*f = nil
		return nil
	}
	*f = FlexString{s}
	return nil
}

func scalarString(data json.RawMessage) (string, error) {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Objects and booleans carry nothing we use.
		return "", nil
	}
	return n.String(), nil
}

// First returns the first value, or "".
func (f FlexString) First() string {
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Joined returns all values joined by sep.
func (f FlexString) Joined(sep string) string {
	return strings.Join(f, sep)
}
