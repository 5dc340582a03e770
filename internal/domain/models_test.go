package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookContent_Validate(t *testing.T) {
	valid := func() *BookContent {
		return &BookContent{
			Title:   "Pride and Prejudice",
			Author:  "Jane Austen",
			Content: "It is a truth universally acknowledged...",
			Source:  SourceTypePublicDomain,
			DownloadLinks: []DownloadLink{
				{Kind: LinkKindTXT, URL: "https://example.org/1342.txt", Quality: QualityMedium},
			},
			IsFullText: true,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *BookContent)
		wantErr bool
		field   string
	}{
		{name: "valid content", mutate: func(c *BookContent) {}},
		{name: "empty content", mutate: func(c *BookContent) { c.Content = "  " }, wantErr: true, field: "content"},
		{name: "no download links", mutate: func(c *BookContent) { c.DownloadLinks = nil }, wantErr: true, field: "download_links"},
		{name: "unknown source", mutate: func(c *BookContent) { c.Source = "library" }, wantErr: true, field: "source"},
		{
			name: "generated full text",
			mutate: func(c *BookContent) {
				c.Source = SourceTypeGenerated
				c.IsFullText = true
			},
			wantErr: true,
			field:   "is_full_text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestBookMetadata_AddSubjects(t *testing.T) {
	m := &BookMetadata{Subjects: []string{"Fiction"}}
	m.AddSubjects("fiction", "Romance", "", "  ", "ROMANCE", "England")

	assert.Equal(t, []string{"Fiction", "Romance", "England"}, m.Subjects)
}

func TestBookQuery_CacheParams(t *testing.T) {
	t.Run("source key wins", func(t *testing.T) {
		q := BookQuery{Title: "Emma", Author: "Jane Austen", SourceKey: " OL66554W "}
		assert.Equal(t, map[string]string{"key": "OL66554W"}, q.CacheParams())
	})

	t.Run("title and author are normalized", func(t *testing.T) {
		q := BookQuery{Title: "  Emma ", Author: "Jane AUSTEN"}
		assert.Equal(t, map[string]string{"title": "emma", "author": "jane austen"}, q.CacheParams())
	})
}

func TestSourceType_IsValid(t *testing.T) {
	for _, s := range []SourceType{SourceTypePublicDomain, SourceTypeArchive, SourceTypeBibliographic, SourceTypeGenerated} {
		assert.True(t, s.IsValid(), string(s))
	}
	assert.False(t, SourceType("").IsValid())
	assert.Equal(t, []SourceType{SourceTypePublicDomain, SourceTypeArchive, SourceTypeBibliographic}, PreferenceOrder)
}

func TestRawContent_HasText(t *testing.T) {
	var nilRaw *RawContent
	assert.False(t, nilRaw.HasText())
	assert.False(t, (&RawContent{Text: " \n\t"}).HasText())
	assert.True(t, (&RawContent{Text: "chapter one"}).HasText())
}

func TestErrors_Unwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     string
	}{
		{"network", NewNetworkError("gutenberg", cause), ErrNetwork, "network"},
		{"timeout", NewTimeoutError("archive", 15*time.Second, cause), ErrTimeout, "timeout"},
		{"http", NewHTTPError("openlibrary", 503, "unavailable"), ErrHTTPStatus, "http_status"},
		{"parse", NewParseError("gutenberg", cause), ErrParse, "parse"},
		{"rate limit", NewRateLimitError("archive", time.Second), ErrRateLimited, "rate_limited"},
		{"not found", NewNotFoundError("book", "42"), ErrNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("search failed: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.sentinel))
			assert.Equal(t, tt.kind, ErrorKind(wrapped))
		})
	}

	assert.True(t, errors.Is(NewNetworkError("x", cause), cause))
	assert.Equal(t, "other", ErrorKind(errors.New("boom")))
	assert.Equal(t, "none", ErrorKind(nil))

	var httpErr *HTTPError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", NewHTTPError("archive", 404, "missing")), &httpErr))
	assert.Equal(t, 404, httpErr.StatusCode)
}

func TestParseGradeBand(t *testing.T) {
	tests := []struct {
		input string
		want  GradeBand
	}{
		{"", GradeBandUnknown},
		{"Grade 3", GradeBandPrimary},
		{"elementary", GradeBandPrimary},
		{"grade 7", GradeBandJuniorSecondary},
		{"Middle School", GradeBandJuniorSecondary},
		{"10th grade", GradeBandSeniorSecondary},
		{"high school", GradeBandSeniorSecondary},
		{"college freshman", GradeBandTertiary},
		{"year 13", GradeBandTertiary},
		{"whatever", GradeBandUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGradeBand(tt.input))
		})
	}
}

func TestDefaultSubjects(t *testing.T) {
	assert.Nil(t, DefaultSubjects(GradeBandUnknown))
	for _, band := range []GradeBand{GradeBandPrimary, GradeBandJuniorSecondary, GradeBandSeniorSecondary, GradeBandTertiary} {
		assert.NotEmpty(t, DefaultSubjects(band), band.String())
	}
}

func TestNewEvent(t *testing.T) {
	payload := BookContentResolvedPayload{
		BookKey: "books_content_author:|title:emma",
		Title:   "Emma",
		Source:  SourceTypeArchive,
	}

	ev, err := NewEvent(EventTypeBookContentResolved, payload.BookKey, "book", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.EventVersion)
	assert.Equal(t, EventTypeBookContentResolved, ev.EventType)

	var decoded BookContentResolvedPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &decoded))
	assert.Equal(t, SourceTypeArchive, decoded.Source)

	_, err = NewEvent(EventTypeBookContentResolved, "k", "book", make(chan int))
	assert.Error(t, err)
}
