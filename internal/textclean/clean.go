// Package textclean turns raw catalog payloads into readable preview text.
package textclean

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/helixir/book-content-service/internal/domain"
)

// PreviewLimit is the number of runes kept from a cleaned text.
const PreviewLimit = 15000

// ContinuationNotice is appended to text cut at PreviewLimit.
const ContinuationNotice = "\n\n[Content truncated. Use the download links to read the complete book.]"

var (
	// Gutenberg frames the body with "*** START OF ... EBOOK ***" lines. The
	// loose forms only apply to files that lack the asterisks.
	startMarkerRe      = regexp.MustCompile(`(?im)^[ \t]*\*{3}[ \t]*START OF\b[^\n]*\bE-?BOOK\b[^\n]*$`)
	endMarkerRe        = regexp.MustCompile(`(?im)^[ \t]*\*{3}[ \t]*END OF\b[^\n]*\bE-?BOOK\b`)
	looseStartMarkerRe = regexp.MustCompile(`(?im)^[^\n]*\bSTART OF\b[^\n]*\bE-?BOOK\b[^\n]*$`)
	looseEndMarkerRe   = regexp.MustCompile(`(?im)^[^\n]*\bEND OF\b[^\n]*\bE-?BOOK\b`)

	manyNewlinesRe = regexp.MustCompile(`\n{3,}`)
	manySpacesRe   = regexp.MustCompile(` {2,}`)
)

// Clean normalizes raw text fetched from a source of the given kind.
// HTML payloads are reduced to text first. The result is never longer than
// PreviewLimit runes plus ContinuationNotice. An empty result means the
// payload had no usable content.
func Clean(raw string, kind domain.SourceType) string {
	return CleanWithLimit(raw, kind, PreviewLimit)
}

// CleanWithLimit is Clean with a custom preview limit. A non-positive limit
// disables truncation.
func CleanWithLimit(raw string, kind domain.SourceType, limit int) string {
	if raw == "" {
		return ""
	}

	text := normalizeLineEndings(raw)
	if LooksLikeHTML(text) {
		text = HTMLToText(text)
	}

	switch kind {
	case domain.SourceTypePublicDomain:
		text = StripBoilerplate(text)
	case domain.SourceTypeArchive:
		text = StripOCRArtifacts(text)
	}

	text = normalizeWhitespace(text)
	if limit > 0 {
		text = Truncate(text, limit)
	}
	return text
}

// StripBoilerplate keeps only the text between the "START OF ... EBOOK" and
// "END OF ... EBOOK" lines. A missing start marker keeps the text from the
// beginning; a missing end marker keeps it to the end.
func StripBoilerplate(text string) string {
	if loc := findMarker(text, startMarkerRe, looseStartMarkerRe); loc != nil {
		text = text[loc[1]:]
	}
	if loc := findMarker(text, endMarkerRe, looseEndMarkerRe); loc != nil {
		text = text[:loc[0]]
	}
	return text
}

func findMarker(text string, strict, loose *regexp.Regexp) []int {
	if loc := strict.FindStringIndex(text); loc != nil {
		return loc
	}
	return loose.FindStringIndex(text)
}

// StripOCRArtifacts removes control characters other than newline and tab,
// replacement characters, private-use runes and invalid UTF-8.
func StripOCRArtifacts(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		switch {
		case r == utf8.RuneError:
			continue
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
			continue
		case unicode.Is(unicode.Co, r):
			continue
		case r == '\u00ad' || r == '\ufeff':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Truncate cuts text to limit runes and appends ContinuationNotice.
// Text at or under the limit is returned unchanged.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + ContinuationNotice
}

// IsTruncated reports whether text ends with the continuation notice.
func IsTruncated(text string) bool {
	return strings.HasSuffix(text, ContinuationNotice)
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func normalizeWhitespace(s string) string {
	s = manyNewlinesRe.ReplaceAllString(s, "\n\n")
	s = manySpacesRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
