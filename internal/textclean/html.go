package textclean

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var htmlHints = []string{"<html", "<body", "<p>", "<p ", "<div", "<br", "<!doctype html"}

var blockElements = "p, div, br, h1, h2, h3, h4, h5, h6, li, tr, pre, blockquote, section, article"

// LooksLikeHTML reports whether the payload appears to be an HTML document.
func LooksLikeHTML(s string) bool {
	head := s
	if len(head) > 4096 {
		head = head[:4096]
	}
	head = strings.ToLower(head)
	for _, hint := range htmlHints {
		if strings.Contains(head, hint) {
			return true
		}
	}
	return false
}

// HTMLToText extracts readable text from an HTML document. Scripts, styles
// and navigation are dropped; block elements become line breaks. Input that
// cannot be parsed is returned as-is.
func HTMLToText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	doc.Find("script, style, noscript, nav, head").Remove()
	doc.Find(blockElements).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
		if goquery.NodeName(sel) != "br" {
			sel.PrependHtml("\n")
		}
	})

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	lines := strings.Split(root.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
