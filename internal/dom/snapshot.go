// Package dom wraps a parsed product page behind a small traversal surface
// so extractor heuristics never touch raw markup parsing directly.
package dom

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is one parsed HTML document plus the final URL it resolved to.
// A snapshot belongs to the worker that fetched it and is discarded after
// extraction; it is never shared across targets.
type Snapshot struct {
	doc  *goquery.Document
	base *url.URL

	textOnce bool
	text     string
}

func Parse(html, finalURL string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(finalURL)
	if err != nil {
		base = &url.URL{}
	}

	return &Snapshot{doc: doc, base: base}, nil
}

// URL is the final resolved page URL.
func (s *Snapshot) URL() string {
	return s.base.String()
}

// Select returns all nodes matching a CSS selector.
func (s *Snapshot) Select(selector string) *goquery.Selection {
	return s.doc.Find(selector)
}

// FirstText returns the trimmed text of the first match, or "".
func (s *Snapshot) FirstText(selector string) string {
	return strings.TrimSpace(s.doc.Find(selector).First().Text())
}

// Attr returns the named attribute of the first match.
func (s *Snapshot) Attr(selector, name string) (string, bool) {
	val, ok := s.doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(val), ok
}

// Text returns the whole document text, computed once per snapshot.
func (s *Snapshot) Text() string {
	if !s.textOnce {
		s.text = s.doc.Text()
		s.textOnce = true
	}
	return s.text
}

// FindByText returns matches of selector whose trimmed text satisfies pred.
func (s *Snapshot) FindByText(selector string, pred func(string) bool) *goquery.Selection {
	return s.doc.Find(selector).FilterFunction(func(_ int, sel *goquery.Selection) bool {
		return pred(strings.TrimSpace(sel.Text()))
	})
}

// MatchText runs a pattern over the full document text and returns the
// first submatch group (or the whole match when the pattern has no groups).
func (s *Snapshot) MatchText(pattern *regexp.Regexp) (string, bool) {
	m := pattern.FindStringSubmatch(s.Text())
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1]), true
	}
	return strings.TrimSpace(m[0]), true
}

// AbsoluteURL normalizes protocol-relative and root-relative references
// against the page's resolved URL.
func (s *Snapshot) AbsoluteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		scheme := s.base.Scheme
		if scheme == "" {
			scheme = "https"
		}
		return scheme + ":" + raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return s.base.ResolveReference(ref).String()
}

// CanonicalPath reduces an image URL to a host- and query-independent key
// used for de-duplication.
func CanonicalPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return u.Path
}
