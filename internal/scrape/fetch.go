package scrape

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"

	"jumiascan/internal/browser"
	"jumiascan/internal/dom"
	"jumiascan/internal/models"
)

const (
	// Readiness signal: a product page heading or a listing card.
	readySelector = "h1, article.prd"
	// Anchor of a result card on a catalog/search page.
	resultLinkSelector = "article.prd a.core"
	// Literal marker the marketplace renders for an empty search.
	noResultsMarker = "There are no results for"

	scrollSteps = 4
	scrollPause = 400 * time.Millisecond
)

// Fetcher turns a Target into a DOM snapshot using a caller-owned session.
type Fetcher struct {
	logger *slog.Logger
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{logger: logger.With("component", "fetcher")}
}

// Fetch navigates to the target, waits for readiness, triggers lazy-loaded
// content, and snapshots the DOM. SKU-search targets are resolved to their
// first result card before snapshotting; an empty result set is ErrNotFound.
func (f *Fetcher) Fetch(session *browser.Session, target models.Target) (*dom.Snapshot, error) {
	page, err := session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer page.Close()

	if err := f.navigate(page, target.Value, session.Timeout()); err != nil {
		return nil, err
	}

	if target.Kind == models.KindSKUSearch {
		if err := f.followFirstResult(page, session.Timeout()); err != nil {
			return nil, err
		}
	}

	// Lazy-loaded galleries and secondary sections only enter the DOM once
	// the viewport has moved past them.
	for i := 0; i < scrollSteps; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, document.body.scrollHeight / 4)"); err != nil {
			break
		}
		time.Sleep(scrollPause)
	}

	html, err := page.Content()
	if err != nil {
		return nil, classifyNavError(err)
	}

	snap, err := dom.Parse(html, page.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return snap, nil
}

func (f *Fetcher) navigate(page playwright.Page, url string, timeout time.Duration) error {
	f.logger.Debug("navigating", "url", url)

	_, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return classifyNavError(err)
	}

	return f.waitReady(page, readySelector, timeout)
}

func (f *Fetcher) waitReady(page playwright.Page, selector string, timeout time.Duration) error {
	err := page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return classifyNavError(err)
	}
	return nil
}

// followFirstResult resolves a search-results page to its first product
// card and navigates there.
func (f *Fetcher) followFirstResult(page playwright.Page, timeout time.Duration) error {
	content, err := page.Content()
	if err != nil {
		return classifyNavError(err)
	}
	if strings.Contains(content, noResultsMarker) {
		return ErrNotFound
	}

	link := page.Locator(resultLinkSelector).First()
	count, err := link.Count()
	if err != nil || count == 0 {
		return ErrNotFound
	}

	href, err := link.GetAttribute("href")
	if err != nil || strings.TrimSpace(href) == "" {
		return ErrNotFound
	}

	href = absoluteAgainst(page.URL(), href)

	_, err = page.Goto(href, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return classifyNavError(err)
	}

	return f.waitReady(page, "h1", timeout)
}

func absoluteAgainst(base, href string) string {
	href = strings.TrimSpace(href)
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// ExpandCategory visits a category listing and returns one url-kind Target
// per unique product link found on it.
func (f *Fetcher) ExpandCategory(session *browser.Session, categoryURL string) ([]models.Target, error) {
	page, err := session.NewPage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	defer page.Close()

	if err := f.navigate(page, categoryURL, session.Timeout()); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, classifyNavError(err)
	}

	snap, err := dom.Parse(html, page.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	seen := make(map[string]struct{})
	var targets []models.Target
	snap.Select(resultLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		abs := snap.AbsoluteURL(href)
		if abs == "" {
			return
		}
		key := dom.CanonicalPath(abs)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		targets = append(targets, models.Target{
			Kind:   models.KindURL,
			Value:  abs,
			Source: abs,
		})
	})

	f.logger.Info("expanded category", "url", categoryURL, "targets", len(targets))
	return targets, nil
}
