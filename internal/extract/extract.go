// Package extract holds the per-field heuristics that turn a DOM snapshot
// into a ProductRecord. Every extractor is silent on a miss: the record
// field stays at its sentinel and processing moves on.
package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jumiascan/internal/dom"
	"jumiascan/internal/models"
)

const (
	breadcrumbSelector = ".brcbs a, nav[aria-label=breadcrumb] a"
	gallerySelector    = "#imgs, .itm-imgs, .sldr._img"
	descriptionScope   = ".markup, #description, .card-b.-fh"

	// Image collection is capped when no gallery scope exists; an unscoped
	// document is full of thumbnails and promo banners.
	unscopedImageCap = 8
)

// renewedBrand is the normalized brand for refurbished listings that carry
// no real manufacturer label.
const renewedBrand = "Renewed"

var refurbKeywords = []string{
	"refurbished", "renewed", "refurb", "recon",
	"reconditioned", "ex-uk", "pre-owned", "certified", "restored",
}

// genericBrands are placeholder values the marketplace uses when a listing
// has no manufacturer; they are never useful as a brand.
var genericBrands = map[string]bool{
	"generic":   true,
	"fashion":   true,
	"other":     true,
	"universal": true,
}

type Extractor struct {
	logger *slog.Logger

	junkBrand       *regexp.Regexp
	skuMarker       *regexp.Regexp
	skuLabel        *regexp.Regexp
	conditionStmt   *regexp.Regexp
	warrantyPlain   *regexp.Regexp
	warrantyLabeled *regexp.Regexp
	warrantyBare    *regexp.Regexp
	ratingText      *regexp.Regexp
	sellerNoise     *regexp.Regexp
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{
		logger: logger.With("component", "extractor"),

		// Inline script fragments occasionally leak into the brand slot.
		junkBrand:       regexp.MustCompile(`(?i)(function\s*\(|window\.|document\.|</?script|\{\s*")`),
		skuMarker:       regexp.MustCompile(`[A-Z0-9]*NAFAM[A-Z0-9]*`),
		skuLabel:        regexp.MustCompile(`(?i)SKU\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-]{4,})`),
		conditionStmt:   regexp.MustCompile(`(?i)condition\s*[:\-]\s*(renewed|refurbished|grade[\s\-]*[a-z0-9]+)`),
		warrantyPlain:   regexp.MustCompile(`(?i)(\d+)\s*(month|year)s?\s+warranty`),
		warrantyLabeled: regexp.MustCompile(`(?i)warranty\s*[:\-]?\s*(\d+)\s*(month|year)s?`),
		warrantyBare:    regexp.MustCompile(`(?i)(\d+)\s*(month|year)s?`),
		ratingText:      regexp.MustCompile(`(\d(?:\.\d)?)\s*out of 5`),
		sellerNoise:     regexp.MustCompile(`(?i)(score|rating|%|followers|shipping)`),
	}
}

// Apply runs every extractor over the snapshot in a fixed order. Later
// extractors may read fields written by earlier ones, so the order is part
// of the contract (refurbishment detection consults the brand field).
func (e *Extractor) Apply(snap *dom.Snapshot, target models.Target, rec *models.ProductRecord) {
	e.extractName(snap, rec)
	e.extractBrand(snap, rec)
	e.extractSeller(snap, rec)
	e.extractCategory(snap, rec)
	e.extractSKU(snap, target, rec)
	e.extractImages(snap, rec)
	e.extractRefurbishment(snap, rec)
	e.extractWarranty(snap, rec)
	e.extractCommerce(snap, rec)
	e.extractInfographics(snap, rec)
}

func (e *Extractor) extractName(snap *dom.Snapshot, rec *models.ProductRecord) {
	if name := snap.FirstText("h1"); name != "" {
		rec.Name = name
	}
}

// extractBrand resolves the brand through a fallback chain: the "Brand:"
// label (anchor text preferred), then the first token of the product name,
// with junk and placeholder values normalized to "Renewed".
func (e *Extractor) extractBrand(snap *dom.Snapshot, rec *models.ProductRecord) {
	brand := e.brandFromLabel(snap)

	if brand != "" && e.junkBrand.MatchString(brand) {
		brand = renewedBrand
	}

	if brand == "" || genericBrands[strings.ToLower(brand)] {
		if tok := firstToken(rec.Name); tok != "" && rec.Name != models.Unknown {
			brand = tok
		}
	}

	if strings.EqualFold(brand, "refurbished") {
		brand = renewedBrand
	}
	if strings.EqualFold(brand, renewedBrand) {
		brand = renewedBrand
	}

	if brand != "" {
		rec.Brand = brand
	}
}

func (e *Extractor) brandFromLabel(snap *dom.Snapshot) string {
	labeled := snap.FindByText("div, li, p, span", func(t string) bool {
		return strings.HasPrefix(t, "Brand:")
	})
	if labeled.Length() == 0 {
		return ""
	}

	// Nested containers all match the prefix test; the innermost one is the
	// actual label element.
	node := labeled.Last()

	if anchor := strings.TrimSpace(node.Find("a").First().Text()); anchor != "" {
		return anchor
	}

	rest := strings.TrimPrefix(strings.TrimSpace(node.Text()), "Brand:")
	return strings.TrimSpace(rest)
}

// extractSeller finds the merchant name inside a "Seller Information"
// section, skipping score/percentage noise the section also renders.
func (e *Extractor) extractSeller(snap *dom.Snapshot, rec *models.ProductRecord) {
	container := e.sellerContainer(snap)
	if container == nil || container.Length() == 0 {
		return
	}

	if styled := strings.TrimSpace(container.Find(".-pbs, .seller-name").First().Text()); styled != "" && !e.sellerNoise.MatchString(styled) {
		rec.SellerName = styled
		return
	}

	var name string
	container.Find("a, p, b, strong").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" || len(text) > 80 {
			return true
		}
		if e.sellerNoise.MatchString(text) || strings.EqualFold(text, "Seller Information") {
			return true
		}
		name = text
		return false
	})
	if name != "" {
		rec.SellerName = name
	}
}

func (e *Extractor) sellerContainer(snap *dom.Snapshot) *goquery.Selection {
	heading := snap.FindByText("h2, h3", func(t string) bool {
		return strings.EqualFold(t, "Seller Information")
	})
	if heading.Length() > 0 {
		return heading.First().Parent()
	}

	if styled := snap.Select(`[class*="seller"]`); styled.Length() > 0 {
		return styled.First()
	}
	return nil
}

func (e *Extractor) extractCategory(snap *dom.Snapshot, rec *models.ProductRecord) {
	var crumbs []string
	snap.Select(breadcrumbSelector).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			crumbs = append(crumbs, text)
		}
	})
	if len(crumbs) > 0 {
		rec.Category = strings.Join(crumbs, " > ")
	}
}

// extractSKU resolves the SKU: explicit data attribute, the internal marker
// fragment in page text, a labeled pattern, then the original search term.
func (e *Extractor) extractSKU(snap *dom.Snapshot, target models.Target, rec *models.ProductRecord) {
	sku := ""

	if attr, ok := snap.Attr("[data-sku]", "data-sku"); ok && attr != "" {
		sku = attr
	}

	if sku == "" {
		if m := e.skuMarker.FindString(snap.Text()); m != "" {
			sku = m
		}
	}

	if sku == "" {
		if m := e.skuLabel.FindStringSubmatch(snap.Text()); m != nil {
			sku = m[1]
		}
	}

	if sku == "" && target.Kind == models.KindSKUSearch {
		sku = target.Source
	}

	// Cleanup pass: whatever source won, the canonical marker substring is
	// the SKU of record when one is embedded.
	if marker := e.skuMarker.FindString(sku); marker != "" {
		sku = marker
	}

	if sku != "" {
		rec.SKU = sku
	}
}

// extractImages collects gallery images, normalizing lazy-load attributes
// and relative URLs, de-duplicated by canonical path. Without a gallery
// scope the document-wide sweep is capped at 8.
func (e *Extractor) extractImages(snap *dom.Snapshot, rec *models.ProductRecord) {
	scope := snap.Select(gallerySelector)
	scoped := scope.Length() > 0

	var imgs *goquery.Selection
	if scoped {
		imgs = scope.Find("img")
	} else {
		imgs = snap.Select("img")
	}

	seen := make(map[string]struct{})
	var urls []string
	imgs.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !scoped && len(urls) >= unscopedImageCap {
			return false
		}

		src, ok := sel.Attr("data-src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = sel.Attr("src")
		}
		abs := snap.AbsoluteURL(src)
		if abs == "" {
			return true
		}

		key := dom.CanonicalPath(abs)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		urls = append(urls, abs)
		return true
	})

	rec.ImageURLs = urls
	rec.TotalImages = len(urls)
	if len(urls) > 0 {
		rec.PrimaryImageURL = urls[0]
	}
}

// extractRefurbishment checks six independent signals and records a
// human-readable indicator for each one that fired. Brand == "Renewed"
// forces YES regardless of the other signals.
func (e *Extractor) extractRefurbishment(snap *dom.Snapshot, rec *models.ProductRecord) {
	var indicators []string
	add := func(reason string) {
		for _, existing := range indicators {
			if existing == reason {
				return
			}
		}
		indicators = append(indicators, reason)
	}

	if links := snap.Select(`a[href*="refurbished"], a[href*="renewed"]`); links.Length() > 0 {
		add("Refurbished tag link")
		rec.HasRefurbTag = models.Yes
	}

	snap.Select("img[alt]").Each(func(_ int, sel *goquery.Selection) {
		alt, _ := sel.Attr("alt")
		lower := strings.ToLower(alt)
		if strings.Contains(lower, "refurb") || strings.Contains(lower, "renewed") {
			add("Badge image alt text")
		}
	})

	snap.Select(breadcrumbSelector).Each(func(_ int, sel *goquery.Selection) {
		if strings.EqualFold(strings.TrimSpace(sel.Text()), renewedBrand) {
			add("Breadcrumb 'Renewed'")
		}
	})

	titleLower := strings.ToLower(rec.Name)
	if rec.Name != models.Unknown {
		for _, kw := range refurbKeywords {
			if strings.Contains(titleLower, kw) {
				add(fmt.Sprintf("Title keyword '%s'", kw))
				break
			}
		}
	}

	snap.Select(`[class*="badge"], [class*="bdg"]`).Each(func(_ int, sel *goquery.Selection) {
		lower := strings.ToLower(strings.TrimSpace(sel.Text()))
		for _, kw := range refurbKeywords {
			if strings.Contains(lower, kw) {
				add("Refurbished badge element")
				return
			}
		}
	})

	if m := e.conditionStmt.FindStringSubmatch(snap.Text()); m != nil {
		add(fmt.Sprintf("Condition statement '%s'", strings.TrimSpace(m[1])))
	}

	if rec.Brand == renewedBrand {
		add("Brand is Renewed")
	}

	if len(indicators) > 0 {
		rec.IsRefurbished = models.Yes
		rec.RefurbIndicators = indicators
	}
}

// extractWarranty tries three duration sources in priority order and
// records which one won. The warranty address is an independent lookup.
func (e *Extractor) extractWarranty(snap *dom.Snapshot, rec *models.ProductRecord) {
	sources := []struct {
		label string
		text  string
		bare  bool
	}{
		// The section value sits under its own "Warranty" heading, so a bare
		// "12 months" counts there; the other sources need the word itself.
		{"Warranty Section", e.warrantySectionText(snap), true},
		{"Product Name", rec.Name, false},
		{"Specifications", e.specRowText(snap), false},
	}

	for _, src := range sources {
		if src.text == "" || src.text == models.Unknown {
			continue
		}
		if duration := e.matchWarrantyDuration(src.text, src.bare); duration != "" {
			rec.HasWarranty = models.Yes
			rec.WarrantyDuration = duration
			rec.WarrantySource = src.label
			break
		}
	}

	e.extractWarrantyAddress(snap, rec)
}

func (e *Extractor) warrantySectionText(snap *dom.Snapshot) string {
	heading := snap.FindByText("h2, h3, dt, .-pvs", func(t string) bool {
		return strings.EqualFold(t, "Warranty")
	})
	if heading.Length() == 0 {
		return ""
	}

	node := heading.First()
	if adjacent := strings.TrimSpace(node.Next().Text()); adjacent != "" {
		return adjacent
	}
	// Fall back to the heading's container minus the label itself.
	parent := strings.TrimSpace(node.Parent().Text())
	return strings.TrimSpace(strings.TrimPrefix(parent, "Warranty"))
}

func (e *Extractor) specRowText(snap *dom.Snapshot) string {
	var row string
	snap.Select("li, tr, .-pvxs").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if !strings.Contains(strings.ToLower(text), "warranty") {
			return true
		}
		if e.matchWarrantyDuration(text, false) != "" {
			row = text
			return false
		}
		return true
	})
	return row
}

func (e *Extractor) matchWarrantyDuration(text string, bare bool) string {
	patterns := []*regexp.Regexp{e.warrantyPlain, e.warrantyLabeled}
	if bare {
		patterns = append(patterns, e.warrantyBare)
	}
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return normalizeDuration(m[1], m[2])
		}
	}
	return ""
}

func (e *Extractor) extractWarrantyAddress(snap *dom.Snapshot, rec *models.ProductRecord) {
	labeled := snap.FindByText("div, li, p, dt, td", func(t string) bool {
		return strings.HasPrefix(t, "Warranty Address")
	})
	if labeled.Length() == 0 {
		return
	}

	node := labeled.Last()
	addr := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(node.Text()), "Warranty Address"))
	addr = strings.TrimLeft(addr, ":- ")
	if addr == "" {
		addr = strings.TrimSpace(node.Next().Text())
	}

	// Placeholder dashes and empty cells are shorter than any real address.
	if len(addr) > 10 {
		rec.WarrantyAddress = addr
	}
}

// extractCommerce fills the express flag, price, and rating.
func (e *Extractor) extractCommerce(snap *dom.Snapshot, rec *models.ProductRecord) {
	express := false
	snap.Select("img[alt]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		alt, _ := sel.Attr("alt")
		if strings.Contains(strings.ToLower(alt), "express") {
			express = true
			return false
		}
		return true
	})
	if !express {
		badge := snap.FindByText(`[class*="bdg"], [class*="badge"]`, func(t string) bool {
			return strings.EqualFold(t, "Express")
		})
		express = badge.Length() > 0
	}
	if express {
		rec.Express = models.Yes
	}

	for _, sel := range []string{"span.-b.-ltr.-tal.-fs24", ".-prc", "[data-price]", ".price"} {
		if price := snap.FirstText(sel); price != "" {
			rec.Price = price
			break
		}
	}

	if rating := snap.FirstText(".stars, [class*='stars']"); rating != "" {
		rec.Rating = rating
	} else if m, ok := snap.MatchText(e.ratingText); ok {
		rec.Rating = m
	}
}

// extractInfographics counts images inside the product description block;
// descriptions with embedded imagery are infographic-style listings.
func (e *Extractor) extractInfographics(snap *dom.Snapshot, rec *models.ProductRecord) {
	count := 0
	snap.Select(descriptionScope).First().Find("img").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("data-src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = sel.Attr("src")
		}
		if strings.TrimSpace(src) != "" {
			count++
		}
	})

	rec.InfographicCount = count
	if count > 0 {
		rec.HasInfographics = models.Yes
	}
}

func normalizeDuration(n, unit string) string {
	unit = strings.ToLower(unit)
	if n != "1" {
		unit += "s"
	}
	return n + " " + unit
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
