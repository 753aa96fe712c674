package extract

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jumiascan/internal/dom"
	"jumiascan/internal/models"
)

const pageURL = "https://www.jumia.co.ke/test-phone-123.html"

func apply(t *testing.T, html string, target models.Target) *models.ProductRecord {
	t.Helper()

	snap, err := dom.Parse(html, pageURL)
	require.NoError(t, err)

	rec := models.NewProductRecord(target.Source)
	New(slog.Default()).Apply(snap, target, rec)
	return rec
}

func urlTarget() models.Target {
	return models.Target{Kind: models.KindURL, Value: pageURL, Source: pageURL}
}

func TestExtractBrand(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "anchor text preferred over plain label text",
			html:     `<h1>Galaxy A10</h1><div>Brand: <a href="/samsung/">Samsung</a></div>`,
			expected: "Samsung",
		},
		{
			name:     "plain text after label",
			html:     `<h1>Galaxy A10</h1><li>Brand: Tecno</li>`,
			expected: "Tecno",
		},
		{
			name:     "junk script fragment normalizes to Renewed",
			html:     `<h1>Galaxy A10</h1><div>Brand: function(){window.track()}</div>`,
			expected: "Renewed",
		},
		{
			name:     "missing label falls back to first title token",
			html:     `<h1>Nokia 3310 Classic</h1>`,
			expected: "Nokia",
		},
		{
			name:     "generic label falls back to first title token",
			html:     `<h1>Tecno Spark 10</h1><div>Brand: Generic</div>`,
			expected: "Tecno",
		},
		{
			name:     "leading Renewed token is the brand itself",
			html:     `<h1>Renewed Samsung Galaxy A10</h1>`,
			expected: "Renewed",
		},
		{
			name:     "literal refurbished normalizes to Renewed",
			html:     `<h1>Galaxy A10</h1><div>Brand: Refurbished</div>`,
			expected: "Renewed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := apply(t, tt.html, urlTarget())
			assert.Equal(t, tt.expected, rec.Brand)
		})
	}
}

func TestExtractCategory(t *testing.T) {
	html := `<h1>Phone</h1>
		<div class="brcbs">
			<a href="/">Home</a>
			<a href="/phones/">Phones</a>
			<a href="/phones/smartphones/">Smartphones</a>
		</div>`

	rec := apply(t, html, urlTarget())
	assert.Equal(t, "Home > Phones > Smartphones", rec.Category)
}

func TestExtractCategoryMissing(t *testing.T) {
	rec := apply(t, `<h1>Phone</h1>`, urlTarget())
	assert.Equal(t, models.Unknown, rec.Category)
}

func TestExtractSKU(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		target   models.Target
		expected string
	}{
		{
			name:     "data attribute wins",
			html:     `<h1>Phone</h1><article data-sku="SA948EA0Z4NAFAM"></article>`,
			target:   urlTarget(),
			expected: "SA948EA0Z4NAFAM",
		},
		{
			name:     "marker fragment in page text",
			html:     `<h1>Phone</h1><p>Product code SA948EA0Z4NAFAM available</p>`,
			target:   urlTarget(),
			expected: "SA948EA0Z4NAFAM",
		},
		{
			name:     "labeled pattern",
			html:     `<h1>Phone</h1><li>SKU: TE155EL-09KD3</li>`,
			target:   urlTarget(),
			expected: "TE155EL-09KD3",
		},
		{
			name:     "search term fallback for sku targets",
			html:     `<h1>Phone</h1>`,
			target:   models.Target{Kind: models.KindSKUSearch, Value: pageURL, Source: "ABC123"},
			expected: "ABC123",
		},
		{
			name:     "cleanup extracts the marker substring",
			html:     `<h1>Phone</h1><article data-sku="promo-SA948EA0Z4NAFAM-v2"></article>`,
			target:   urlTarget(),
			expected: "SA948EA0Z4NAFAM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := apply(t, tt.html, tt.target)
			assert.Equal(t, tt.expected, rec.SKU)
		})
	}
}

func TestExtractImagesDeduplicates(t *testing.T) {
	html := `<h1>Phone</h1>
		<div id="imgs">
			<img data-src="//ke.jumia.is/phone-front.jpg">
			<img src="https://ke.jumia.is/phone-front.jpg">
			<img data-src="https://ke.jumia.is/phone-back.jpg">
		</div>`

	rec := apply(t, html, urlTarget())

	require.Len(t, rec.ImageURLs, 2)
	assert.Equal(t, "https://ke.jumia.is/phone-front.jpg", rec.ImageURLs[0])
	assert.Equal(t, "https://ke.jumia.is/phone-back.jpg", rec.ImageURLs[1])
	assert.Equal(t, rec.ImageURLs[0], rec.PrimaryImageURL)
	assert.Equal(t, 2, rec.TotalImages)
}

func TestExtractImagesCapWithoutGallery(t *testing.T) {
	html := `<h1>Phone</h1>`
	for i := 0; i < 12; i++ {
		html += `<img src="/img-` + string(rune('a'+i)) + `.jpg">`
	}

	rec := apply(t, html, urlTarget())
	assert.Len(t, rec.ImageURLs, 8)
}

func TestRefurbishmentFromTitle(t *testing.T) {
	rec := apply(t, `<h1>Renewed Samsung Galaxy A10</h1>`, urlTarget())

	assert.Equal(t, models.Yes, rec.IsRefurbished)
	assert.Contains(t, rec.RefurbIndicators, "Title keyword 'renewed'")
}

func TestRefurbishmentNoSignals(t *testing.T) {
	rec := apply(t, `<h1>Galaxy A10</h1><div>Brand: <a href="/s/">Samsung</a></div>`, urlTarget())

	assert.Equal(t, models.No, rec.IsRefurbished)
	assert.Equal(t, "None", rec.IndicatorSummary())
}

func TestRefurbishmentTagLink(t *testing.T) {
	html := `<h1>Galaxy A10</h1><div>Brand: <a href="/s/">Samsung</a></div>
		<a href="/catalog/?tag=refurbished">Refurbished deals</a>`

	rec := apply(t, html, urlTarget())

	assert.Equal(t, models.Yes, rec.IsRefurbished)
	assert.Equal(t, models.Yes, rec.HasRefurbTag)
	assert.Contains(t, rec.RefurbIndicators, "Refurbished tag link")
}

func TestRefurbishmentConditionStatement(t *testing.T) {
	html := `<h1>Galaxy A10</h1><div>Brand: <a href="/s/">Samsung</a></div>
		<p>Condition: Grade A</p>`

	rec := apply(t, html, urlTarget())

	assert.Equal(t, models.Yes, rec.IsRefurbished)
	require.NotEmpty(t, rec.RefurbIndicators)
	assert.Contains(t, rec.RefurbIndicators[0], "Condition statement")
}

func TestWarrantySectionBeatsTitle(t *testing.T) {
	html := `<h1>Phone with 6 Month Warranty</h1>
		<div><h2>Warranty</h2><p>12 months</p></div>`

	rec := apply(t, html, urlTarget())

	assert.Equal(t, models.Yes, rec.HasWarranty)
	assert.Equal(t, "12 months", rec.WarrantyDuration)
	assert.Equal(t, "Warranty Section", rec.WarrantySource)
}

func TestWarrantyFromTitle(t *testing.T) {
	rec := apply(t, `<h1>Blender With 2 Years Warranty</h1>`, urlTarget())

	assert.Equal(t, "2 years", rec.WarrantyDuration)
	assert.Equal(t, "Product Name", rec.WarrantySource)
}

func TestWarrantyFromSpecRow(t *testing.T) {
	html := `<h1>Blender</h1><ul><li>Color: Silver</li><li>Warranty: 6 months</li></ul>`

	rec := apply(t, html, urlTarget())

	assert.Equal(t, "6 months", rec.WarrantyDuration)
	assert.Equal(t, "Specifications", rec.WarrantySource)
}

func TestWarrantyAddress(t *testing.T) {
	t.Run("real address captured", func(t *testing.T) {
		html := `<h1>Phone</h1><li>Warranty Address: 123 Industrial Road, Nairobi</li>`
		rec := apply(t, html, urlTarget())
		assert.Equal(t, "123 Industrial Road, Nairobi", rec.WarrantyAddress)
	})

	t.Run("placeholder dash rejected", func(t *testing.T) {
		html := `<h1>Phone</h1><li>Warranty Address: -</li>`
		rec := apply(t, html, urlTarget())
		assert.Equal(t, models.Unknown, rec.WarrantyAddress)
	})
}

func TestExtractSellerSkipsNoise(t *testing.T) {
	html := `<h1>Phone</h1>
		<div>
			<h2>Seller Information</h2>
			<p>92% Seller Score</p>
			<p>TechHub Kenya</p>
		</div>`

	rec := apply(t, html, urlTarget())
	assert.Equal(t, "TechHub Kenya", rec.SellerName)
}

func TestExtractCommerce(t *testing.T) {
	html := `<h1>Phone</h1>
		<img src="/x.png" alt="Express delivery">
		<span class="-prc">KSh 12,999</span>
		<p>4.3 out of 5</p>`

	rec := apply(t, html, urlTarget())

	assert.Equal(t, models.Yes, rec.Express)
	assert.Equal(t, "KSh 12,999", rec.Price)
	assert.Equal(t, "4.3", rec.Rating)
}

func TestExtractInfographics(t *testing.T) {
	html := `<h1>Phone</h1>
		<div class="markup">
			<p>Details</p>
			<img src="/info-1.jpg">
			<img data-src="/info-2.jpg">
		</div>`

	rec := apply(t, html, urlTarget())

	assert.Equal(t, models.Yes, rec.HasInfographics)
	assert.Equal(t, 2, rec.InfographicCount)
}

func TestEveryFieldPresentOnEmptyPage(t *testing.T) {
	rec := apply(t, `<html><body></body></html>`, urlTarget())

	for i, cell := range rec.Row() {
		assert.NotEmpty(t, cell, "column %q is empty", models.ColumnOrder[i])
	}
}

func TestSearchScenario(t *testing.T) {
	html := `<h1>Test Phone</h1><div>Brand: <a href="/samsung/">Samsung</a></div>`
	target := models.Target{
		Kind:   models.KindSKUSearch,
		Value:  "https://www.jumia.co.ke/catalog/?q=ABC123",
		Source: "ABC123",
	}

	rec := apply(t, html, target)

	assert.Equal(t, "Test Phone", rec.Name)
	assert.Equal(t, "Samsung", rec.Brand)
	assert.Equal(t, "ABC123", rec.SKU)
	assert.Equal(t, "ABC123", rec.InputSource)
}
