package models

import "strconv"

// Sentinel values. A ProductRecord never omits a field: anything an
// extractor could not resolve stays at its sentinel.
const (
	Unknown    = "N/A"
	NotChecked = "Not Checked"
	Yes        = "YES"
	No         = "NO"
)

// ProductRecord is the outcome of processing one Target. Fields are filled
// in by the extractors in their fixed order; once handed to the orchestrator
// the record is not mutated again.
type ProductRecord struct {
	SKU               string   `json:"sku"`
	Name              string   `json:"product_name"`
	Brand             string   `json:"brand"`
	IsRefurbished     string   `json:"is_refurbished"`
	HasRefurbTag      string   `json:"has_refurb_tag"`
	RefurbIndicators  []string `json:"refurbished_indicators"`
	HasWarranty       string   `json:"has_warranty"`
	WarrantyDuration  string   `json:"warranty_duration"`
	WarrantySource    string   `json:"warranty_source"`
	WarrantyAddress   string   `json:"warranty_address"`
	ImageURLs         []string `json:"image_urls"`
	PrimaryImageURL   string   `json:"primary_image_url"`
	TotalImages       int      `json:"total_product_images"`
	GradingLastImage  string   `json:"grading_last_image"`
	GradingTag        string   `json:"grading_tag"`
	HasInfographics   string   `json:"has_infographics"`
	InfographicCount  int      `json:"infographic_image_count"`
	SellerName        string   `json:"seller_name"`
	Price             string   `json:"price"`
	Rating            string   `json:"product_rating"`
	Express           string   `json:"express"`
	Category          string   `json:"category"`
	InputSource       string   `json:"input_source"`
}

// NewProductRecord returns a record with every field at its sentinel so
// that partial extraction failure still yields a complete row.
func NewProductRecord(input string) *ProductRecord {
	return &ProductRecord{
		SKU:              Unknown,
		Name:             Unknown,
		Brand:            Unknown,
		IsRefurbished:    No,
		HasRefurbTag:     No,
		RefurbIndicators: []string{},
		HasWarranty:      No,
		WarrantyDuration: Unknown,
		WarrantySource:   Unknown,
		WarrantyAddress:  Unknown,
		ImageURLs:        []string{},
		PrimaryImageURL:  Unknown,
		GradingLastImage: NotChecked,
		GradingTag:       NotChecked,
		HasInfographics:  No,
		SellerName:       Unknown,
		Price:            Unknown,
		Rating:           Unknown,
		Express:          No,
		Category:         Unknown,
		InputSource:      input,
	}
}

// ColumnOrder is the canonical, case-sensitive report column order.
// Downstream tabular exports key on these exact names; do not reorder.
var ColumnOrder = []string{
	"SKU",
	"Product Name",
	"Brand",
	"Is Refurbished",
	"Has refurb tag",
	"Has Warranty",
	"Warranty Duration",
	"Total Product Images",
	"Grading last image",
	"grading tag",
	"Has info-graphics",
	"Infographic Image Count",
	"Seller Name",
	"Price",
	"Product Rating",
	"Express",
	"Category",
	"Refurbished Indicators",
	"Warranty Source",
	"Warranty Address",
	"Primary Image URL",
	"Input Source",
}

// Row renders the record in ColumnOrder.
func (r *ProductRecord) Row() []string {
	return []string{
		r.SKU,
		r.Name,
		r.Brand,
		r.IsRefurbished,
		r.HasRefurbTag,
		r.HasWarranty,
		r.WarrantyDuration,
		strconv.Itoa(r.TotalImages),
		r.GradingLastImage,
		r.GradingTag,
		r.HasInfographics,
		strconv.Itoa(r.InfographicCount),
		r.SellerName,
		r.Price,
		r.Rating,
		r.Express,
		r.Category,
		r.IndicatorSummary(),
		r.WarrantySource,
		r.WarrantyAddress,
		r.PrimaryImageURL,
		r.InputSource,
	}
}

// IndicatorSummary joins the refurbishment indicators for display, or
// "None" when nothing matched.
func (r *ProductRecord) IndicatorSummary() string {
	if len(r.RefurbIndicators) == 0 {
		return "None"
	}
	out := r.RefurbIndicators[0]
	for _, ind := range r.RefurbIndicators[1:] {
		out += "; " + ind
	}
	return out
}
