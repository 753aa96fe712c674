package models

// TargetKind says how a target URL was produced.
type TargetKind string

const (
	// KindURL is a direct product-page URL supplied by the user.
	KindURL TargetKind = "url"
	// KindSKUSearch is a catalog search URL built from a raw SKU.
	KindSKUSearch TargetKind = "sku"
	// KindCategory marks a URL discovered by expanding a category listing.
	KindCategory TargetKind = "category"
)

// Target is one unit of scrape work. Value is always a fetchable absolute
// URL by the time a Target reaches the orchestrator; Source keeps the raw
// user-supplied SKU or URL so reports stay correlated with the input even
// after redirects. Targets are immutable once built.
type Target struct {
	Kind   TargetKind `json:"kind"`
	Value  string     `json:"value"`
	Source string     `json:"source"`
}
