package types

import (
	"time"

	"github.com/google/uuid"
)

// ListingCandidate is one product discovered on a category listing page.
// Candidates are immutable once extracted.
type ListingCandidate struct {
	// Identifier is the 10-character marketplace product code.
	Identifier string `json:"identifier"`

	// Title is the best-effort display name. May be empty.
	Title string `json:"title"`

	// DetailURL is the absolute product page URL.
	DetailURL string `json:"detail_url"`

	// Listing-level hints, only filled by the block scan.
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Price        string `json:"price,omitempty"`
	Popularity   string `json:"popularity,omitempty"`
}

// DetailFields holds the independently resolved fields of one detail page.
type DetailFields struct {
	Price      string `json:"price"`
	ImageURL   string `json:"image_url"`
	Popularity string `json:"popularity"`
}

// Empty reports whether nothing was resolved.
func (d DetailFields) Empty() bool {
	return d.Price == "" && d.ImageURL == "" && d.Popularity == ""
}

// ProductRecord is one assembled output row.
type ProductRecord struct {
	Rank       int    `json:"rank"        bson:"rank"`
	Identifier string `json:"identifier"  bson:"identifier"`
	Title      string `json:"title"       bson:"title"`
	DetailURL  string `json:"detail_url"  bson:"detail_url"`
	Price      string `json:"price"       bson:"price"`
	ImageURL   string `json:"image_url"   bson:"image_url"`
	Popularity string `json:"popularity"  bson:"popularity"`

	// Manual comparison fields. Only user actions write these.
	CatalogSKU    string `json:"catalog_sku"    bson:"catalog_sku"`
	CatalogTitle  string `json:"catalog_title"  bson:"catalog_title"`
	CatalogRetail string `json:"catalog_retail" bson:"catalog_retail"`
	CatalogCost   string `json:"catalog_cost"   bson:"catalog_cost"`
	AvgOneToFour  string `json:"avg_1_4"        bson:"avg_1_4"`
	Attributes    string `json:"attributes"     bson:"attributes"`
	Notes         string `json:"notes"          bson:"notes"`
}

// NewProductRecord merges a listing candidate with its detail fields.
// Detail values win; listing hints fill whatever the detail page left empty.
func NewProductRecord(rank int, c ListingCandidate, d DetailFields) ProductRecord {
	rec := ProductRecord{
		Rank:       rank,
		Identifier: c.Identifier,
		Title:      c.Title,
		DetailURL:  c.DetailURL,
		Price:      d.Price,
		ImageURL:   d.ImageURL,
		Popularity: d.Popularity,
	}
	if rec.Price == "" {
		rec.Price = c.Price
	}
	if rec.ImageURL == "" {
		rec.ImageURL = c.ThumbnailURL
	}
	if rec.Popularity == "" {
		rec.Popularity = c.Popularity
	}
	return rec
}

// ApplyCatalog copies a chosen catalog match into the manual fields.
// Retail prefers the list price and falls back to the current price.
func (r *ProductRecord) ApplyCatalog(c CatalogCandidate) {
	r.CatalogSKU = c.CatalogIdentifier
	r.CatalogTitle = c.CatalogTitle
	r.CatalogRetail = c.ListPrice
	if r.CatalogRetail == "" {
		r.CatalogRetail = c.CurrentPrice
	}
}

// CatalogCandidate is one match option from the second retailer.
type CatalogCandidate struct {
	CatalogIdentifier string  `json:"catalog_identifier"`
	CatalogTitle      string  `json:"catalog_title"`
	CurrentPrice      string  `json:"current_price"`
	ListPrice         string  `json:"list_price"`
	ImageURL          string  `json:"image_url"`
	DetailURL         string  `json:"detail_url"`
	MatchScore        float64 `json:"match_score"`

	Brand       string `json:"brand,omitempty"`
	Model       string `json:"model,omitempty"`
	Description string `json:"-"`

	// ExactMatch is set when the query was this candidate's identifier.
	ExactMatch bool `json:"exact_match,omitempty"`
}

// Run is a named, saved set of records from one pipeline execution.
type Run struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ListingURL string          `json:"listing_url"`
	CreatedAt  time.Time       `json:"created_at"`
	Records    []ProductRecord `json:"records"`
}

// NewRun stamps a fresh run ID and creation time on a set of records.
func NewRun(name, listingURL string, records []ProductRecord) *Run {
	return &Run{
		ID:         uuid.NewString(),
		Name:       name,
		ListingURL: listingURL,
		CreatedAt:  time.Now().UTC(),
		Records:    records,
	}
}

// Record returns a pointer to the record with the given rank.
func (r *Run) Record(rank int) (*ProductRecord, error) {
	for i := range r.Records {
		if r.Records[i].Rank == rank {
			return &r.Records[i], nil
		}
	}
	return nil, ErrRankNotFound
}
