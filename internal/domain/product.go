package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopspring/decimal"
)

// Product is a registered product record as persisted by the store.
type Product struct {
	ID          uuid.UUID         `json:"id"`
	Vertical    Vertical          `json:"vertical"`
	GTIN        string            `json:"gtin,omitempty"`
	Title       string            `json:"title"`
	Brand       string            `json:"brand,omitempty"`
	Category    string            `json:"category,omitempty"`
	Subcategory string            `json:"subcategory,omitempty"`
	Price       *decimal.Decimal  `json:"price,omitempty"`
	NCM         string            `json:"ncm,omitempty"`
	CEST        string            `json:"cest,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Confidence  float64           `json:"confidence"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// FromResult builds a product record from an identification result.
// The title fallback chain mirrors how the registration form behaves when
// the operator saves without editing an empty title.
func FromResult(res *IdentificationResult) *Product {
	title := res.Title
	if title == "" {
		switch {
		case res.Brand != "" && res.Category != "":
			title = res.Brand + " - " + res.Category
		case res.GTIN != "":
			title = "Produto GTIN " + res.GTIN
		default:
			title = "Produto " + string(res.Vertical)
		}
	}
	return &Product{
		ID:          uuid.New(),
		Vertical:    res.Vertical,
		GTIN:        res.GTIN,
		Title:       title,
		Brand:       res.Brand,
		Category:    res.Category,
		Subcategory: res.Subcategory,
		Price:       res.Price,
		NCM:         res.NCM,
		CEST:        res.CEST,
		Attributes:  res.Attributes,
		Fingerprint: res.Fingerprint,
		Confidence:  res.Confidence,
	}
}
