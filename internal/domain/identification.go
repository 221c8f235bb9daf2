package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Vertical selects the target schema for an identification request.
// It is supplied by the caller (the UI knows which form is open);
// it is never detected from image content.
type Vertical string

const (
	VerticalRetail  Vertical = "retail-goods"
	VerticalApparel Vertical = "apparel"
)

// ParseVertical validates a caller-supplied vertical selector.
func ParseVertical(s string) (Vertical, error) {
	switch Vertical(s) {
	case VerticalRetail, VerticalApparel:
		return Vertical(s), nil
	}
	return "", fmt.Errorf("%w: unknown vertical %q", ErrInvalidRequest, s)
}

// TextToken is a single recognized text fragment from the optical adapter,
// in the adapter's reading order (top-to-bottom, left-to-right).
type TextToken struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0..1
	Line       int     `json:"line"`
	Column     int     `json:"column"`
}

// LogoHint is a detected brand/logo label with its detection confidence.
type LogoHint struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0..1
}

// RawExtraction is the unmodified optical adapter output for one image.
// It lives only for the duration of a single cascade run.
type RawExtraction struct {
	Tokens []TextToken `json:"tokens"`
	Logos  []LogoHint  `json:"logos"`
}

// HasSignal reports whether the adapter produced anything usable at all.
func (r *RawExtraction) HasSignal() bool {
	return r != nil && (len(r.Tokens) > 0 || len(r.Logos) > 0)
}

// CandidateCode is a digit run found in the token stream, with its
// checksum verdict and the barcode family its length matches.
type CandidateCode struct {
	Digits     string
	Family     string // "GTIN-8", "GTIN-12", "GTIN-13", "GTIN-14"
	Valid      bool
	TokenIndex int // index of the first contributing token
}

// CodeBranch is the two-way outcome of code extraction: either exactly one
// accepted checksum-valid code, or none. Keeping it as a closed type makes
// the enrich-vs-infer split explicit at every call site.
type CodeBranch struct {
	code *CandidateCode
}

// ValidCode builds the branch carrying an accepted code.
func ValidCode(c CandidateCode) CodeBranch {
	return CodeBranch{code: &c}
}

// NoCode builds the empty branch.
func NoCode() CodeBranch {
	return CodeBranch{}
}

// Code returns the accepted code, if any.
func (b CodeBranch) Code() (CandidateCode, bool) {
	if b.code == nil {
		return CandidateCode{}, false
	}
	return *b.code, true
}

// EnrichedRecord holds the authoritative fields returned by the fiscal
// catalog for an accepted code.
type EnrichedRecord struct {
	GTIN     string `json:"gtin"`
	Title    string `json:"title"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	NCM      string `json:"ncm,omitempty"`
	CEST     string `json:"cest,omitempty"`
	Source   string `json:"source"` // "catalog" or "fiscal-api"
}

// InferredRecord holds fields reconstructed by the heuristic inference
// engine when no enriched record exists. Every field carries its own
// confidence so the scorer can tell a logo-backed brand from a fuzzy
// text match.
type InferredRecord struct {
	Title       string
	Brand       string
	Category    string
	Subcategory string
	Price       *decimal.Decimal

	TitleConfidence    float64
	BrandConfidence    float64
	CategoryConfidence float64
	PriceConfidence    float64
	BrandFromLogo      bool
}

// IdentificationResult is the final assembled entity for one cascade run.
// Immutable after assembly; cached keyed by fingerprint.
type IdentificationResult struct {
	Vertical    Vertical          `json:"vertical"`
	Title       string            `json:"title"`
	Brand       string            `json:"brand,omitempty"`
	Category    string            `json:"category,omitempty"`
	Subcategory string            `json:"subcategory,omitempty"`
	Price       *decimal.Decimal  `json:"price,omitempty"`
	GTIN        string            `json:"gtin,omitempty"`
	NCM         string            `json:"ncm,omitempty"`
	CEST        string            `json:"cest,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Confidence  float64           `json:"confidence"`
	Fingerprint string            `json:"fingerprint"`
	Duplicate   bool              `json:"duplicate"`
}

// Clone returns a copy safe to hand to a caller while the original stays
// in the cache.
func (r *IdentificationResult) Clone() *IdentificationResult {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Attributes != nil {
		cp.Attributes = make(map[string]string, len(r.Attributes))
		for k, v := range r.Attributes {
			cp.Attributes[k] = v
		}
	}
	if r.Price != nil {
		p := *r.Price
		cp.Price = &p
	}
	return &cp
}
