package domain

import (
	"context"

	"github.com/google/uuid"
)

// ResultCache maps an image fingerprint to a previously assembled result.
// A store failure is a performance problem, not a correctness problem;
// callers log and move on. Last write wins under concurrent stores.
type ResultCache interface {
	Lookup(ctx context.Context, fingerprint string) (*IdentificationResult, error)
	Store(ctx context.Context, fingerprint string, result *IdentificationResult) error
	Delete(ctx context.Context, fingerprint string) error
}

// OpticalExtractor is the external optical recognition engine boundary.
// Fails with ErrInvalidImage for unreadable input, ErrAdapterUnavailable
// or ErrAdapterTimeout otherwise.
type OpticalExtractor interface {
	Extract(ctx context.Context, image []byte) (*RawExtraction, error)
}

// FiscalCatalog resolves a checksum-valid code into authoritative product
// and tax data. Fails with ErrProductNotFound, ErrAdapterUnavailable or
// ErrAdapterTimeout.
type FiscalCatalog interface {
	Lookup(ctx context.Context, code string) (*EnrichedRecord, error)
}

// ProductFilter narrows and pages a product listing.
type ProductFilter struct {
	Category string
	Brand    string
	Sort     string // "newest", "oldest", "name", "name_desc"
	Page     int
	PageSize int
}

// ProductRepository persists already-assembled product records. It doubles
// as the local catalog tier of the cascade via FindByGTIN.
type ProductRepository interface {
	Save(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByGTIN(ctx context.Context, gtin string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
