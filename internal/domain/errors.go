package domain

import "errors"

var (
	// ErrAdapterUnavailable is returned when an external adapter cannot be reached
	ErrAdapterUnavailable = errors.New("external adapter unavailable")

	// ErrAdapterTimeout is returned when an external adapter call exceeds its deadline
	ErrAdapterTimeout = errors.New("external adapter timed out")

	// ErrProductNotFound is returned when a code has no entry in the fiscal catalog
	ErrProductNotFound = errors.New("product not found in fiscal catalog")

	// ErrInvalidImage is returned when the submitted image bytes are unreadable
	ErrInvalidImage = errors.New("image is unreadable")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when a fingerprint has no cached result
	ErrCacheMiss = errors.New("cache miss")

	// ErrRecordNotFound is returned when a stored product record does not exist
	ErrRecordNotFound = errors.New("product record not found")

	// ErrDuplicateGTIN is returned when saving a product whose GTIN already exists
	ErrDuplicateGTIN = errors.New("product with this GTIN already exists")
)
