package usecase

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the deterministic content digest of the submitted
// image bytes, used as the cache/dedup key. Identical bytes always yield
// the same fingerprint.
func Fingerprint(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
