// Package cryptox holds the content fingerprint used for change detection.
package cryptox

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// FingerprintSize is the length of a fingerprint in hex characters.
const FingerprintSize = blake2b.Size256 * 2

// Fingerprint returns the hex BLAKE2b-256 digest of payload. Callers must
// hash the exact bytes they store so equal fingerprints mean equal content.
func Fingerprint(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
