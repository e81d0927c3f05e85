// Package fingerprint derives stable, content-addressed cache keys from URLs.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // non-cryptographic use: cache key, not security boundary
	"encoding/hex"
)

// Length is the number of hex characters in a Fingerprint.
const Length = 32

// Fingerprint is a 32-character lowercase hex digest identifying a cached
// resource. It doubles as the on-disk filename stem for DiskCache entries.
type Fingerprint string

// Of derives the Fingerprint for a URL string. The caller is responsible for
// passing the canonical/absolute form it intends to use consistently: this
// function performs no normalization.
//
// Collisions are treated as equality, which is acceptable for cache keys.
func Of(url string) Fingerprint {
	sum := md5.Sum([]byte(url)) //nolint:gosec // see package doc
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// String returns the fingerprint's hex representation.
func (f Fingerprint) String() string {
	return string(f)
}

// Valid reports whether f looks like a well-formed fingerprint (correct
// length, lowercase hex). It does not verify the fingerprint corresponds to
// any known key.
func (f Fingerprint) Valid() bool {
	if len(f) != Length {
		return false
	}
	for _, r := range f {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
