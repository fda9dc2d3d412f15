// Package checksum computes document versions used for ETag and If-Match.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes sum as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromHeader extracts the checksum from an ETag or If-Match value. Weak
// tags are accepted; only the first tag of a list is used.
func FromHeader(v string) string {
	v = strings.TrimSpace(v)
	if first, _, ok := strings.Cut(v, ","); ok {
		v = strings.TrimSpace(first)
	}
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

// Matches reports whether the expected checksum allows a write against
// current. Empty and "*" match anything.
func Matches(expected, current string) bool {
	return expected == "" || expected == "*" || expected == current
}
