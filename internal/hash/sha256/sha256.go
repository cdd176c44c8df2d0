// Package sha256 provides the digest helper used to derive cache keys.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hex returns the hex-encoded SHA-256 digest of data. The digest is a
// fixed-length token safe to use as a key in any backing store.
func Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
