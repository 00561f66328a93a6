package vectordb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// HashBytes returns the hex SHA-256 digest identifying a document.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashReader digests r and returns the hash with the number of bytes read.
func HashReader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hashing content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ValidHash reports whether s is a lowercase hex SHA-256 digest. Hashes
// become directory names, so anything else is rejected.
func ValidHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// CacheKey names the cache directory of a content hash.
func CacheKey(prefix, hash string) string {
	return prefix + "_" + hash
}
