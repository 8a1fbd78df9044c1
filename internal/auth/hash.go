package auth

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// TokenDigest derives a fixed-length cache key from a bearer credential.
// Raw tokens never appear as Redis keys; the digest is one-way and keeps
// key length bounded regardless of token size.
func TokenDigest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}
