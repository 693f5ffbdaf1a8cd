package vault

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// HashPrefix marks a password value as already hashed. Stored passwords
// always carry it; client-supplied plaintext never should.
const HashPrefix = "hashed-"

// NewSecret issues a fresh opaque secret for a record. The value is
// write-only: it is never surfaced through any read path.
func NewSecret() string {
	return uuid.NewString()
}

// HashPassword one-way hashes a plaintext password. It is idempotent: a
// value already carrying HashPrefix is returned unchanged, so re-saving a
// stored record never double-hashes. The bare prefix with no payload is
// rejected.
func HashPassword(password string) (string, error) {
	if password == HashPrefix {
		return "", fmt.Errorf("invalid password")
	}
	if strings.HasPrefix(password, HashPrefix) {
		return password, nil
	}
	sum := sha256.Sum256([]byte(password))
	return HashPrefix + hex.EncodeToString(sum[:]), nil
}

// KeyDigest derives the confirmation key for a secret. The digest is what
// the out-of-band channel delivers to the account holder; a supplied key
// is accepted only if it equals this value exactly.
func KeyDigest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
