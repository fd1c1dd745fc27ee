package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// HashToken returns the hex SHA-256 of a raw token.  Only the hash of a
// refresh token is stored, so a leaked table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns n random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewID returns a new random UUID string used as primary key.
func NewID() string { return uuid.NewString() }

var spaces = regexp.MustCompile(`\s+`)

// GenerateUsername derives a handle from a display name: lower-cased,
// whitespace removed, suffixed with the first uuid block.
func GenerateUsername(name string) string {
	clean := spaces.ReplaceAllString(strings.ToLower(name), "")
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return clean + "_" + suffix
}
