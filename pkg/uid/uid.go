// Package uid generates identifiers for stored records and session tokens.
package uid

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a UUID string used as the primary key for stored records.
func New() string {
	return uuid.NewString()
}

// NewSecret returns n random bytes hex encoded, for bearer token bodies.
func NewSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
