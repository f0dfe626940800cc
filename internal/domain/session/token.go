package session

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns a new opaque session identifier.
// IDs are generated before the store insert so the token signer can
// embed them without waiting for the persistence round trip.
func NewSessionID() string {
	return uuid.NewString()
}

// HashToken returns the one-way hash persisted in place of the raw
// bearer token. The output is always a full-length hex digest, so the
// empty placeholder written during issuance can never collide with it.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ExpiryFrom computes the absolute expiry instant for a session created
// at now. A non-positive ttl falls back to the configured default.
func ExpiryFrom(now time.Time, ttl, fallback time.Duration) time.Time {
	if ttl <= 0 {
		ttl = fallback
	}
	return now.Add(ttl)
}

// Expired reports whether the record's absolute expiry has passed
func Expired(sess *Session, now time.Time) bool {
	return now.After(sess.ExpiresAt)
}
