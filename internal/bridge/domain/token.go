package domain

import "time"

// TokenRecord is a durable bearer token issued to a paired browser client.
// Unique by Token value. The record survives process restarts and is deleted
// on explicit revoke or lazily when expiry is detected.
type TokenRecord struct {
	Token             string    `json:"token"`
	ClientFingerprint string    `json:"fingerprint"`
	ClientLabel       string    `json:"browser"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry at the given instant.
func (t TokenRecord) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
