package domain

import "time"

// PairingSession is the short-lived 6-digit code a user relays to their
// browser extension. At most one session exists process-wide; it is consumed
// by the first successful pair call and never persisted.
type PairingSession struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the pairing window has closed.
func (s PairingSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
