// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"
)

// Merchant is the authenticated account the console operates on behalf of.
// The backend assigns the identifier; every cached product is scoped to it.
type Merchant struct {
	ID    int64  // Backend-assigned merchant identifier, normalized to an integer.
	Name  string // Display name shown in the console header.
	Email string // Login identifier and contact address.
}

// Session represents the authenticated state of the console.
// It is the sole source of truth for "who is logged in".
type Session struct {
	Merchant     Merchant  // Identity returned by the backend at login.
	AccessToken  string    // Bearer credential, empty under cookie transport.
	RefreshToken string    // Long-lived credential, empty when the backend issues none.
	IssuedAt     time.Time // When this session was established locally.
}

// TokenSet is the durable subset of a session that survives a restart.
type TokenSet struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"` // Zero when the token carries no expiry claim.
}

// Expired reports whether the access token is past its recorded expiry.
// Tokens without expiry metadata never report expired here.
func (t TokenSet) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
