package session

import "time"

// Metadata is the optional descriptive bag attached to a session.
// It is informational only and never participates in validation.
type Metadata struct {
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	Device    string `json:"device,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
}

// Session is the canonical session record shared by every backend.
// TokenHash is empty only during the issuance window before the signed
// token's hash is written; an empty hash never validates.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	Metadata  Metadata
	CreatedAt time.Time
	LastSeen  time.Time
	ExpiresAt time.Time
	Revoked   bool
}
