package model

import "time"

// DefaultSessionTTL is the lifetime of a privileged session unless
// SESSION_TTL_SECONDS overrides it.
const DefaultSessionTTL = 180 * time.Second

// SessionState is the derived lifecycle state of a session at an instant.
// Active moves to Expired (by time) or Revoked (by an explicit end); neither
// ever returns to Active.
type SessionState string

const (
	SessionActive  SessionState = "active"
	SessionExpired SessionState = "expired"
	SessionRevoked SessionState = "revoked"
)

// Session is a short-lived, scoped grant on one vault item, issued after
// MFA verification.  Scope is fixed at issuance.
type Session struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	VaultItemID string     `json:"vault_item_id"`
	Scope       AccessType `json:"scope"`
	IssuedAt    time.Time  `json:"issued_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Revoked     bool       `json:"revoked"`
}

// IsValid reports whether the session may be used at t.  Callers must
// evaluate it on every use with the current time.
func (s Session) IsValid(t time.Time) bool {
	return !s.Revoked && t.Before(s.ExpiresAt)
}

// State returns the lifecycle state at t.  Revocation wins over expiry.
func (s Session) State(t time.Time) SessionState {
	switch {
	case s.Revoked:
		return SessionRevoked
	case !t.Before(s.ExpiresAt):
		return SessionExpired
	default:
		return SessionActive
	}
}
