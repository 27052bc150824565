package model

import (
	"strings"
	"time"
)

// Role is the server-side authority level of a user.  It is always read
// from the user directory and never taken from client-supplied claims.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
	RoleAuditor  Role = "auditor"
)

// ParseRole accepts the three known roles, case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleEmployee:
		return RoleEmployee, true
	case RoleAdmin:
		return RoleAdmin, true
	case RoleAuditor:
		return RoleAuditor, true
	}
	return "", false
}

// User mirrors a row of the `users` table.  PasswordHash and TOTPSecret
// never leave the server.
//
// Fields:
//  ID           – UUID primary key.
//  Username     – unique login name.
//  PasswordHash – bcrypt hash.
//  Role         – employee, admin or auditor.
//  TOTPSecret   – base32 TOTP seed, empty until enrolled.
//  CreatedAt    – creation timestamp.
type User struct {
	ID           string    // users.id
	Username     string    // users.username
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	TOTPSecret   string    // users.totp_secret
	CreatedAt    time.Time // users.created_at
}
