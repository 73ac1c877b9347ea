package models

import "time"

// User mirrors the principals known to the external identity provider.
// The core keeps its own copy only for existence and role checks
// (e.g. "assignee must be a mechanic").
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal is the authenticated actor extracted from the bearer token.
type Principal struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// IsAdmin is a convenience for the common role check.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
