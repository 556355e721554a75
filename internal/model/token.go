package model

import "time"

// Role values carried by profiles and session tokens.
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// TokenData contains the data stored with a session token.
type TokenData struct {
	ProfileID string    `json:"profile_id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin reports whether the token grants admin-level access.
func (t *TokenData) IsAdmin() bool {
	return t.Role == RoleAdmin
}

// CanManage reports whether the token grants access to staff dashboards.
func (t *TokenData) CanManage() bool {
	return t.Role == RoleAdmin || t.Role == RoleStaff
}
