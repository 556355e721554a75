package model

import "time"

// Profile is a staff/admin account record. Profiles live in a separate
// accounts database from the catalog and inquiry data.
type Profile struct {
	ID          string    `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	Role        string    `db:"role" json:"role"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AccessKey   string    `db:"access_key" json:"-"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
