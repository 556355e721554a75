package model

import (
	"encoding/json"
	"time"
)

// Product is a catalog entry available for inquiry.
type Product struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Category    string    `db:"category" json:"category"`
	Description string    `db:"description" json:"description,omitempty"`
	Price       float64   `db:"price" json:"price"`
	Unit        string    `db:"unit" json:"unit"`
	Stock       int       `db:"stock" json:"stock"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category      string
	AvailableOnly bool
	Search        string
	Page          int
	Limit         int
}

// Location is a farm tour venue. Coordinates are stored as a JSON blob
// with lat/lng keys, matching the upstream column layout.
type Location struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Address     string          `db:"address" json:"address"`
	Coordinates json.RawMessage `db:"coordinates" json:"coordinates,omitempty"`
	Capacity    int             `db:"capacity" json:"capacity"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
