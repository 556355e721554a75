package repository

import (
	"context"
	"errors"
	"time"

	"farmgate-api/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// InquiryRepository defines inquiry data access methods.
type InquiryRepository interface {
	// Create persists an inquiry and its items in one transaction.
	Create(ctx context.Context, inquiry *model.Inquiry, items []model.InquiryItem) error

	// GetByID loads an inquiry with its items.
	GetByID(ctx context.Context, id string) (*model.Inquiry, error)

	// List returns inquiries matching the filter, newest first, with total count.
	List(ctx context.Context, filter model.InquiryFilter) ([]model.Inquiry, int64, error)

	// UpdateStatus persists a new status. Returns ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id string, status model.InquiryStatus) error

	// SetRead marks the inquiry read at the given time. Idempotent.
	SetRead(ctx context.Context, id string, at time.Time) error

	// SetReplied marks the inquiry replied (and read) at the given time. Idempotent.
	SetReplied(ctx context.Context, id string, at time.Time) error

	// Delete removes the inquiry; items cascade.
	Delete(ctx context.Context, id string) error

	// Stats aggregates inbox counts for the admin dashboard.
	Stats(ctx context.Context) (*model.InquiryStats, error)
}

// ProductRepository defines catalog data access methods.
type ProductRepository interface {
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int64, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	Search(ctx context.Context, query string, limit int) ([]model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) error
}

// LocationRepository defines farm tour venue reads.
type LocationRepository interface {
	ListActive(ctx context.Context) ([]model.Location, error)
}

// AuditLogRepository defines append-only audit log storage.
// There are deliberately no update or delete methods.
type AuditLogRepository interface {
	Insert(ctx context.Context, entry *model.AuditLogEntry) error
	Query(ctx context.Context, filter model.AuditLogFilter) ([]model.AuditLogEntry, int64, error)
}

// ProfileRepository defines staff/admin account lookups.
type ProfileRepository interface {
	// GetByEmail finds an active profile by email.
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)

	// ValidateAccess checks an email+access key pair for token issuance.
	ValidateAccess(ctx context.Context, email, accessKey string) (*model.Profile, error)
}
