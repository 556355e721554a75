package repository

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"farmgate-api/internal/model"
)

// MySQLProfileRepository implements ProfileRepository against the accounts
// database, which lives on MySQL separately from the catalog/inquiry store.
type MySQLProfileRepository struct {
	db *sqlx.DB
}

// NewMySQLProfileRepository creates a profile repository on an open connection.
func NewMySQLProfileRepository(db *sqlx.DB) *MySQLProfileRepository {
	return &MySQLProfileRepository{db: db}
}

// GetByEmail finds an active profile by email.
func (r *MySQLProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	const query = `
		SELECT id, email, role, display_name, access_key, is_active, created_at
		FROM profiles WHERE email = ? AND is_active = 1 LIMIT 1`
	if err := r.db.GetContext(ctx, &profile, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// ValidateAccess checks an email+access key pair for token issuance.
// Stored keys are SHA-256 hex digests; comparison is constant time.
func (r *MySQLProfileRepository) ValidateAccess(ctx context.Context, email, accessKey string) (*model.Profile, error) {
	profile, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(accessKey))
	supplied := hex.EncodeToString(digest[:])
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(profile.AccessKey)) != 1 {
		return nil, ErrNotFound
	}

	return profile, nil
}

var _ ProfileRepository = (*MySQLProfileRepository)(nil)
