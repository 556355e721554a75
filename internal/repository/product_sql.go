package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"farmgate-api/internal/model"
)

// SQLProductRepository implements ProductRepository over sqlx.
type SQLProductRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewSQLProductRepository creates a product repository on an open connection.
func NewSQLProductRepository(db *sqlx.DB) *SQLProductRepository {
	return &SQLProductRepository{db: db, sb: builder(db)}
}

// List returns catalog entries matching the filter with total count.
func (r *SQLProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int64, error) {
	cond := sq.And{}
	if filter.Category != "" {
		cond = append(cond, sq.Eq{"category": filter.Category})
	}
	if filter.AvailableOnly {
		cond = append(cond, sq.Eq{"is_available": true})
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		cond = append(cond, sq.Or{
			sq.Like{"name": like},
			sq.Like{"description": like},
		})
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("products").Where(cond).ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	listQuery, listArgs, err := r.sb.Select("*").
		From("products").
		Where(cond).
		OrderBy("name ASC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	products := []model.Product{}
	if err := r.db.SelectContext(ctx, &products, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

// GetByID loads a single catalog entry.
func (r *SQLProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	query := r.db.Rebind(`SELECT * FROM products WHERE id = ?`)
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// Search finds available products by name or description.
func (r *SQLProductRepository) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	if limit < 1 || limit > 50 {
		limit = 20
	}

	like := "%" + query + "%"
	sqlQuery, args, err := r.sb.Select("*").
		From("products").
		Where(sq.And{
			sq.Eq{"is_available": true},
			sq.Or{sq.Like{"name": like}, sq.Like{"description": like}},
		}).
		OrderBy("name ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	products := []model.Product{}
	if err := r.db.SelectContext(ctx, &products, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// Create inserts a catalog entry.
func (r *SQLProductRepository) Create(ctx context.Context, p *model.Product) error {
	const query = `
		INSERT INTO products (
			id, name, category, description, price, unit, stock, is_available,
			image_url, created_at, updated_at
		) VALUES (
			:id, :name, :category, :description, :price, :unit, :stock, :is_available,
			:image_url, :created_at, :updated_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

// Update rewrites a catalog entry.
func (r *SQLProductRepository) Update(ctx context.Context, p *model.Product) error {
	const query = `
		UPDATE products SET
			name = :name, category = :category, description = :description,
			price = :price, unit = :unit, stock = :stock, is_available = :is_available,
			image_url = :image_url, updated_at = :updated_at
		WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return checkFound(result)
}

// Delete removes a catalog entry.
func (r *SQLProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM products WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return checkFound(result)
}

var _ ProductRepository = (*SQLProductRepository)(nil)

// SQLLocationRepository implements LocationRepository over sqlx.
type SQLLocationRepository struct {
	db *sqlx.DB
}

// NewSQLLocationRepository creates a location repository on an open connection.
func NewSQLLocationRepository(db *sqlx.DB) *SQLLocationRepository {
	return &SQLLocationRepository{db: db}
}

// ListActive returns active farm tour venues.
func (r *SQLLocationRepository) ListActive(ctx context.Context) ([]model.Location, error) {
	locations := []model.Location{}
	query := r.db.Rebind(`SELECT * FROM locations WHERE is_active = ? ORDER BY name ASC`)
	if err := r.db.SelectContext(ctx, &locations, query, true); err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	return locations, nil
}

var _ LocationRepository = (*SQLLocationRepository)(nil)
