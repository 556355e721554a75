package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"farmgate-api/internal/model"
)

// SQLInquiryRepository implements InquiryRepository over sqlx.
// Queries are dialect-neutral and rebound per driver, so the same type
// serves both the SQLite and PostgreSQL backends.
type SQLInquiryRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewSQLInquiryRepository creates an inquiry repository on an open connection.
func NewSQLInquiryRepository(db *sqlx.DB) *SQLInquiryRepository {
	return &SQLInquiryRepository{db: db, sb: builder(db)}
}

// Create persists an inquiry and its items in one transaction.
func (r *SQLInquiryRepository) Create(ctx context.Context, inquiry *model.Inquiry, items []model.InquiryItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const inquiryQuery = `
		INSERT INTO inquiries (
			id, customer_name, customer_email, customer_phone, inquiry_type, status,
			is_read, is_replied, delivery_address, preferred_date, notes,
			total_estimated, created_at, updated_at
		) VALUES (
			:id, :customer_name, :customer_email, :customer_phone, :inquiry_type, :status,
			:is_read, :is_replied, :delivery_address, :preferred_date, :notes,
			:total_estimated, :created_at, :updated_at
		)`

	if _, err := tx.NamedExecContext(ctx, inquiryQuery, inquiry); err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}

	const itemQuery = `
		INSERT INTO inquiry_items (
			id, inquiry_id, product_id, product_name, category, quantity, unit_price, total_price
		) VALUES (
			:id, :inquiry_id, :product_id, :product_name, :category, :quantity, :unit_price, :total_price
		)`

	for i := range items {
		if _, err := tx.NamedExecContext(ctx, itemQuery, &items[i]); err != nil {
			return fmt.Errorf("failed to insert inquiry item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inquiry: %w", err)
	}
	return nil
}

// GetByID loads an inquiry with its items.
func (r *SQLInquiryRepository) GetByID(ctx context.Context, id string) (*model.Inquiry, error) {
	var inquiry model.Inquiry
	query := r.db.Rebind(`SELECT * FROM inquiries WHERE id = ?`)
	if err := r.db.GetContext(ctx, &inquiry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get inquiry: %w", err)
	}

	itemQuery := r.db.Rebind(`SELECT * FROM inquiry_items WHERE inquiry_id = ? ORDER BY product_name`)
	if err := r.db.SelectContext(ctx, &inquiry.Items, itemQuery, id); err != nil {
		return nil, fmt.Errorf("failed to get inquiry items: %w", err)
	}

	return &inquiry, nil
}

// List returns inquiries matching the filter, newest first, with total count.
func (r *SQLInquiryRepository) List(ctx context.Context, filter model.InquiryFilter) ([]model.Inquiry, int64, error) {
	cond := sq.And{}
	if filter.Status != "" {
		cond = append(cond, sq.Eq{"status": filter.Status})
	}
	if filter.Type != "" {
		cond = append(cond, sq.Eq{"inquiry_type": filter.Type})
	}
	if filter.Unread {
		cond = append(cond, sq.Eq{"is_read": false})
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("inquiries").Where(cond).ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count inquiries: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	listQuery, listArgs, err := r.sb.Select("*").
		From("inquiries").
		Where(cond).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	inquiries := []model.Inquiry{}
	if err := r.db.SelectContext(ctx, &inquiries, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to list inquiries: %w", err)
	}

	return inquiries, total, nil
}

// UpdateStatus persists a new status.
func (r *SQLInquiryRepository) UpdateStatus(ctx context.Context, id string, status model.InquiryStatus) error {
	query := r.db.Rebind(`UPDATE inquiries SET status = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update inquiry status: %w", err)
	}
	return checkFound(result)
}

// SetRead marks the inquiry read. Re-marking an already-read inquiry keeps
// the original read_at timestamp.
func (r *SQLInquiryRepository) SetRead(ctx context.Context, id string, at time.Time) error {
	query := r.db.Rebind(`
		UPDATE inquiries
		SET is_read = ?, read_at = COALESCE(read_at, ?), updated_at = ?
		WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, true, at, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark inquiry read: %w", err)
	}
	return checkFound(result)
}

// SetReplied marks the inquiry replied. Replied implies read, so both flags
// are set in one statement.
func (r *SQLInquiryRepository) SetReplied(ctx context.Context, id string, at time.Time) error {
	query := r.db.Rebind(`
		UPDATE inquiries
		SET is_replied = ?, replied_at = COALESCE(replied_at, ?),
		    is_read = ?, read_at = COALESCE(read_at, ?), updated_at = ?
		WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, true, at, true, at, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark inquiry replied: %w", err)
	}
	return checkFound(result)
}

// Delete removes the inquiry and its items. Items are deleted explicitly in
// the same transaction so the cascade does not depend on FK enforcement
// being enabled on the SQLite backend.
func (r *SQLInquiryRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM inquiry_items WHERE inquiry_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete inquiry items: %w", err)
	}

	result, err := tx.ExecContext(ctx, r.db.Rebind(`DELETE FROM inquiries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete inquiry: %w", err)
	}
	if err := checkFound(result); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// Stats aggregates inbox counts for the admin dashboard.
func (r *SQLInquiryRepository) Stats(ctx context.Context) (*model.InquiryStats, error) {
	stats := &model.InquiryStats{
		ByStatus: make(map[model.InquiryStatus]int64),
		ByType:   make(map[model.InquiryType]int64),
	}

	type statusRow struct {
		Status model.InquiryStatus `db:"status"`
		Count  int64               `db:"cnt"`
	}
	var statusRows []statusRow
	if err := r.db.SelectContext(ctx, &statusRows,
		`SELECT status, COUNT(*) AS cnt FROM inquiries GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to aggregate by status: %w", err)
	}
	for _, row := range statusRows {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	type typeRow struct {
		Type  model.InquiryType `db:"inquiry_type"`
		Count int64             `db:"cnt"`
	}
	var typeRows []typeRow
	if err := r.db.SelectContext(ctx, &typeRows,
		`SELECT inquiry_type, COUNT(*) AS cnt FROM inquiries GROUP BY inquiry_type`); err != nil {
		return nil, fmt.Errorf("failed to aggregate by type: %w", err)
	}
	for _, row := range typeRows {
		stats.ByType[row.Type] = row.Count
	}

	query := r.db.Rebind(`SELECT COUNT(*) FROM inquiries WHERE is_read = ?`)
	if err := r.db.GetContext(ctx, &stats.Unread, query, false); err != nil {
		return nil, fmt.Errorf("failed to count unread: %w", err)
	}

	query = r.db.Rebind(`SELECT COUNT(*) FROM inquiries WHERE is_replied = ?`)
	if err := r.db.GetContext(ctx, &stats.Unreplied, query, false); err != nil {
		return nil, fmt.Errorf("failed to count unreplied: %w", err)
	}

	return stats, nil
}

func checkFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

var _ InquiryRepository = (*SQLInquiryRepository)(nil)
