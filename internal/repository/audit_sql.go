package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"farmgate-api/internal/model"
)

// SQLAuditLogRepository implements AuditLogRepository over sqlx.
// The table is append-only; this type exposes no update or delete path.
type SQLAuditLogRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewSQLAuditLogRepository creates an audit log repository on an open connection.
func NewSQLAuditLogRepository(db *sqlx.DB) *SQLAuditLogRepository {
	return &SQLAuditLogRepository{db: db, sb: builder(db)}
}

// Insert appends one audit record.
func (r *SQLAuditLogRepository) Insert(ctx context.Context, entry *model.AuditLogEntry) error {
	const query = `
		INSERT INTO audit_logs (
			id, actor_id, actor_email, actor_role, action, resource_type, resource_id,
			before_state, after_state, ip_address, user_agent, created_at
		) VALUES (
			:id, :actor_id, :actor_email, :actor_role, :action, :resource_type, :resource_id,
			:before_state, :after_state, :ip_address, :user_agent, :created_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// Query returns audit records matching the filter, newest first, with total count.
func (r *SQLAuditLogRepository) Query(ctx context.Context, filter model.AuditLogFilter) ([]model.AuditLogEntry, int64, error) {
	cond := sq.And{}
	if filter.ActorID != "" {
		cond = append(cond, sq.Eq{"actor_id": filter.ActorID})
	}
	if filter.ActorEmail != "" {
		cond = append(cond, sq.Eq{"actor_email": filter.ActorEmail})
	}
	if filter.Action != "" {
		cond = append(cond, sq.Eq{"action": filter.Action})
	}
	if filter.ResourceType != "" {
		cond = append(cond, sq.Eq{"resource_type": filter.ResourceType})
	}
	if filter.ResourceID != "" {
		cond = append(cond, sq.Eq{"resource_id": filter.ResourceID})
	}
	if filter.IPAddress != "" {
		cond = append(cond, sq.Eq{"ip_address": filter.IPAddress})
	}
	if filter.From != nil {
		cond = append(cond, sq.GtOrEq{"created_at": *filter.From})
	}
	if filter.To != nil {
		cond = append(cond, sq.LtOrEq{"created_at": *filter.To})
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("audit_logs").Where(cond).ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	page, limit := normalizePage(filter.Page, filter.Limit)
	listQuery, listArgs, err := r.sb.Select("*").
		From("audit_logs").
		Where(cond).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64((page - 1) * limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	entries := []model.AuditLogEntry{}
	if err := r.db.SelectContext(ctx, &entries, listQuery, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}

	for i := range entries {
		entries[i].Sensitive = entries[i].Action.IsSensitive()
	}

	return entries, total, nil
}

var _ AuditLogRepository = (*SQLAuditLogRepository)(nil)
