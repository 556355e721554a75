package model

import (
	"encoding/json"
	"time"
)

// AuditAction is a closed enumeration of recordable actions.
type AuditAction string

const (
	AuditActionView               AuditAction = "view"
	AuditActionViewList           AuditAction = "view_list"
	AuditActionCreate             AuditAction = "create"
	AuditActionUpdate             AuditAction = "update"
	AuditActionDelete             AuditAction = "delete"
	AuditActionExport             AuditAction = "export"
	AuditActionStatusChange       AuditAction = "status_change"
	AuditActionUnauthorizedAccess AuditAction = "unauthorized_access"
)

// IsValid reports whether the action is part of the closed enumeration.
func (a AuditAction) IsValid() bool {
	switch a {
	case AuditActionView, AuditActionViewList, AuditActionCreate, AuditActionUpdate,
		AuditActionDelete, AuditActionExport, AuditActionStatusChange, AuditActionUnauthorizedAccess:
		return true
	}
	return false
}

// sensitiveActions are flagged for UI highlighting. No alerting is attached.
var sensitiveActions = map[AuditAction]bool{
	AuditActionDelete:             true,
	AuditActionExport:             true,
	AuditActionUpdate:             true,
	AuditActionUnauthorizedAccess: true,
}

// IsSensitive reports whether the action should be highlighted in audit views.
func (a AuditAction) IsSensitive() bool {
	return sensitiveActions[a]
}

// AuditResource is a closed enumeration of auditable resource types.
type AuditResource string

const (
	AuditResourceInquiry  AuditResource = "inquiry"
	AuditResourceProduct  AuditResource = "product"
	AuditResourceAuditLog AuditResource = "audit_log"
	AuditResourceProfile  AuditResource = "profile"
	AuditResourceLocation AuditResource = "location"
	AuditResourceSecurity AuditResource = "security"
)

// IsValid reports whether the resource type is part of the closed enumeration.
func (r AuditResource) IsValid() bool {
	switch r {
	case AuditResourceInquiry, AuditResourceProduct, AuditResourceAuditLog,
		AuditResourceProfile, AuditResourceLocation, AuditResourceSecurity:
		return true
	}
	return false
}

// AuditLogEntry is an immutable record of a privileged action.
// Rows are append-only: never updated or deleted after creation.
type AuditLogEntry struct {
	ID           string          `db:"id" json:"id"`
	ActorID      *string         `db:"actor_id" json:"actor_id,omitempty"`
	ActorEmail   *string         `db:"actor_email" json:"actor_email,omitempty"`
	ActorRole    *string         `db:"actor_role" json:"actor_role,omitempty"`
	Action       AuditAction     `db:"action" json:"action"`
	ResourceType AuditResource   `db:"resource_type" json:"resource_type"`
	ResourceID   string          `db:"resource_id" json:"resource_id,omitempty"`
	Before       json.RawMessage `db:"before_state" json:"before,omitempty"`
	After        json.RawMessage `db:"after_state" json:"after,omitempty"`
	IPAddress    string          `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent    string          `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`

	// Sensitive is derived from Action, not stored.
	Sensitive bool `db:"-" json:"sensitive"`
}

// AuditLogFilter narrows audit log queries.
type AuditLogFilter struct {
	ActorID      string
	ActorEmail   string
	Action       AuditAction
	ResourceType AuditResource
	ResourceID   string
	IPAddress    string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}
