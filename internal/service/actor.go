package service

import (
	"encoding/json"

	"farmgate-api/internal/model"
)

// RequestMeta carries the acting identity and request metadata down from
// the HTTP layer. Actor is nil for anonymous submissions and system work.
type RequestMeta struct {
	Actor     *model.TokenData
	IPAddress string
	UserAgent string
}

// auditEntry builds an audit record attributed to this request.
func (m RequestMeta) auditEntry(action model.AuditAction, resource model.AuditResource, resourceID string) model.AuditLogEntry {
	entry := model.AuditLogEntry{
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		IPAddress:    m.IPAddress,
		UserAgent:    m.UserAgent,
	}
	if m.Actor != nil {
		entry.ActorID = &m.Actor.ProfileID
		entry.ActorEmail = &m.Actor.Email
		entry.ActorRole = &m.Actor.Role
	}
	return entry
}

// snapshot marshals a value for a before/after audit payload.
// Marshal failures yield a nil payload; audit content is best effort.
func snapshot(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
