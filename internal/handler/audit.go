package handler

import (
	"net/http"
	"strconv"
	"time"

	"farmgate-api/internal/model"
	"farmgate-api/internal/service"
	"farmgate-api/pkg/apierror"
	"farmgate-api/pkg/response"
)

// AuditHandler exposes the audit trail to administrators.
type AuditHandler struct {
	audit *service.AuditLogger
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit *service.AuditLogger) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List handles GET /api/v1/audit-logs
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := model.AuditLogFilter{
		ActorID:      q.Get("actor_id"),
		ActorEmail:   q.Get("actor_email"),
		Action:       model.AuditAction(q.Get("action")),
		ResourceType: model.AuditResource(q.Get("resource_type")),
		ResourceID:   q.Get("resource_id"),
		IPAddress:    q.Get("ip"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	if filter.Action != "" && !filter.Action.IsValid() {
		response.Error(w, apierror.BadRequest("unknown action filter"))
		return
	}
	if filter.ResourceType != "" && !filter.ResourceType.IsValid() {
		response.Error(w, apierror.BadRequest("unknown resource_type filter"))
		return
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, apierror.BadRequest("from must be an RFC3339 timestamp"))
			return
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(w, apierror.BadRequest("to must be an RFC3339 timestamp"))
			return
		}
		filter.To = &t
	}

	entries, total, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to query audit logs"))
		return
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	response.JSONWithMeta(w, http.StatusOK, entries, page, limit, total)
}
