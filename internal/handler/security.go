package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"farmgate-api/internal/middleware"
	"farmgate-api/internal/model"
	"farmgate-api/internal/service"
	"farmgate-api/pkg/response"
)

// cspReportMaxBytes caps report bodies; browsers send small documents.
const cspReportMaxBytes = 16 * 1024

// SecurityHandler receives browser security reports.
type SecurityHandler struct {
	audit   service.AuditRecorder
	metrics *service.MetricsService
	logger  *zap.Logger
}

// NewSecurityHandler creates a new security handler.
func NewSecurityHandler(audit service.AuditRecorder, metrics *service.MetricsService, logger *zap.Logger) *SecurityHandler {
	return &SecurityHandler{
		audit:   audit,
		metrics: metrics,
		logger:  logger,
	}
}

// cspReport is the document browsers POST on a Content-Security-Policy
// violation, wrapped in a top-level "csp-report" key.
type cspReport struct {
	Report struct {
		DocumentURI       string `json:"document-uri"`
		ViolatedDirective string `json:"violated-directive"`
		BlockedURI        string `json:"blocked-uri"`
		SourceFile        string `json:"source-file"`
		LineNumber        int    `json:"line-number"`
	} `json:"csp-report"`
}

// Report handles POST /api/security/csp-report
func (h *SecurityHandler) Report(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, cspReportMaxBytes))
	if err != nil {
		response.NoContent(w)
		return
	}
	defer r.Body.Close()

	var report cspReport
	if err := json.Unmarshal(body, &report); err != nil {
		// Malformed reports are still acknowledged; browsers do not retry.
		response.NoContent(w)
		return
	}

	h.logger.Warn("csp violation reported",
		zap.String("document_uri", report.Report.DocumentURI),
		zap.String("violated_directive", report.Report.ViolatedDirective),
		zap.String("blocked_uri", report.Report.BlockedURI),
		zap.String("ip", middleware.ClientIP(r)))

	h.metrics.Incr(r.Context(), service.MetricCSPReports)

	entry := model.AuditLogEntry{
		Action:       model.AuditActionUnauthorizedAccess,
		ResourceType: model.AuditResourceSecurity,
		ResourceID:   report.Report.ViolatedDirective,
		IPAddress:    middleware.ClientIP(r),
		UserAgent:    r.UserAgent(),
		After:        json.RawMessage(body),
	}
	h.audit.Record(entry)

	response.NoContent(w)
}
