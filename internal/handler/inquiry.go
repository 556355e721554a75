package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"farmgate-api/internal/middleware"
	"farmgate-api/internal/model"
	"farmgate-api/internal/service"
	"farmgate-api/pkg/apierror"
	"farmgate-api/pkg/response"
)

// InquiryHandler handles inquiry-related HTTP requests.
type InquiryHandler struct {
	inquiryService *service.InquiryService
}

// NewInquiryHandler creates a new inquiry handler.
func NewInquiryHandler(inquiryService *service.InquiryService) *InquiryHandler {
	return &InquiryHandler{
		inquiryService: inquiryService,
	}
}

// requestMeta builds the acting identity from the request context.
func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		Actor:     middleware.GetTokenDataFromContext(r.Context()),
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// Create handles POST /api/v1/inquiries
func (h *InquiryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateInquiryInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	inquiry, err := h.inquiryService.Create(r.Context(), input, requestMeta(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.Created(w, inquiry)
}

// List handles GET /api/v1/inquiries
func (h *InquiryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.InquiryFilter{
		Status: model.InquiryStatus(r.URL.Query().Get("status")),
		Type:   model.InquiryType(r.URL.Query().Get("type")),
		Unread: r.URL.Query().Get("unread") == "true",
	}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	if filter.Status != "" && !filter.Status.IsValid() {
		response.Error(w, apierror.BadRequest("unknown status filter"))
		return
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		response.Error(w, apierror.BadRequest("unknown type filter"))
		return
	}

	inquiries, total, err := h.inquiryService.List(r.Context(), filter, requestMeta(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	response.JSONWithMeta(w, http.StatusOK, inquiries, page, limit, total)
}

// Get handles GET /api/v1/inquiries/{id}
func (h *InquiryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	inquiry, err := h.inquiryService.Get(r.Context(), id, requestMeta(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, inquiry)
}

// StatusUpdateRequest is the body for PATCH .../status.
type StatusUpdateRequest struct {
	Status model.InquiryStatus `json:"status"`
}

// UpdateStatus handles PATCH /api/v1/inquiries/{id}/status
func (h *InquiryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid request body"))
		return
	}
	defer r.Body.Close()

	inquiry, err := h.inquiryService.UpdateStatus(r.Context(), id, req.Status, requestMeta(r))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, inquiry)
}

// MarkRead handles POST /api/v1/inquiries/{id}/read
func (h *InquiryHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.inquiryService.MarkRead(r.Context(), id, requestMeta(r)); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"id": id, "is_read": true})
}

// MarkReplied handles POST /api/v1/inquiries/{id}/reply
func (h *InquiryHandler) MarkReplied(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.inquiryService.MarkReplied(r.Context(), id, requestMeta(r)); err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, map[string]interface{}{"id": id, "is_read": true, "is_replied": true})
}

// Delete handles DELETE /api/v1/inquiries/{id}
func (h *InquiryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.inquiryService.Delete(r.Context(), id, requestMeta(r)); err != nil {
		response.Error(w, err)
		return
	}

	response.NoContent(w)
}

// Stats handles GET /api/v1/inquiries/stats
func (h *InquiryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.inquiryService.Stats(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}

	response.OK(w, stats)
}
