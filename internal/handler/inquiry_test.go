package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"farmgate-api/internal/cache"
	"farmgate-api/internal/model"
	"farmgate-api/internal/repository"
	"farmgate-api/internal/service"
)

// memInquiryRepo is a minimal in-memory InquiryRepository for HTTP tests.
type memInquiryRepo struct {
	mu        sync.Mutex
	inquiries map[string]*model.Inquiry
}

func newMemInquiryRepo() *memInquiryRepo {
	return &memInquiryRepo{inquiries: make(map[string]*model.Inquiry)}
}

func (r *memInquiryRepo) Create(ctx context.Context, inquiry *model.Inquiry, items []model.InquiryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inquiry
	cp.Items = append([]model.InquiryItem(nil), items...)
	r.inquiries[inquiry.ID] = &cp
	return nil
}

func (r *memInquiryRepo) GetByID(ctx context.Context, id string) (*model.Inquiry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inquiry
	return &cp, nil
}

func (r *memInquiryRepo) List(ctx context.Context, filter model.InquiryFilter) ([]model.Inquiry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Inquiry{}
	for _, inquiry := range r.inquiries {
		out = append(out, *inquiry)
	}
	return out, int64(len(out)), nil
}

func (r *memInquiryRepo) UpdateStatus(ctx context.Context, id string, status model.InquiryStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	inquiry.Status = status
	return nil
}

func (r *memInquiryRepo) SetRead(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	inquiry.IsRead = true
	return nil
}

func (r *memInquiryRepo) SetReplied(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inquiry, ok := r.inquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	inquiry.IsReplied = true
	inquiry.IsRead = true
	return nil
}

func (r *memInquiryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inquiries[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.inquiries, id)
	return nil
}

func (r *memInquiryRepo) Stats(ctx context.Context) (*model.InquiryStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &model.InquiryStats{
		Total:    int64(len(r.inquiries)),
		ByStatus: map[model.InquiryStatus]int64{},
		ByType:   map[model.InquiryType]int64{},
	}, nil
}

var _ repository.InquiryRepository = (*memInquiryRepo)(nil)

type dropAudit struct{}

func (dropAudit) Record(entry model.AuditLogEntry) {}

func newTestRouter(t *testing.T) (chi.Router, *memInquiryRepo) {
	t.Helper()

	repo := newMemInquiryRepo()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })

	svc := service.NewInquiryService(repo, c, dropAudit{}, service.NewMetricsService(nil, zap.NewNop()), zap.NewNop())
	h := NewInquiryHandler(svc)

	r := chi.NewRouter()
	r.Post("/inquiries", h.Create)
	r.Get("/inquiries/{id}", h.Get)
	r.Patch("/inquiries/{id}/status", h.UpdateStatus)
	r.Delete("/inquiries/{id}", h.Delete)
	return r, repo
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

const createBody = `{
	"customer_name": "Mara Jensen",
	"customer_email": "mara@example.com",
	"type": "product",
	"items": [
		{"product_id": "p1", "product_name": "Free Range Eggs", "quantity": 3, "unit_price": 100},
		{"product_id": "p2", "product_name": "Raw Honey", "quantity": 2, "unit_price": 50}
	]
}`

func TestInquiryCreateEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/inquiries", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)

	var inquiry model.Inquiry
	require.NoError(t, json.Unmarshal(env.Data, &inquiry))
	assert.Equal(t, model.StatusPending, inquiry.Status)
	assert.Equal(t, 400.0, inquiry.TotalEstimated)
	assert.Len(t, inquiry.Items, 2)
}

func TestInquiryCreateEndpointRejectsBadJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/inquiries", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "BAD_REQUEST", env.Error)
}

func TestInquiryCreateEndpointRejectsInvalidInput(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/inquiries",
		strings.NewReader(`{"customer_name":"M","customer_email":"x","type":"product","items":[]}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
}

func TestInquiryStatusEndpoint(t *testing.T) {
	r, repo := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/inquiries", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.Inquiry
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	// Legal move first.
	req = httptest.NewRequest(http.MethodPatch, "/inquiries/"+created.ID+"/status",
		strings.NewReader(`{"status":"quoted"}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Skipping ahead is a 422 naming both states, and the store keeps quoted.
	req = httptest.NewRequest(http.MethodPatch, "/inquiries/"+created.ID+"/status",
		strings.NewReader(`{"status":"completed"}`))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "INVALID_TRANSITION", env.Error)
	assert.Contains(t, env.Message, `"quoted"`)
	assert.Contains(t, env.Message, `"completed"`)

	stored, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQuoted, stored.Status)
}

func TestInquiryStatusEndpointNotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPatch, "/inquiries/missing/status",
		strings.NewReader(`{"status":"quoted"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error)
}

func TestInquiryDeleteEndpoint(t *testing.T) {
	r, repo := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/inquiries", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var created model.Inquiry
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	req = httptest.NewRequest(http.MethodDelete, "/inquiries/"+created.ID, nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err := repo.GetByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
